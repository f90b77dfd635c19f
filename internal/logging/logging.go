// Package logging は zap ロガーの生成と gin 用のミドルウェアを提供します。
package logging

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// New は実行モードに応じたロガーを作成します。release では JSON、それ以外は開発向けの出力です。
func New(mode string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	switch mode {
	case gin.ReleaseMode:
		logger, err = zap.NewProduction()
	case gin.TestMode:
		logger = zap.NewNop()
	default:
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// Requests はリクエストごとにメソッド・パス・ステータス・処理時間を記録するミドルウェアです。
func Requests(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// Recovery は panic を捕捉してスタックを記録し、汎用のエラー画面を返すミドルウェアです。
// error.tmpl がテンプレートとして登録されている必要があります。
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("error", r),
					zap.String("path", c.Request.URL.Path),
					zap.ByteString("stack", debug.Stack()))

				if c.Writer.Written() {
					c.Abort()
					return
				}
				c.HTML(http.StatusInternalServerError, "error.tmpl", gin.H{
					"Title":   "Error",
					"Status":  http.StatusInternalServerError,
					"Message": "Something went wrong. Please try again.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
