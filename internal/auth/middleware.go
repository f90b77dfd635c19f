package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/login-signup/internal/flash"
)

const (
	sessionKeyCSRF = "csrf_token"

	csrfHeader    = "X-CSRF-Token"
	csrfFormField = "csrf_token"
)

// RequireLogin はセッションを検証し、未ログインならログイン画面へリダイレクトします。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := m.sessions.Current(c)
		if err != nil {
			m.logger.Error("failed to load session", zap.Error(&SessionError{Op: "get", Err: err}))
			flash.Add(c, flash.KindError, msgSessionUnavailable)
			m.saveState(c)
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		if record == nil {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, record.User)
		c.Next()
	}
}

// RedirectIfAuthenticated はログイン済みの利用者をホーム画面へ送ります。
// セッションの読み込みに失敗した場合は未ログインとして扱います。
func (m *Manager) RedirectIfAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := m.sessions.Current(c)
		if err != nil {
			m.logger.Warn("failed to load session", zap.Error(&SessionError{Op: "get", Err: err}))
		}
		if record != nil {
			c.Redirect(http.StatusFound, HomePath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// VerifyCSRF はフォームの csrf_token（または X-CSRF-Token ヘッダー）を検証するミドルウェアです。
// 不一致の場合は通知を付けて fallback へリダイレクトします。
func (m *Manager) VerifyCSRF(fallback string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		session := sessions.Default(c)
		expected, _ := session.Get(sessionKeyCSRF).(string)

		received := c.GetHeader(csrfHeader)
		if received == "" {
			received = c.PostForm(csrfFormField)
		}

		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			m.logger.Warn("csrf verification failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()))
			flash.Add(c, flash.KindError, msgFormExpired)
			m.saveState(c)
			c.Redirect(http.StatusSeeOther, fallback)
			c.Abort()
			return
		}

		c.Next()
	}
}

// csrfToken はセッションの CSRF トークンを返します。なければ生成してセッションに設定します。
// 保存は呼び出し側で行います。
func csrfToken(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	if token, ok := session.Get(sessionKeyCSRF).(string); ok && token != "" {
		return token, nil
	}
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	session.Set(sessionKeyCSRF, token)
	return token, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
