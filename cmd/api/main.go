// Package main は Web サーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/login-signup/internal/auth"
	"github.com/yourusername/login-signup/internal/config"
	"github.com/yourusername/login-signup/internal/logging"
	"github.com/yourusername/login-signup/internal/password"
	"github.com/yourusername/login-signup/internal/session"
	"github.com/yourusername/login-signup/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	logger, err := logging.New(cfg.GinMode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close(logger)

	hasher, err := password.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}

	sessionManager := session.NewManager(b.sessions, session.Options{
		IdleTimeout: cfg.SessionIdleTimeout(),
		MaxLifetime: cfg.SessionMaxLifetime(),
		Secure:      cfg.IsRelease(),
	})
	authManager := auth.NewManager(auth.NewService(b.users, hasher), sessionManager, logger)

	router, err := web.NewRouter(web.Options{
		Auth:           authManager,
		Sessions:       sessionManager,
		Logger:         logger,
		SessionSecret:  cfg.SessionSecret,
		SecureCookies:  cfg.IsRelease(),
		AllowedOrigins: cfg.AllowedOrigins(),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting web server",
			zap.String("addr", srv.Addr),
			zap.String("mode", cfg.GinMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
