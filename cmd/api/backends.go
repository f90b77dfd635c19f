package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/login-signup/internal/config"
	"github.com/yourusername/login-signup/internal/session"
	"github.com/yourusername/login-signup/internal/storage"
)

// backends は起動時に接続するストアをまとめたものです。
type backends struct {
	users    storage.Backend
	sessions session.Store
	redis    *session.RedisStore
}

// openBackends は資格情報ストアとセッションストアを設定に従って開きます。
// SESSION_REDIS_URL が空ならセッションはプロセス内メモリに保持されます。
func openBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backends, error) {
	users, err := storage.Open(ctx, cfg.StoreURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	b := &backends{users: users}
	if cfg.SessionRedisURL == "" {
		logger.Warn("SESSION_REDIS_URL is empty; sessions are kept in memory")
		b.sessions = session.NewMemoryStore()
		return b, nil
	}

	rs, err := session.OpenRedis(ctx, cfg.SessionRedisURL)
	if err != nil {
		_ = users.Close(ctx)
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	b.redis = rs
	b.sessions = rs
	return b, nil
}

func (b *backends) close(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.users.Close(ctx); err != nil {
		logger.Warn("failed to close credential store", zap.Error(err))
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
