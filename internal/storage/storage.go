// Package storage はユーザーストアの実装（メモリ / PostgreSQL / MongoDB）を提供します。
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/yourusername/login-signup/internal/users"
)

// Backend は users.Store にクローズ処理を加えたものです。
type Backend interface {
	users.Store
	Close(ctx context.Context) error
}

// Open は接続文字列のスキームに応じてストアを開きます。
//
//	""               → メモリ
//	memory://        → メモリ
//	postgres(ql)://  → PostgreSQL（起動時にマイグレーションを適用）
//	mongodb(+srv)://  → MongoDB（起動時に一意インデックスを作成）
func Open(ctx context.Context, rawURL string) (Backend, error) {
	if strings.TrimSpace(rawURL) == "" {
		return NewMemoryStore(), nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store url: %w", err)
	}

	switch u.Scheme {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres", "postgresql":
		return OpenPostgres(ctx, rawURL)
	case "mongodb", "mongodb+srv":
		return OpenMongo(ctx, rawURL)
	default:
		return nil, fmt.Errorf("unsupported store scheme: %q", u.Scheme)
	}
}
