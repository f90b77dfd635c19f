// Package session はサーバー側セッションの管理機能を提供します。
package session

import (
	"context"
	"time"

	"github.com/yourusername/login-signup/internal/users"
)

// Record はセッションIDに紐づくサーバー側の状態です。
type Record struct {
	User       users.Public `json:"user"`
	IssuedAt   time.Time    `json:"issuedAt"`
	LastActive time.Time    `json:"lastActive"`
}

// Store はセッションの保存先です。
type Store interface {
	// Save はレコードを ttl 付きで保存します（存在する場合は上書き）。
	Save(ctx context.Context, id string, record *Record, ttl time.Duration) error
	// Touch はレコードが存在する場合だけ上書きし、ttl を延長します。
	// 破棄済みのセッションを復活させないため、更新には Save ではなくこちらを使います。
	Touch(ctx context.Context, id string, record *Record, ttl time.Duration) (bool, error)
	// Get はレコードを返します。存在しない場合は nil, nil を返します。
	Get(ctx context.Context, id string) (*Record, error)
	// Delete はレコードを削除します。存在しなくてもエラーにしません。
	Delete(ctx context.Context, id string) error
}
