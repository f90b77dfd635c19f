// Package users はユーザー（認証情報）のモデルとストアの契約を定義します。
package users

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound は指定したメールアドレスのユーザーが存在しないことを表します。
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail は同じメールアドレスのユーザーが既に存在することを表します。
	ErrDuplicateEmail = errors.New("email already exists")
)

// User は永続化される唯一のエンティティです。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Public はセッションや画面に渡すための公開情報です。パスワードハッシュは含みません。
type Public struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Public はユーザーの公開情報を返します。
func (u *User) Public() Public {
	return Public{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}

// Store はユーザーの保存先です。メールアドレスの一意性はストア側で保証します。
type Store interface {
	// FindByEmail はメールアドレス（大文字小文字を区別しない）でユーザーを探します。
	// 見つからない場合は ErrNotFound を返します。
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Create はユーザーを保存し、ID を採番して返します。
	// 同じメールアドレスが存在する場合は ErrDuplicateEmail を返します。
	Create(ctx context.Context, user *User) (*User, error)
}

// NormalizeEmail は一意性判定に使う正規化済みのメールアドレスを返します。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
