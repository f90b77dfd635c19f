// Package password はパスワードのハッシュ化と検証を提供します。
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost は bcrypt のデフォルトコストです（2^12 回のラウンド）。
const DefaultCost = 12

// MaxLength は bcrypt が扱える入力の最大バイト数です。
const MaxLength = 72

// ErrTooLong は入力が MaxLength を超えていることを表します。
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hasher は bcrypt を用いたパスワードハッシャーです。
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher は Hasher を作成します。範囲外のコストは DefaultCost に置き換えます。
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	// 存在しないユーザーのログイン時にも同じ計算量をかけるためのハッシュ
	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &Hasher{cost: cost, dummy: dummy}, nil
}

// Cost は使用しているコストを返します。
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash はソルト付きのハッシュを返します。同じ入力でも毎回異なる値になります。
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxLength {
		return "", ErrTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify は平文とハッシュが一致するかを返します。不一致や不正なハッシュは false です。
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// VerifyDummy はダミーハッシュに対して比較を行い、常に false を返します。
func (h *Hasher) VerifyDummy(plaintext string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
	return false
}
