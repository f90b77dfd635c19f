package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/login-signup/internal/users"
)

// MemoryStore はプロセス内にユーザーを保持するストアです（開発・テスト用）。
type MemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]users.User
}

// NewMemoryStore は MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byEmail: make(map[string]users.User),
	}
}

// FindByEmail はメールアドレスでユーザーを探します。
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byEmail[users.NormalizeEmail(email)]
	if !ok {
		return nil, users.ErrNotFound
	}
	return &user, nil
}

// Create はユーザーを保存します。一意性の確認と書き込みは同じロック内で行います。
func (s *MemoryStore) Create(ctx context.Context, user *users.User) (*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := users.NormalizeEmail(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[key]; exists {
		return nil, users.ErrDuplicateEmail
	}

	stored := *user
	stored.ID = uuid.NewString()
	stored.Email = key
	stored.CreatedAt = time.Now().UTC()
	s.byEmail[key] = stored

	return &stored, nil
}

// Len は保存されているユーザー数を返します。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail)
}

// Close は何もしません。
func (s *MemoryStore) Close(context.Context) error {
	return nil
}
