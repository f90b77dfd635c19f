package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

func newMemoryEntry(record *Record, ttl time.Duration, now time.Time) memoryEntry {
	entry := memoryEntry{record: *record}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	return entry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore はプロセス内にセッションを保持します（開発・テスト用）。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore は MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get はセッション情報を取得します。期限切れのものは削除して nil を返します。
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	if entry.expired(s.now()) {
		delete(s.entries, id)
		return nil, nil
	}
	record := entry.record
	return &record, nil
}

// Save はセッション情報を保存します。保存のたびに期限切れのセッションを掃除します。
func (s *MemoryStore) Save(ctx context.Context, id string, record *Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	s.entries[id] = newMemoryEntry(record, ttl, now)
	return nil
}

// Touch は期限内のセッションが残っている場合だけ更新します。
func (s *MemoryStore) Touch(ctx context.Context, id string, record *Record, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	if entry.expired(now) {
		delete(s.entries, id)
		return false, nil
	}
	s.entries[id] = newMemoryEntry(record, ttl, now)
	return true, nil
}

// Delete はセッション情報を削除します。
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

// Len は保持しているセッション数を返します。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep は期限切れのセッションを削除します。mu を保持した状態で呼びます。
func (s *MemoryStore) sweep(now time.Time) {
	for id, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, id)
		}
	}
}
