package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
)

// RedisStore はセッションを Redis に保存します。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{
		rdb: rdb,
	}
}

// OpenRedis は URL から Redis クライアントを作成し、疎通を確認します。
func OpenRedis(ctx context.Context, rawURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisStore(rdb), nil
}

// Get はセッション情報を取得します。
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, nil
	}
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Save はセッション情報を保存します。ttl が有効期限（無操作タイムアウト）になります。
func (s *RedisStore) Save(ctx context.Context, id string, record *Record, ttl time.Duration) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(id), payload, ttl).Err()
}

// Touch は SET XX でキーが残っている場合だけセッション情報を更新します。
func (s *RedisStore) Touch(ctx context.Context, id string, record *Record, ttl time.Duration) (bool, error) {
	if record == nil {
		return false, fmt.Errorf("record is nil")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return false, err
	}
	return s.rdb.SetXX(ctx, sessionKey(id), payload, ttl).Result()
}

// Delete はセッション情報を削除します。
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}

// Close は Redis クライアントを閉じます。
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
