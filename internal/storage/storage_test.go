package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/login-signup/internal/users"
)

// testStoreContract はどのバックエンドでも満たすべき振る舞いを検証します。
func testStoreContract(t *testing.T, store users.Store) {
	ctx := context.Background()
	email := "ann-" + uuid.NewString()[:8] + "@X.com"

	t.Run("create and find", func(t *testing.T) {
		created, err := store.Create(ctx, &users.User{
			Name:         "Ann",
			Email:        "  " + email + " ",
			PasswordHash: "$2a$04$hash",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, users.NormalizeEmail(email), created.Email)
		assert.False(t, created.CreatedAt.IsZero())

		found, err := store.FindByEmail(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "Ann", found.Name)
		assert.Equal(t, "$2a$04$hash", found.PasswordHash)
	})

	t.Run("duplicate email is case-insensitive", func(t *testing.T) {
		_, err := store.Create(ctx, &users.User{
			Name:         "Other",
			Email:        users.NormalizeEmail(email),
			PasswordHash: "$2a$04$other",
		})
		assert.ErrorIs(t, err, users.ErrDuplicateEmail)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.FindByEmail(ctx, "nobody-"+uuid.NewString()+"@x.com")
		assert.ErrorIs(t, err, users.ErrNotFound)
	})

	t.Run("concurrent creates with one email", func(t *testing.T) {
		shared := "race-" + uuid.NewString()[:8] + "@x.com"
		var (
			wg         sync.WaitGroup
			successes  atomic.Int32
			duplicates atomic.Int32
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Create(ctx, &users.User{Name: "Racer", Email: shared, PasswordHash: "h"})
				switch {
				case err == nil:
					successes.Add(1)
				case assert.ErrorIs(t, err, users.ErrDuplicateEmail):
					duplicates.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), successes.Load())
		assert.Equal(t, int32(7), duplicates.Load())
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	testStoreContract(t, store)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Create(ctx, &users.User{Name: "Ann", Email: "ann@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_URL is not set")
	}
	ctx := context.Background()
	store, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	testStoreContract(t, store)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URL")
	if uri == "" {
		t.Skip("TEST_MONGO_URL is not set")
	}
	ctx := context.Background()
	store, err := OpenMongo(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	testStoreContract(t, store)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	for _, raw := range []string{"", "  ", "memory://"} {
		backend, err := Open(ctx, raw)
		require.NoError(t, err, raw)
		assert.IsType(t, &MemoryStore{}, backend)
		require.NoError(t, backend.Close(ctx))
	}

	_, err := Open(ctx, "mysql://localhost/users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store scheme")
}
