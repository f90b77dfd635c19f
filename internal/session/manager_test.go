package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/login-signup/internal/users"
)

var ann = users.Public{ID: "u-1", Name: "Ann", Email: "ann@x.com"}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestManager(opts Options) (*Manager, *MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.Now
	m := NewManager(store, opts)
	m.now = clock.Now
	return m, store, clock
}

func TestCreateLookupDestroy(t *testing.T) {
	m, store, _ := newTestManager(Options{})
	ctx := context.Background()

	id, err := m.Create(ctx, ann)
	require.NoError(t, err)
	assert.Len(t, id, 64)

	record, err := m.Lookup(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, ann, record.User)

	require.NoError(t, m.Destroy(ctx, id))
	assert.Equal(t, 0, store.Len())

	record, err = m.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, record)

	// 二回目の破棄や空IDでもエラーにならない
	assert.NoError(t, m.Destroy(ctx, id))
	assert.NoError(t, m.Destroy(ctx, ""))
}

func TestSessionIDsAreUnique(t *testing.T) {
	m, _, _ := newTestManager(Options{})
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := m.Create(context.Background(), ann)
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestIdleTimeout(t *testing.T) {
	m, store, clock := newTestManager(Options{IdleTimeout: 10 * time.Minute, MaxLifetime: time.Hour})
	ctx := context.Background()

	id, err := m.Create(ctx, ann)
	require.NoError(t, err)

	// 操作があればタイムアウトは延長される
	clock.Advance(9 * time.Minute)
	record, err := m.Lookup(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, record)

	clock.Advance(9 * time.Minute)
	record, err = m.Lookup(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, record)

	clock.Advance(11 * time.Minute)
	record, err = m.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Equal(t, 0, store.Len())
}

func TestMaxLifetime(t *testing.T) {
	m, _, clock := newTestManager(Options{IdleTimeout: 10 * time.Minute, MaxLifetime: 25 * time.Minute})
	ctx := context.Background()

	id, err := m.Create(ctx, ann)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		clock.Advance(9 * time.Minute)
		record, err := m.Lookup(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, record)
	}

	clock.Advance(9 * time.Minute)
	record, err := m.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, record, "session must expire after its absolute lifetime")
}

func TestStartSetsCookieAndRotates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, store, _ := newTestManager(Options{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/login", nil)
	require.NoError(t, m.Start(c, ann))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	first := cookies[0]
	assert.Equal(t, CookieName, first.Name)
	assert.True(t, first.HttpOnly)
	assert.False(t, first.Secure)
	assert.Equal(t, http.SameSiteStrictMode, first.SameSite)
	assert.Equal(t, 1, store.Len())

	// 既存のセッションを持ったまま再ログインすると古いIDは破棄される
	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/login", nil)
	c.Request.AddCookie(first)
	require.NoError(t, m.Start(c, ann))

	second := rec.Result().Cookies()[0]
	assert.NotEqual(t, first.Value, second.Value)
	assert.Equal(t, 1, store.Len())

	record, err := m.Lookup(context.Background(), first.Value)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestSecureCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, _, _ := newTestManager(Options{Secure: true})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/login", nil)
	require.NoError(t, m.Start(c, ann))

	assert.True(t, rec.Result().Cookies()[0].Secure)
}

func TestCurrentAndEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, _, _ := newTestManager(Options{})

	id, err := m.Create(context.Background(), ann)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/home", nil)
	c.Request.AddCookie(&http.Cookie{Name: CookieName, Value: id})

	record, err := m.Current(c)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Ann", record.User.Name)

	require.NoError(t, m.End(c))
	cleared := rec.Result().Cookies()[0]
	assert.Equal(t, CookieName, cleared.Name)
	assert.Equal(t, "", cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	record, err = m.Current(c)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestEndWithoutSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, _, _ := newTestManager(Options{})

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/logout", nil)

	assert.NoError(t, m.End(c))
}

type failingStore struct {
	*MemoryStore
}

func (f *failingStore) Delete(context.Context, string) error {
	return errors.New("redis unavailable")
}

func TestEndClearsCookieEvenWhenDestroyFails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(&failingStore{MemoryStore: NewMemoryStore()}, Options{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/logout", nil)
	c.Request.AddCookie(&http.Cookie{Name: CookieName, Value: "abc"})

	err := m.End(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis unavailable")
	assert.Less(t, rec.Result().Cookies()[0].MaxAge, 0)
}

// pausingStore は Get の直後で呼び出し元を止め、その間に別の操作を差し込めるようにします。
type pausingStore struct {
	*MemoryStore
	loaded chan struct{}
	resume chan struct{}
}

func (p *pausingStore) Get(ctx context.Context, id string) (*Record, error) {
	record, err := p.MemoryStore.Get(ctx, id)
	close(p.loaded)
	<-p.resume
	return record, err
}

func TestLookupDoesNotRestoreDestroyedSession(t *testing.T) {
	inner := NewMemoryStore()
	m := NewManager(inner, Options{})
	ctx := context.Background()

	id, err := m.Create(ctx, ann)
	require.NoError(t, err)

	store := &pausingStore{
		MemoryStore: inner,
		loaded:      make(chan struct{}),
		resume:      make(chan struct{}),
	}
	reader := NewManager(store, Options{})

	type result struct {
		record *Record
		err    error
	}
	done := make(chan result, 1)
	go func() {
		record, err := reader.Lookup(ctx, id)
		done <- result{record, err}
	}()

	// 読み込み済みのリクエストがある状態でログアウトする
	<-store.loaded
	require.NoError(t, m.Destroy(ctx, id))
	close(store.resume)

	res := <-done
	require.NoError(t, res.err)
	assert.Nil(t, res.record)
	assert.Equal(t, 0, inner.Len())

	record, err := m.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestMemoryStoreTouch(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	record := &Record{User: ann, IssuedAt: time.Now(), LastActive: time.Now()}

	ok, err := store.Touch(ctx, "missing", record, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.Save(ctx, "s1", record, time.Minute))
	ok, err = store.Touch(ctx, "s1", record, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreSweepsExpiredOnSave(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.Now
	ctx := context.Background()
	record := &Record{User: ann}

	require.NoError(t, store.Save(ctx, "old-1", record, time.Minute))
	require.NoError(t, store.Save(ctx, "old-2", record, time.Minute))
	require.NoError(t, store.Save(ctx, "long", record, time.Hour))

	clock.Advance(2 * time.Minute)
	require.NoError(t, store.Save(ctx, "new", record, time.Minute))

	// 一度も読まれていない期限切れセッションも消えている
	assert.Equal(t, 2, store.Len())
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}
	ctx := context.Background()
	store, err := OpenRedis(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m := NewManager(store, Options{IdleTimeout: time.Minute})
	id, err := m.Create(ctx, ann)
	require.NoError(t, err)

	ttl, err := store.rdb.TTL(ctx, sessionKey(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	record, err := m.Lookup(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, ann, record.User)

	require.NoError(t, m.Destroy(ctx, id))
	ok, err := store.Touch(ctx, id, record, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "SET XX must not recreate a deleted key")

	record, err = m.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, record)
}
