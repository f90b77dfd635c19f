package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/login-signup/internal/users"
)

// CookieName はセッションIDを運ぶクッキー名です。
const CookieName = "lsu_session"

var (
	defaultIdleTimeout = 30 * time.Minute
	defaultMaxLifetime = 12 * time.Hour
)

// Options は Manager の設定です。
type Options struct {
	IdleTimeout time.Duration // 無操作タイムアウト
	MaxLifetime time.Duration // 発行からの最大有効時間
	Secure      bool          // HTTPS でのみクッキーを送る（本番）
}

// Manager はセッションの発行・参照・破棄を担います。
type Manager struct {
	store       Store
	idleTimeout time.Duration
	maxLifetime time.Duration
	secure      bool
	now         func() time.Time
}

// NewManager は Manager を作成します。
func NewManager(store Store, opts Options) *Manager {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.MaxLifetime <= 0 {
		opts.MaxLifetime = defaultMaxLifetime
	}
	return &Manager{
		store:       store,
		idleTimeout: opts.IdleTimeout,
		maxLifetime: opts.MaxLifetime,
		secure:      opts.Secure,
		now:         time.Now,
	}
}

// MaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func (m *Manager) MaxAgeSeconds() int {
	return int(m.maxLifetime.Seconds())
}

// Create は新しいセッションを発行し、そのIDを返します。
func (m *Manager) Create(ctx context.Context, user users.Public) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	now := m.now().UTC()
	record := &Record{
		User:       user,
		IssuedAt:   now,
		LastActive: now,
	}
	if err := m.store.Save(ctx, id, record, m.idleTimeout); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return id, nil
}

// Lookup はセッションを取得し、最終操作時刻を更新します。
// 存在しない・期限切れの場合は nil, nil を返します。
func (m *Manager) Lookup(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, nil
	}
	record, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if record == nil {
		return nil, nil
	}

	now := m.now().UTC()
	if record.IssuedAt.IsZero() || now.Sub(record.IssuedAt) > m.maxLifetime ||
		record.LastActive.IsZero() || now.Sub(record.LastActive) > m.idleTimeout {
		if err := m.store.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		return nil, nil
	}

	record.LastActive = now
	ok, err := m.store.Touch(ctx, id, record, m.idleTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	if !ok {
		// 読み込み後に破棄された
		return nil, nil
	}
	return record, nil
}

// Destroy はセッションを破棄します。存在しない場合もエラーにしません。
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Start はセッションを発行してクッキーに設定します。既存のセッションは破棄します。
func (m *Manager) Start(c *gin.Context, user users.Public) error {
	ctx := c.Request.Context()
	if previous := cookieValue(c); previous != "" {
		if err := m.Destroy(ctx, previous); err != nil {
			return err
		}
	}

	id, err := m.Create(ctx, user)
	if err != nil {
		return err
	}
	m.setCookie(c, id, m.MaxAgeSeconds())
	return nil
}

// Current はリクエストのクッキーからセッションを取得します。
func (m *Manager) Current(c *gin.Context) (*Record, error) {
	return m.Lookup(c.Request.Context(), cookieValue(c))
}

// End はクッキーを消去し、サーバー側のセッションを破棄します。
// 破棄に失敗してもクッキーは消去します。
func (m *Manager) End(c *gin.Context) error {
	id := cookieValue(c)
	m.setCookie(c, "", -1)
	return m.Destroy(c.Request.Context(), id)
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func cookieValue(c *gin.Context) string {
	value, err := c.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return value
}

func generateID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
