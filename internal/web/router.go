// Package web はテンプレート・静的ファイルとルーティングをまとめ、gin エンジンを組み立てます。
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/login-signup/internal/auth"
	"github.com/yourusername/login-signup/internal/flash"
	"github.com/yourusername/login-signup/internal/logging"
	"github.com/yourusername/login-signup/internal/session"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Options はルーター構築に必要な依存関係です。
type Options struct {
	Auth           *auth.Manager
	Sessions       *session.Manager
	Logger         *zap.Logger
	SessionSecret  string
	SecureCookies  bool
	AllowedOrigins []string
}

// Templates は埋め込みテンプレートを読み込みます。
func Templates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// NewRouter は gin エンジンを組み立てます。
func NewRouter(opts Options) (*gin.Engine, error) {
	if opts.Auth == nil {
		return nil, fmt.Errorf("auth manager is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tmpl, err := Templates()
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(logging.Requests(logger), logging.Recovery(logger))

	// 通知と CSRF トークンを保持する署名付きクッキー
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   opts.stateMaxAge(),
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(sessions.Sessions(flash.SessionName, store))

	if len(opts.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = opts.AllowedOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{
			"Origin",
			"Content-Type",
			"Accept",
			"X-CSRF-Token",
		}
		corsConfig.MaxAge = 12 * time.Hour
		router.Use(cors.New(corsConfig))
	}

	router.StaticFS("/static", http.FS(static))
	setupRoutes(router, opts.Auth)
	return router, nil
}

func (o Options) stateMaxAge() int {
	if o.Sessions != nil {
		return o.Sessions.MaxAgeSeconds()
	}
	return 0
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "login-signup",
	})
}

func setupRoutes(router *gin.Engine, authManager *auth.Manager) {
	router.GET("/health", handleHealth)

	// ログイン済みなら認証フォームを飛ばしてホームへ
	public := router.Group("", authManager.RedirectIfAuthenticated())
	{
		public.GET("/", authManager.ViewLogin)
		public.GET(auth.LoginPath, authManager.ViewLogin)
		public.GET(auth.SignupPath, authManager.ViewSignup)
	}

	router.POST(auth.SignupPath, authManager.VerifyCSRF(auth.SignupPath), authManager.Signup)
	router.POST(auth.LoginPath, authManager.VerifyCSRF(auth.LoginPath), authManager.Login)
	router.POST("/logout", authManager.VerifyCSRF(auth.HomePath), authManager.Logout)

	router.GET(auth.HomePath, authManager.RequireLogin(), authManager.ViewHome)

	router.NoRoute(authManager.NotFound)
}
