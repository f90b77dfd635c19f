// Package auth は認証・認可機能を提供します。
package auth

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/login-signup/internal/flash"
	"github.com/yourusername/login-signup/internal/session"
	"github.com/yourusername/login-signup/internal/users"
)

// 画面遷移先
const (
	LoginPath  = "/login"
	SignupPath = "/signup"
	HomePath   = "/home"
)

// 利用者に表示する通知
const (
	msgEmailExists        = "Email already exists"
	msgInvalidCredentials = "Invalid credentials"
	msgSignupFailed       = "Signup failed. Please try again."
	msgLoginFailed        = "Login failed. Please try again."
	msgSignupSuccess      = "Signup successful!"
	msgSignupPleaseLogin  = "Signup successful! Please log in."
	msgLoginSuccess       = "Login successful!"
	msgLoggedOut          = "You have been logged out."
	msgFormExpired        = "Your form has expired. Please try again."
	msgSessionUnavailable = "Something went wrong. Please log in again."
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーの公開情報を共有するためのキーです。
const ContextUserKey = "auth.user"

// Manager は認証フローの HTTP ハンドラーとミドルウェアをまとめた構造体です。
type Manager struct {
	svc      *Service
	sessions *session.Manager
	logger   *zap.Logger
}

// NewManager は認証マネージャーを作成します。
func NewManager(svc *Service, sessions *session.Manager, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		svc:      svc,
		sessions: sessions,
		logger:   logger,
	}
}

type signupForm struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

type loginForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Signup は POST /signup のハンドラーです。
func (m *Manager) Signup(c *gin.Context) {
	var form signupForm
	if err := c.ShouldBind(&form); err != nil {
		m.fail(c, SignupPath, &ValidationError{Message: msgAllFieldsRequired}, msgSignupFailed)
		return
	}

	user, err := m.svc.Signup(c.Request.Context(), SignupInput{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		m.fail(c, SignupPath, err, msgSignupFailed)
		return
	}
	m.logger.Info("user signed up", zap.String("user_id", user.ID))

	if err := m.sessions.Start(c, user.Public()); err != nil {
		// ユーザーは作成済みなのでログイン画面へ誘導する
		m.logger.Error("failed to start session after signup",
			zap.String("user_id", user.ID),
			zap.Error(&SessionError{Op: "create", Err: err}))
		m.redirectWithNotice(c, LoginPath, flash.KindSuccess, msgSignupPleaseLogin)
		return
	}

	m.redirectWithNotice(c, HomePath, flash.KindSuccess, msgSignupSuccess)
}

// Login は POST /login のハンドラーです。
func (m *Manager) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		m.fail(c, LoginPath, &ValidationError{Message: msgLoginFieldsRequired}, msgLoginFailed)
		return
	}

	user, err := m.svc.Login(c.Request.Context(), LoginInput{
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		m.fail(c, LoginPath, err, msgLoginFailed)
		return
	}

	if err := m.sessions.Start(c, user.Public()); err != nil {
		m.fail(c, LoginPath, &SessionError{Op: "create", Err: err}, msgLoginFailed)
		return
	}
	m.logger.Info("user logged in", zap.String("user_id", user.ID))

	m.redirectWithNotice(c, HomePath, flash.KindSuccess, msgLoginSuccess)
}

// Logout は POST /logout のハンドラーです。セッションがなくてもエラーにしません。
func (m *Manager) Logout(c *gin.Context) {
	if err := m.sessions.End(c); err != nil {
		m.logger.Error("failed to destroy session", zap.Error(&SessionError{Op: "destroy", Err: err}))
		c.Redirect(http.StatusSeeOther, HomePath)
		return
	}
	m.redirectWithNotice(c, LoginPath, flash.KindSuccess, msgLoggedOut)
}

// fail はエラーを通知に変換して target へリダイレクトします。
// fallback は内部エラー時に表示する汎用メッセージです。
func (m *Manager) fail(c *gin.Context, target string, err error, fallback string) {
	m.redirectWithNotice(c, target, flash.KindError, m.userMessage(c, err, fallback))
}

func (m *Manager) userMessage(c *gin.Context, err error, fallback string) string {
	var (
		validationErr *ValidationError
		duplicateErr  *DuplicateEmailError
		credErr       *InvalidCredentialsError
	)
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &duplicateErr):
		return msgEmailExists
	case errors.As(err, &credErr):
		m.logger.Info("login rejected", zap.String("client_ip", c.ClientIP()))
		return msgInvalidCredentials
	default:
		m.logger.Error("auth request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		return fallback
	}
}

func (m *Manager) redirectWithNotice(c *gin.Context, target string, kind flash.Kind, message string) {
	flash.Add(c, kind, message)
	m.saveState(c)
	// POST 後は常に 303 で GET へ遷移させ、再読み込みでの二重送信を防ぐ
	c.Redirect(http.StatusSeeOther, target)
}

func (m *Manager) saveState(c *gin.Context) {
	if err := sessions.Default(c).Save(); err != nil {
		m.logger.Warn("failed to save state cookie", zap.Error(err))
	}
}

func currentUser(c *gin.Context) (users.Public, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return users.Public{}, false
	}
	user, ok := v.(users.Public)
	return user, ok
}
