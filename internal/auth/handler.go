package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/login-signup/internal/flash"
)

// ViewLogin は GET / と GET /login のハンドラーです。
func (m *Manager) ViewLogin(c *gin.Context) {
	m.render(c, http.StatusOK, "login.tmpl", gin.H{"Title": "Login"})
}

// ViewSignup は GET /signup のハンドラーです。
func (m *Manager) ViewSignup(c *gin.Context) {
	m.render(c, http.StatusOK, "signup.tmpl", gin.H{"Title": "Sign up"})
}

// ViewHome は GET /home のハンドラーです。RequireLogin の後段で使います。
func (m *Manager) ViewHome(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, LoginPath)
		return
	}
	m.render(c, http.StatusOK, "home.tmpl", gin.H{
		"Title": "Home",
		"User":  user,
	})
}

// NotFound は未定義ルートのハンドラーです。
func (m *Manager) NotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "error.tmpl", gin.H{
		"Title":   "Not found",
		"Status":  http.StatusNotFound,
		"Message": "The page you are looking for does not exist.",
	})
}

// render は CSRF トークンと保留中の通知をテンプレートに渡して描画します。
func (m *Manager) render(c *gin.Context, status int, name string, data gin.H) {
	token, err := csrfToken(c)
	if err != nil {
		m.logger.Error("failed to generate csrf token", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "error.tmpl", gin.H{
			"Title":   "Error",
			"Status":  http.StatusInternalServerError,
			"Message": "Something went wrong. Please try again.",
		})
		return
	}
	data["CSRFToken"] = token
	data["Notices"] = flash.Pop(c)
	m.saveState(c)

	c.Header("Cache-Control", "no-store")
	c.HTML(status, name, data)
}
