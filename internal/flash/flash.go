// Package flash は次の画面表示で一度だけ表示する通知メッセージを扱います。
//
// 通知は gin-contrib/sessions のクッキーセッションに保存されます。
// Add / Pop はセッションを保存しないため、呼び出し側で sessions.Session.Save を呼んでください。
package flash

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// SessionName は通知と CSRF トークンを保持するクッキーセッションの名前です。
const SessionName = "lsu_state"

// Kind は通知の種別です。
type Kind string

const (
	KindError   Kind = "error"
	KindSuccess Kind = "success"
)

var kinds = []Kind{KindError, KindSuccess}

// Notice は画面に表示する通知です。
type Notice struct {
	Kind    Kind
	Message string
}

// Add は通知を追加します。
func Add(c *gin.Context, kind Kind, message string) {
	sessions.Default(c).AddFlash(message, string(kind))
}

// Pop は保留中の通知をすべて取り出します。取り出した通知は消えます。
func Pop(c *gin.Context) []Notice {
	session := sessions.Default(c)
	var notices []Notice
	for _, kind := range kinds {
		for _, v := range session.Flashes(string(kind)) {
			if message, ok := v.(string); ok {
				notices = append(notices, Notice{Kind: kind, Message: message})
			}
		}
	}
	return notices
}
