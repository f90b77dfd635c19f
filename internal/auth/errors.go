package auth

import "fmt"

// ValidationError は入力不備を表します。Message はそのまま利用者に表示します。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}

// DuplicateEmailError は既に登録済みのメールアドレスでの登録を表します。
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("email already exists: %s", e.Email)
}

// InvalidCredentialsError はメールアドレスまたはパスワードの誤りを表します。
// どちらが誤っていたかは区別しません。
type InvalidCredentialsError struct{}

func (e *InvalidCredentialsError) Error() string {
	return "invalid credentials"
}

// PersistenceError はストアの障害を表します。詳細はログにのみ出力します。
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SessionError はセッション操作の失敗を表します。
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session error during %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
