package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/login-signup/internal/password"
	"github.com/yourusername/login-signup/internal/users"
)

// 利用者に表示する文言
const (
	msgAllFieldsRequired   = "All fields are required"
	msgInvalidEmail        = "Please enter a valid email address"
	msgPasswordTooShort    = "Password must be at least 8 characters"
	msgPasswordTooLong     = "Password must be at most 72 bytes"
	msgLoginFieldsRequired = "Email and password are required"
)

// PasswordHasher はパスワードのハッシュ化と検証を行います。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	VerifyDummy(plaintext string) bool
}

// SignupInput はサインアップの入力です。
type SignupInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8"`
}

// LoginInput はログインの入力です。
type LoginInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// Service はサインアップとログインの業務ロジックです。HTTP には依存しません。
type Service struct {
	users    users.Store
	hasher   PasswordHasher
	validate *validator.Validate
}

// NewService は Service を作成します。
func NewService(store users.Store, hasher PasswordHasher) *Service {
	return &Service{
		users:    store,
		hasher:   hasher,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Signup はユーザーを登録します。
//
// 返すエラーは *ValidationError, *DuplicateEmailError, *PersistenceError のいずれかです。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*users.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = users.NormalizeEmail(in.Email)

	if err := s.validateSignup(in); err != nil {
		return nil, err
	}

	// ハッシュ計算の前に重複を確認する。最終的な一意性はストアが保証する。
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, &DuplicateEmailError{Email: in.Email}
	} else if !errors.Is(err, users.ErrNotFound) {
		return nil, &PersistenceError{Op: "find user", Err: err}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, &ValidationError{Message: msgPasswordTooLong}
		}
		return nil, &PersistenceError{Op: "hash password", Err: err}
	}

	user, err := s.users.Create(ctx, &users.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, &DuplicateEmailError{Email: in.Email}
		}
		return nil, &PersistenceError{Op: "create user", Err: err}
	}
	return user, nil
}

// Login はメールアドレスとパスワードを検証します。
//
// ユーザーが存在しない場合もパスワード不一致の場合も *InvalidCredentialsError を返します。
func (s *Service) Login(ctx context.Context, in LoginInput) (*users.User, error) {
	in.Email = users.NormalizeEmail(in.Email)

	if err := s.validate.Struct(in); err != nil {
		return nil, &ValidationError{Message: msgLoginFieldsRequired}
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			// 応答時間でユーザーの有無が分からないように同じ計算を行う
			s.hasher.VerifyDummy(in.Password)
			return nil, &InvalidCredentialsError{}
		}
		return nil, &PersistenceError{Op: "find user", Err: err}
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, &InvalidCredentialsError{}
	}
	return user, nil
}

func (s *Service) validateSignup(in SignupInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Message: msgAllFieldsRequired}
	}

	// 未入力があればそれを最優先で伝える
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return &ValidationError{Message: msgAllFieldsRequired}
		}
	}
	switch fe := fieldErrs[0]; fe.Field() {
	case "Email":
		return &ValidationError{Message: msgInvalidEmail}
	case "Password":
		return &ValidationError{Message: msgPasswordTooShort}
	default:
		return &ValidationError{Message: msgAllFieldsRequired}
	}
}
