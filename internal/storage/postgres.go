package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/yourusername/login-signup/internal/users"
)

//go:embed migrations/*.sql
var migrations embed.FS

// uniqueViolation は PostgreSQL の一意制約違反の SQLSTATE です。
const uniqueViolation = "23505"

// PostgresStore は PostgreSQL にユーザーを保存します。
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres は接続プールを作成し、マイグレーションを適用します。
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// FindByEmail はメールアドレスでユーザーを探します。
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	query := `SELECT id, name, email, password_hash, created_at FROM users
		 WHERE lower(email) = $1`

	var (
		user users.User
		id   uuid.UUID
	)
	err := s.pool.QueryRow(ctx, query, users.NormalizeEmail(email)).
		Scan(&id, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.ID = id.String()
	return &user, nil
}

// Create はユーザーを保存します。一意性は lower(email) のユニークインデックスで保証されます。
func (s *PostgresStore) Create(ctx context.Context, user *users.User) (*users.User, error) {
	query := `INSERT INTO users (id, name, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`

	id := uuid.New()
	stored := *user
	stored.ID = id.String()
	stored.Email = users.NormalizeEmail(user.Email)
	stored.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx, query, id, stored.Name, stored.Email, stored.PasswordHash, stored.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, users.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &stored, nil
}

// Close は接続プールを閉じます。
func (s *PostgresStore) Close(context.Context) error {
	s.pool.Close()
	return nil
}
