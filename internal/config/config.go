// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ReleaseMode は本番運用時の GIN_MODE の値です。
const ReleaseMode = "release"

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // HTTPサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// 認証情報の保存先
	StoreURL   string // ユーザーストアの接続文字列（空ならメモリ）
	BcryptCost int    // パスワードハッシュのコスト

	// セッション設定
	SessionSecret      string // クッキー署名用の秘密鍵
	SessionRedisURL    string // セッション保存用Redis接続URL（空ならメモリ）
	SessionIdleMinutes int    // 無操作でセッションが切れるまでの分数
	SessionMaxHours    int    // セッションの最大有効時間

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		Port:    getEnv("PORT", "3000"),
		GinMode: getEnv("GIN_MODE", "debug"),

		StoreURL:   getEnv("STORE_URL", ""),
		BcryptCost: getEnvAsInt("BCRYPT_COST", 12),

		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionRedisURL:    getEnv("SESSION_REDIS_URL", ""),
		SessionIdleMinutes: getEnvAsInt("SESSION_IDLE_MINUTES", 30),
		SessionMaxHours:    getEnvAsInt("SESSION_MAX_HOURS", 12),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// 開発環境では署名鍵を起動ごとに生成する（再起動でセッションは失効する）
	if config.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		config.SessionSecret = secret
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.SessionIdleMinutes <= 0 {
		return fmt.Errorf("SESSION_IDLE_MINUTES must be positive")
	}
	if c.SessionMaxHours <= 0 {
		return fmt.Errorf("SESSION_MAX_HOURS must be positive")
	}

	// 本番環境では秘密鍵と永続ストアを必須にする
	if c.IsRelease() {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 bytes in release mode")
		}
		if c.StoreURL == "" {
			return fmt.Errorf("STORE_URL is required in release mode")
		}
		if c.SessionRedisURL == "" {
			return fmt.Errorf("SESSION_REDIS_URL is required in release mode")
		}
	}

	return nil
}

// IsRelease は本番モードかどうかを返します。Secure クッキーの判定に使います。
func (c *Config) IsRelease() bool {
	return c.GinMode == ReleaseMode
}

// SessionIdleTimeout は無操作タイムアウトを返します。
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// SessionMaxLifetime はセッションの最大有効時間を返します。
func (c *Config) SessionMaxLifetime() time.Duration {
	return time.Duration(c.SessionMaxHours) * time.Hour
}

// AllowedOrigins は CORS 許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
