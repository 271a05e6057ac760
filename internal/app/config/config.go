// Package config はアプリケーション設定を環境変数から読み込みます。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定です。
type Config struct {
	// SecretKey はセッショントークンの署名鍵です。
	SecretKey    string `env:"SECRET_KEY,required,notEmpty"`
	DatabaseURL  string `env:"DATABASE_URL,required,notEmpty"`
	DatabaseName string `env:"DATABASE_NAME" envDefault:"portal"`

	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"60s"`
	RunMigrations    bool          `env:"RUN_MIGRATIONS" envDefault:"true"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	HTTPAddr           string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SweepInterval      time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1h"`
	MaxSessionsPerUser int           `env:"MAX_SESSIONS_PER_USER" envDefault:"5"`
	CookieSecure       bool          `env:"COOKIE_SECURE" envDefault:"false"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	LoginRateLimit     float64  `env:"LOGIN_RATE_LIMIT" envDefault:"0.2"`
	LoginRateBurst     int      `env:"LOGIN_RATE_BURST" envDefault:"5"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// LoadDotEnv は.envファイルがあれば環境変数へ読み込みます。
// 既に設定されている環境変数は上書きしません。
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		slog.Info(".env not found; using system environment variables")
	}
}

// Load は環境変数から設定を読み込み、値を検証します。
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate は起動できない設定値を検出します。
func (c Config) Validate() error {
	var errs []error
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL))
	}
	if c.MaxSessionsPerUser < 1 {
		errs = append(errs, fmt.Errorf("MAX_SESSIONS_PER_USER must be at least 1, got %d", c.MaxSessionsPerUser))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive, got %s", c.SweepInterval))
	}
	if c.LoginRateLimit < 0 || c.LoginRateBurst < 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_BURST must not be negative"))
	}
	return errors.Join(errs...)
}
