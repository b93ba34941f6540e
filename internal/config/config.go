// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port            int           `yaml:"port" env:"HTTP_PORT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling" env:"LOG_SAMPLING"`
}

type QRCodeConfig struct {
	Width      int    `yaml:"width" env:"QRCODE_WIDTH"`
	Height     int    `yaml:"height" env:"QRCODE_HEIGHT"`
	Format     string `yaml:"format" env:"QRCODE_FORMAT"`           // PNG|GIF|BMP
	ErrorLevel string `yaml:"error_level" env:"QRCODE_ERROR_LEVEL"` // L|M|Q|H
}

type StoreConfig struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER"` // memory|sqlite|postgres|redis
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns" env:"DATABASE_MAX_CONNS"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"REDIS_URL"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB"`
	TTL      time.Duration `yaml:"ttl" env:"REDIS_TTL"` // image cache ttl
}

type AccountConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
	Role         string `yaml:"role"`          // ADMIN|RECEPTION|USER
}

type AuthConfig struct {
	JWTSecret    string          `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	CookieDomain string          `yaml:"cookie_domain" env:"AUTH_COOKIE_DOMAIN"`
	SecureCookie bool            `yaml:"secure_cookie" env:"AUTH_SECURE_COOKIE"`
	SessionTTL   time.Duration   `yaml:"session_ttl" env:"AUTH_SESSION_TTL"`
	Accounts     []AccountConfig `yaml:"accounts"`
}

type ReceptionConfig struct {
	// RateLimit is the max verify calls per staff member per RateWindow; 0 disables.
	RateLimit  int           `yaml:"rate_limit" env:"RECEPTION_RATE_LIMIT"`
	RateWindow time.Duration `yaml:"rate_window" env:"RECEPTION_RATE_WINDOW"`
}

type SchedulerConfig struct {
	PoolStatsInterval time.Duration `yaml:"pool_stats_interval" env:"SCHEDULER_POOL_STATS_INTERVAL"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http" envPrefix:"QRT_"`
	Log       LogConfig       `yaml:"log" envPrefix:"QRT_"`
	QRCode    QRCodeConfig    `yaml:"qrcode" envPrefix:"QRT_"`
	Store     StoreConfig     `yaml:"store" envPrefix:"QRT_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"QRT_"`
	SQLite    SQLiteConfig    `yaml:"sqlite" envPrefix:"QRT_"`
	Redis     RedisConfig     `yaml:"redis" envPrefix:"QRT_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"QRT_"`
	Reception ReceptionConfig `yaml:"reception" envPrefix:"QRT_"`
	Scheduler SchedulerConfig `yaml:"scheduler" envPrefix:"QRT_"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Load reads the YAML file at path (optional when it does not exist),
// applies QRT_* environment overrides, fills defaults and validates.
func Load(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// env-only deployment
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Runtime.Dev = dev
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 10 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.QRCode.Width <= 0 {
		cfg.QRCode.Width = 300
	}
	if cfg.QRCode.Height <= 0 {
		cfg.QRCode.Height = 300
	}
	cfg.QRCode.Format = strings.ToUpper(strings.TrimSpace(cfg.QRCode.Format))
	if cfg.QRCode.Format == "" {
		cfg.QRCode.Format = "PNG"
	}
	cfg.QRCode.ErrorLevel = strings.ToUpper(strings.TrimSpace(cfg.QRCode.ErrorLevel))
	if cfg.QRCode.ErrorLevel == "" {
		cfg.QRCode.ErrorLevel = "M"
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "tickets.db"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Auth.SessionTTL <= 0 {
		cfg.Auth.SessionTTL = 8 * time.Hour
	}
	if cfg.Reception.RateWindow <= 0 {
		cfg.Reception.RateWindow = time.Minute
	}
	if cfg.Scheduler.PoolStatsInterval <= 0 {
		cfg.Scheduler.PoolStatsInterval = 15 * time.Second
	}
}

// maxQRSide matches barcode.MaxSide.
const maxQRSide = 4096

func (cfg *Config) validate() error {
	switch cfg.Store.Driver {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			return errors.New("sqlite.path is required")
		}
	case "postgres":
		if cfg.Database.URL == "" {
			return errors.New("database.url is required")
		}
	case "redis":
		if cfg.Redis.URL == "" {
			return errors.New("redis.url is required")
		}
	default:
		return fmt.Errorf("store.driver %q is not supported", cfg.Store.Driver)
	}
	switch cfg.QRCode.ErrorLevel {
	case "L", "M", "Q", "H":
	default:
		return fmt.Errorf("qrcode.error_level %q is not supported", cfg.QRCode.ErrorLevel)
	}
	if cfg.QRCode.Width > maxQRSide || cfg.QRCode.Height > maxQRSide {
		return fmt.Errorf("qrcode size %dx%d exceeds %d pixels per side", cfg.QRCode.Width, cfg.QRCode.Height, maxQRSide)
	}
	switch cfg.QRCode.Format {
	case "PNG", "GIF", "BMP":
	default:
		return fmt.Errorf("qrcode.format %q is not supported", cfg.QRCode.Format)
	}
	if cfg.Auth.JWTSecret == "" && !cfg.Runtime.Dev {
		return errors.New("auth.jwt_secret is required")
	}
	seen := make(map[string]bool, len(cfg.Auth.Accounts))
	for i, a := range cfg.Auth.Accounts {
		if a.Username == "" || a.PasswordHash == "" {
			return fmt.Errorf("auth.accounts[%d]: username and password_hash are required", i)
		}
		if seen[a.Username] {
			return fmt.Errorf("auth.accounts[%d]: duplicate username %q", i, a.Username)
		}
		seen[a.Username] = true
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
