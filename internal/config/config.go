package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/ini.v1"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	Session  SessionConfig
	Cookie   CookieConfig
	Storage  StorageConfig
	Claims   ClaimsConfig
	Sweep    SweepConfig
	Seed     SeedConfig

	allowedOrigins string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // mysql or postgres
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds session token configuration
type JWTConfig struct {
	Secret   string
	TTLHours int
}

// SessionConfig holds session store configuration
type SessionConfig struct {
	IdleMinutes int
	RedisURL    string // empty selects the in-process store
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Name     string
	Secure   bool
	SameSite string
}

// StorageConfig holds document storage configuration
type StorageConfig struct {
	DocumentDir string
	MaxUploadMB int
}

// ClaimsConfig holds claim business rules
type ClaimsConfig struct {
	MaxMonthlyHours decimal.Decimal
}

// SweepConfig holds the orphaned document sweep schedule
type SweepConfig struct {
	Cron       string
	Remove     bool
	GraceHours int
}

// SeedConfig holds the default HR account
type SeedConfig struct {
	HREmail    string
	HRPassword string
}

// source resolves a value with priority ENV > INI > default
type source struct {
	file *ini.File
}

func (s source) get(envKey, section, key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(envKey)); value != "" {
		return value
	}
	if s.file != nil {
		if value := s.file.Section(section).Key(key).String(); value != "" {
			return value
		}
	}
	return defaultValue
}

func (s source) getInt(envKey, section, key string, defaultValue int) int {
	if value, err := strconv.Atoi(s.get(envKey, section, key, "")); err == nil {
		return value
	}
	return defaultValue
}

func (s source) getBool(envKey, section, key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(s.get(envKey, section, key, "")); err == nil {
		return value
	}
	return defaultValue
}

// Load reads configuration from .env, the optional INI file named by
// CONFIG_FILE and environment variables
func Load() (*Config, error) {
	// .env is optional outside development
	_ = godotenv.Load()

	var src source
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		src.file = file
	}

	return load(src)
}

func load(src source) (*Config, error) {
	appMode := src.get("APP_MODE", "app", "mode", "dev")
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	driver := src.get("DB_DRIVER", "database", "driver", "mysql")
	if driver != "mysql" && driver != "postgres" {
		return nil, fmt.Errorf("invalid DB_DRIVER: '%s' (must be 'mysql' or 'postgres')", driver)
	}
	defaultPort := "3306"
	if driver == "postgres" {
		defaultPort = "5432"
	}

	maxHours, err := decimal.NewFromString(src.get("CLAIM_MAX_MONTHLY_HOURS", "claims", "max_monthly_hours", "180"))
	if err != nil || !maxHours.IsPositive() {
		return nil, fmt.Errorf("invalid CLAIM_MAX_MONTHLY_HOURS: must be a positive number")
	}

	cfg := &Config{
		AppMode: appMode,
		Port:    src.get("PORT", "app", "port", "3000"),
		Database: DatabaseConfig{
			Driver:   driver,
			Host:     src.get("DB_HOST", "database", "host", "localhost"),
			Port:     src.get("DB_PORT", "database", "port", defaultPort),
			User:     src.get("DB_USER", "database", "user", "root"),
			Password: src.get("DB_PASS", "database", "password", ""),
			DBName:   src.get("DB_NAME", "database", "name", "cmcs"),
			SSLMode:  src.get("DB_SSLMODE", "database", "sslmode", "disable"),
		},
		JWT: JWTConfig{
			Secret:   src.get("JWT_SECRET", "jwt", "secret", ""),
			TTLHours: src.getInt("JWT_TTL_HOURS", "jwt", "ttl_hours", 12),
		},
		Session: SessionConfig{
			IdleMinutes: src.getInt("SESSION_IDLE_MINUTES", "session", "idle_minutes", 30),
			RedisURL:    src.get("REDIS_URL", "session", "redis_url", ""),
		},
		Cookie: CookieConfig{
			Name:     src.get("SESSION_COOKIE", "session", "cookie", "cmcs_session"),
			Secure:   src.getBool("COOKIE_SECURE", "session", "cookie_secure", appMode == "prod"),
			SameSite: src.get("COOKIE_SAMESITE", "session", "cookie_samesite", "Lax"),
		},
		Storage: StorageConfig{
			DocumentDir: src.get("DOCUMENT_DIR", "storage", "document_dir", "./uploads"),
			MaxUploadMB: src.getInt("MAX_UPLOAD_MB", "storage", "max_upload_mb", 10),
		},
		Claims: ClaimsConfig{
			MaxMonthlyHours: maxHours,
		},
		Sweep: SweepConfig{
			Cron:       src.get("DOCUMENT_SWEEP_CRON", "sweep", "cron", "30 2 * * *"),
			Remove:     src.getBool("DOCUMENT_SWEEP_REMOVE", "sweep", "remove", false),
			GraceHours: src.getInt("DOCUMENT_SWEEP_GRACE_HOURS", "sweep", "grace_hours", 24),
		},
		Seed: SeedConfig{
			HREmail:    src.get("SEED_HR_EMAIL", "seed", "hr_email", "hr@cmcs.local"),
			HRPassword: src.get("SEED_HR_PASSWORD", "seed", "hr_password", ""),
		},
		allowedOrigins: src.get("ALLOWED_ORIGINS", "app", "allowed_origins", ""),
	}

	if cfg.JWT.Secret == "" {
		if cfg.IsProd() {
			return nil, fmt.Errorf("JWT_SECRET is required in prod mode")
		}
		cfg.JWT.Secret = "dev_only_secret_change_me"
	}
	if cfg.Session.IdleMinutes < 1 {
		return nil, fmt.Errorf("invalid SESSION_IDLE_MINUTES: must be at least 1")
	}

	return cfg, nil
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// SessionIdleTTL is the sliding idle timeout of a session
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.Session.IdleMinutes) * time.Minute
}

// TokenTTL is the absolute lifetime of a session token
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.TTLHours) * time.Hour
}

// MaxUploadBytes is the largest accepted document
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Storage.MaxUploadMB) * 1024 * 1024
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	if c.allowedOrigins == "" {
		if c.IsDev() {
			return "*"
		}
		return "http://localhost:3000"
	}
	return c.allowedOrigins
}
