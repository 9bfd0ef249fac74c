// Package config loads service configuration from the environment.
// An optional .env file is read first; real environment variables win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all runtime settings.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	Storage            string
	DatabaseURL        string
	DBMaxConns         int32
	DBMinConns         int32
	DBStatementTimeout time.Duration
	DBLockTimeout      time.Duration

	JWTSecret string
	JWTIssuer string

	// CORSOrigins lists allowed browser origins. Empty allows any origin outside production.
	CORSOrigins []string

	// ConflictRetries bounds how often a ledger operation is retried after a concurrent modification.
	ConflictRetries int

	// RestockRule is a CEL expression over available, restock_level, category and name.
	RestockRule string

	// LowStockSchedule is the cron expression of the worker's low-stock report.
	LowStockSchedule string

	// AuditCompressThreshold is the payload size in bytes above which audit changes are zstd-compressed.
	AuditCompressThreshold int
}

// IsDevelopment reports whether the service runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads .env files (when present) and the environment.
func Load(files ...string) (Config, error) {
	// Missing .env is fine, variables may come from the process environment.
	_ = godotenv.Load(files...)

	cfg := Config{
		Env:                    getEnv("APP_ENV", "development"),
		Port:                   getEnv("APP_PORT", "8080"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		Storage:                strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		DBMaxConns:             int32(getEnvInt("DB_MAX_CONNS", 25)),
		DBMinConns:             int32(getEnvInt("DB_MIN_CONNS", 2)),
		DBStatementTimeout:     getEnvDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),
		DBLockTimeout:          getEnvDuration("DB_LOCK_TIMEOUT", 5*time.Second),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		JWTIssuer:              getEnv("JWT_ISSUER", "serviceshop"),
		CORSOrigins:            getEnvList("CORS_ALLOWED_ORIGINS"),
		ConflictRetries:        getEnvInt("LEDGER_CONFLICT_RETRIES", 3),
		RestockRule:            getEnv("RESTOCK_RULE", "available <= restock_level"),
		LowStockSchedule:       getEnv("LOW_STOCK_SCHEDULE", "@every 1h"),
		AuditCompressThreshold: getEnvInt("AUDIT_COMPRESS_THRESHOLD", 10*1024),
	}

	return cfg, cfg.Validate()
}

// Validate checks required settings.
func (c Config) Validate() error {
	var missing []string
	if c.Storage != StoragePostgres && c.Storage != StorageMemory {
		return fmt.Errorf("unknown STORAGE %q (want %s or %s)", c.Storage, StoragePostgres, StorageMemory)
	}
	if c.Storage == StoragePostgres && c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.ConflictRetries < 0 {
		return fmt.Errorf("LEDGER_CONFLICT_RETRIES must be >= 0")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
