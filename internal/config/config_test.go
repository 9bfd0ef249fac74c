package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 3, cfg.ConflictRetries)
	assert.Equal(t, 30*time.Second, cfg.DBStatementTimeout)
	assert.Equal(t, 5*time.Second, cfg.DBLockTimeout)
	assert.Equal(t, "available <= restock_level", cfg.RestockRule)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("STORAGE", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_PoolBounds(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("DB_MIN_CONNS", "8")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MIN_CONNS")
}

func TestLoad_DotEnvFile(t *testing.T) {
	t.Setenv("STORAGE", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LEDGER_CONFLICT_RETRIES", "")
	path := filepath.Join(t.TempDir(), ".env")
	content := "STORAGE=memory\nJWT_SECRET=from-file\nLEDGER_CONFLICT_RETRIES=5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// godotenv does not override variables that are already set, so clear them first.
	for _, key := range []string{"STORAGE", "JWT_SECRET", "LEDGER_CONFLICT_RETRIES", "DATABASE_URL"} {
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 5, cfg.ConflictRetries)

	for _, key := range []string{"STORAGE", "JWT_SECRET", "LEDGER_CONFLICT_RETRIES"} {
		_ = os.Unsetenv(key)
	}
}

func TestValidate_UnknownStorage(t *testing.T) {
	cfg := Config{Storage: "sqlite", JWTSecret: "x"}
	assert.Error(t, cfg.Validate())
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example ,,https://b.example ")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}
