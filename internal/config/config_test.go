package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears key for the duration of the test and restores it afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestFromEnvDefaults(t *testing.T) {
	unsetEnv(t, "DATABASE_URL", "POSTGRES_HOST", "POSTGRES_PORT", "DB_MAX_CONNS", "DB_MIN_CONNS", "LOG_LEVEL", "LOG_FORMAT")

	cfg := FromEnv()

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, int32(5), cfg.Database.MinConns)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://ledger@db:5432/ledger")
	t.Setenv("DB_MAX_CONNS", "8")
	t.Setenv("DB_MIN_CONNS", "2")
	t.Setenv("POSTGRES_PORT", "not-a-number")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := FromEnv()

	assert.Equal(t, "postgres://ledger@db:5432/ledger", cfg.Database.URL)
	assert.Equal(t, int32(8), cfg.Database.MaxConns)
	assert.Equal(t, int32(2), cfg.Database.MinConns)
	assert.Equal(t, 5432, cfg.Database.Port, "unparseable ints fall back to the default")
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{LogLevel: "info", Database: FromEnv().Database}
	}

	cfg := valid()
	cfg.Database.URL, cfg.Database.Host = "", ""
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")

	cfg = valid()
	cfg.Database.MaxConns = 0
	assert.ErrorContains(t, cfg.Validate(), "DB_MAX_CONNS")

	cfg = valid()
	cfg.Database.MinConns = cfg.Database.MaxConns + 1
	assert.ErrorContains(t, cfg.Validate(), "DB_MIN_CONNS")

	cfg = valid()
	cfg.LogLevel = "loud"
	assert.ErrorContains(t, cfg.Validate(), "log level")
}

func TestLoadEnvFile(t *testing.T) {
	unsetEnv(t, "DATABASE_URL", "LOG_LEVEL", "DB_MAX_CONNS", "DB_MIN_CONNS")

	path := filepath.Join(t.TempDir(), "ledger.env")
	content := "DATABASE_URL=postgres://file@localhost/ledger\nLOG_LEVEL=warn\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://file@localhost/ledger", cfg.Database.URL)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadMissingExplicitEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}

func TestLoadDefersValidation(t *testing.T) {
	unsetEnv(t, "DATABASE_URL")
	t.Setenv("LOG_LEVEL", "verbose")

	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "verbose", cfg.LogLevel)
	assert.Error(t, cfg.Validate())

	cfg.LogLevel = "info"
	assert.NoError(t, cfg.Validate())
}
