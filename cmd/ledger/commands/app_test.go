package commands

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setFlags sets the global flag values for one test and restores them afterwards.
func setFlags(t *testing.T, db, env, level, format string, debug bool) {
	t.Helper()
	oldDB, oldEnv, oldLevel, oldFormat, oldVerbose := dbURL, envFile, logLevel, logFormat, verbose
	t.Cleanup(func() {
		dbURL, envFile, logLevel, logFormat, verbose = oldDB, oldEnv, oldLevel, oldFormat, oldVerbose
	})
	dbURL, envFile, logLevel, logFormat, verbose = db, env, level, format, debug
}

func TestLoadConfigFlagsOverrideInvalidEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	setFlags(t, "", "", "", "", false)
	_, err := loadConfig()
	assert.ErrorContains(t, err, "not a valid log level")

	setFlags(t, "postgres://cli@localhost/ledger", "", "info", "console", false)
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "postgres://cli@localhost/ledger", cfg.Database.URL)

	setFlags(t, "", "", "warn", "", true)
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "verbose wins over --log-level")
}
