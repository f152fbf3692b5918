package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "7")
	t.Setenv("TEST_BAD_INT", "seven")
	t.Setenv("TEST_DURATION", "250ms")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_BLANK", "   ")

	assert.Equal(t, 7, GetEnvInt("TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("TEST_BAD_INT", 1))
	assert.Equal(t, 3, GetEnvInt("TEST_MISSING", 3))
	assert.Equal(t, 250*time.Millisecond, GetEnvDuration("TEST_DURATION", time.Second))
	assert.True(t, GetEnvBool("TEST_BOOL", false))
	assert.Equal(t, "fallback", GetEnvDefault("TEST_BLANK", "fallback"))
}

func TestLoadWorkflowConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := LoadWorkflowConfig()
		assert.Equal(t, DefaultWorkflowConfig(), cfg)
	})

	t.Run("overrides and clamps", func(t *testing.T) {
		t.Setenv("WORKFLOW_MAX_APPROVERS", "4")
		t.Setenv("WORKFLOW_RETRY_ATTEMPTS", "0")
		t.Setenv("WORKFLOW_GUARD", "etcd")
		t.Setenv("WORKFLOW_LOCK_TTL", "5s")

		cfg := LoadWorkflowConfig()
		assert.Equal(t, 4, cfg.MaxApprovers)
		assert.Equal(t, 1, cfg.RetryAttempts)
		assert.Equal(t, GuardBackendLocal, cfg.GuardBackend)
		assert.Equal(t, 5*time.Second, cfg.LockTTL)
	})
}

func TestLoadEnvMissingFileIsIgnored(t *testing.T) {
	require.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadEnvReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("WORKFLOW_TEST_FROM_FILE=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("WORKFLOW_TEST_FROM_FILE") })

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "loaded", GetEnv("WORKFLOW_TEST_FROM_FILE"))
}

func TestBootstrapAppliesLogLevelFromEnvFile(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(".env", []byte("LOG_LEVEL=debug\n"), 0o600))

	t.Setenv("LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))
	previous := Logger
	t.Cleanup(func() { Logger = previous })

	require.NoError(t, Bootstrap(".env"))
	require.NotNil(t, Logger)
	assert.True(t, Logger.Core().Enabled(zapcore.DebugLevel))
}
