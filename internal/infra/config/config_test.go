package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, BackendLlamaCLI, cfg.GeneratorBackend)
	assert.Equal(t, 4096, cfg.CtxSize)
	assert.Equal(t, 4.0, cfg.CharsPerToken)
	assert.Nil(t, cfg.MinScore)
	assert.True(t, cfg.Dedupe)
	assert.True(t, cfg.ShortCircuit)
	assert.Equal(t, 60.0, cfg.RRFK)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GENERATOR_BACKEND", BackendOllama)
	t.Setenv("PIPELINE_CTX_SIZE", "8192")
	t.Setenv("PIPELINE_CHARS_PER_TOKEN", "3.5")
	t.Setenv("PIPELINE_MIN_SCORE", "0.25")
	t.Setenv("PIPELINE_DEDUPE", "false")
	t.Setenv("RATE_LIMIT_PER_SEC", "5")

	cfg := Load()

	assert.Equal(t, BackendOllama, cfg.GeneratorBackend)
	assert.Equal(t, 8192, cfg.CtxSize)
	assert.Equal(t, 3.5, cfg.CharsPerToken)
	require.NotNil(t, cfg.MinScore)
	assert.Equal(t, 0.25, *cfg.MinScore)
	assert.False(t, cfg.Dedupe)
	assert.Equal(t, 5.0, cfg.RateLimitPerSec)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PIPELINE_CTX_SIZE", "not-a-number")
	t.Setenv("PIPELINE_MIN_SCORE", "also-not")

	cfg := Load()

	assert.Equal(t, 4096, cfg.CtxSize)
	assert.Nil(t, cfg.MinScore)
}

func TestGetSecret_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("  s3cret\n"), 0o600))
	t.Setenv("DB_PASSWORD_FILE", path)

	cfg := Load()
	assert.Equal(t, "s3cret", cfg.DBPassword)
}

func TestGetSecret_DirectEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file"), 0o600))
	t.Setenv("DB_PASSWORD_FILE", path)
	t.Setenv("DB_PASSWORD", "from-env")

	cfg := Load()
	assert.Equal(t, "from-env", cfg.DBPassword)
}

func TestDSN(t *testing.T) {
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_PASSWORD", "p")
	t.Setenv("DB_HOST", "h")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "d")

	cfg := Load()
	assert.Equal(t, "postgres://u:p@h:5433/d", cfg.DSN())
}
