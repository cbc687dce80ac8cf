package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, 2.0, cfg.RateLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("FASKESQ_DATA_DIR", "/tmp/test-faskesq")
	t.Setenv("FASKESQ_CACHE_MAX_ITEMS", "500")
	t.Setenv("FASKESQ_CACHE_TTL", "12h")
	t.Setenv("FASKESQ_LLM_PROVIDER", "anthropic")
	t.Setenv("FASKESQ_LLM_RATE_LIMIT", "0.5")
	t.Setenv("FASKESQ_LOG_LEVEL", "debug")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-faskesq", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, 0.5, cfg.RateLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "test-key", cfg.AnthropicAPIKey)
}

func TestLoadLiteConfig_IgnoresInvalidNumbers(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("FASKESQ_CACHE_MAX_ITEMS", "-3")
	t.Setenv("FASKESQ_CACHE_TTL", "soon")
	t.Setenv("FASKESQ_LLM_RATE_LIMIT", "fast")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 2.0, cfg.RateLimit)
}

func TestLiteConfig_FeedbackDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.faskesq"}

	assert.Equal(t, "/home/user/.faskesq/feedback.db", cfg.FeedbackDBPath())
}

func TestLiteConfig_ExportDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.faskesq"}

	assert.Equal(t, "/home/user/.faskesq/exports", cfg.ExportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &LiteConfig{DataDir: filepath.Join(tmpDir, "faskesq")}

	require.NoError(t, cfg.EnsureDataDir())

	_, err := os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"FASKESQ_DATA_DIR",
		"FASKESQ_CACHE_MAX_ITEMS",
		"FASKESQ_CACHE_TTL",
		"FASKESQ_LLM_PROVIDER",
		"FASKESQ_LLM_MODEL",
		"FASKESQ_LLM_RATE_LIMIT",
		"FASKESQ_LOG_LEVEL",
		"FASKESQ_LOG_FORMAT",
		"GEMINI_API_KEY",
		"ANTHROPIC_API_KEY",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}
