package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	clearEnv(t, "PORT", "CORS_ORIGIN", "MAX_TOKENS", "OPENROUTER_MODEL", "AGENTSERVER_MAX_ROUNDS", "AGENTSERVER_DB_PATH", "LOG_LEVEL")

	cfg := Load()

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultCORSOrigin, cfg.CORSOrigin)
	assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
	assert.Equal(t, DefaultModel, cfg.OpenRouterModel)
	assert.Equal(t, DefaultMaxRounds, cfg.MaxRounds)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t, "PORT", "MAX_TOKENS", "AGENTSERVER_MAX_ROUNDS")
	os.Setenv("PORT", "9090")
	os.Setenv("MAX_TOKENS", "8192")
	os.Setenv("AGENTSERVER_MAX_ROUNDS", "5")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 8192, cfg.MaxTokens)
	assert.Equal(t, 5, cfg.MaxRounds)
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	clearEnv(t, "PORT")
	os.Setenv("PORT", "not-a-number")

	cfg := Load()

	assert.Equal(t, DefaultPort, cfg.Port)
}
