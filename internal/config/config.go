// Package config loads server configuration from the process
// environment. There is no config file layer: every recognized option
// is an environment variable with a documented default.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config is the resolved set of options the server runs with.
type Config struct {
	Port       int
	CORSOrigin string
	ProjectRoot string

	MaxTokens int

	OpenRouterAPIKey string
	OpenRouterModel  string
	AnthropicAPIKey  string

	MaxRounds int
	DBPath    string

	LogLevel string
}

const (
	DefaultPort       = 3001
	DefaultCORSOrigin = "http://localhost:5173"
	DefaultMaxTokens  = 4096
	DefaultModel      = "anthropic/claude-sonnet-4"
	DefaultMaxRounds  = 20
	DefaultDBPath     = "agentserver.db"
	DefaultLogLevel   = "info"
)

// Load resolves a Config from the environment, applying the defaults
// documented in the external-interfaces surface.
func Load() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	return &Config{
		Port:             getEnvInt("PORT", DefaultPort),
		CORSOrigin:       getEnv("CORS_ORIGIN", DefaultCORSOrigin),
		ProjectRoot:      getEnv("PROJECT_ROOT", filepath.Dir(cwd)),
		MaxTokens:        getEnvInt("MAX_TOKENS", DefaultMaxTokens),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:  getEnv("OPENROUTER_MODEL", DefaultModel),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		MaxRounds:        getEnvInt("AGENTSERVER_MAX_ROUNDS", DefaultMaxRounds),
		DBPath:           getEnv("AGENTSERVER_DB_PATH", DefaultDBPath),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
