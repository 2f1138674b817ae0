// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds every tunable of the server.
type Config struct {
	Addr    string `env:"EXO_ADDR" envDefault:":8080"`
	LogMode string `env:"EXO_LOG_MODE" envDefault:"development"`

	// Browser origins allowed to call the API. Empty disables CORS handling.
	CORSOrigins []string `env:"EXO_CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`

	// Persistence
	StoreBackend string `env:"EXO_STORE" envDefault:"sqlite"`
	DBPath       string `env:"EXO_DB_PATH" envDefault:"data/exoplanet.db"`
	RedisAddr    string `env:"EXO_REDIS_ADDR" envDefault:"localhost:6379"`
	SessionID    string `env:"EXO_SESSION_ID" envDefault:"default"`

	// Prediction backend. Demo, or an empty BackendURL, switches uploads to
	// local demo analysis.
	BackendURL string `env:"EXO_BACKEND_URL" envDefault:"http://127.0.0.1:8000"`
	Demo       bool   `env:"EXO_DEMO"`

	// Narrative LLM: groq, openai or anthropic. Empty base URL means the provider default.
	LLMProvider      string        `env:"EXO_LLM_PROVIDER" envDefault:"groq"`
	LLMAPIKey        string        `env:"EXO_LLM_API_KEY"`
	LLMBaseURL       string        `env:"EXO_LLM_BASE_URL"`
	LLMModel         string        `env:"EXO_LLM_MODEL"`
	LLMTimeout       time.Duration `env:"EXO_LLM_TIMEOUT" envDefault:"60s"`
	LLMDailyBudget   float64       `env:"EXO_LLM_DAILY_BUDGET_USD" envDefault:"1"`
	LLMMonthlyBudget float64       `env:"EXO_LLM_MONTHLY_BUDGET_USD" envDefault:"10"`

	// Realtime tuning
	ClientSendBuffer  int           `env:"EXO_WS_SEND_BUFFER" envDefault:"64"`
	BroadcastBuffer   int           `env:"EXO_WS_BROADCAST_BUFFER" envDefault:"256"`
	MinActionInterval time.Duration `env:"EXO_WS_MIN_ACTION_INTERVAL" envDefault:"100ms"`
	EventPollInterval time.Duration `env:"EXO_EVENT_POLL_INTERVAL" envDefault:"200ms"`
	DBMaxOpenConns    int           `env:"EXO_DB_MAX_OPEN_CONNS"`
	MaxUploadBytes    int64         `env:"EXO_MAX_UPLOAD_BYTES" envDefault:"33554432"`
}

// Load parses the environment into a Config and fills derived defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBMaxOpenConns <= 0 {
		// SQLite serializes writers; a few readers are plenty.
		cfg.DBMaxOpenConns = min(runtime.NumCPU(), 4)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown store backend %q (want %s or %s)", c.StoreBackend, StoreSQLite, StoreRedis)
	}
	switch c.LLMProvider {
	case "groq", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
	if c.SessionID == "" {
		return fmt.Errorf("session id must not be empty")
	}
	if c.ClientSendBuffer <= 0 || c.BroadcastBuffer <= 0 {
		return fmt.Errorf("websocket buffers must be positive")
	}
	return nil
}

// DemoMode reports whether uploads are analysed locally instead of by the backend.
func (c *Config) DemoMode() bool {
	return c.Demo || c.BackendURL == ""
}
