package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, 100*time.Millisecond, cfg.MinActionInterval)
	assert.Positive(t, cfg.DBMaxOpenConns)
	assert.LessOrEqual(t, cfg.DBMaxOpenConns, 4)
	assert.False(t, cfg.DemoMode())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EXO_STORE", "redis")
	t.Setenv("EXO_DEMO", "true")
	t.Setenv("EXO_CORS_ORIGINS", "https://exo.example")
	t.Setenv("EXO_WS_MIN_ACTION_INTERVAL", "1s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.True(t, cfg.DemoMode())
	assert.Equal(t, []string{"https://exo.example"}, cfg.CORSOrigins)
	assert.Equal(t, time.Second, cfg.MinActionInterval)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string][2]string{
		"bad duration": {"EXO_LLM_TIMEOUT", "soon"},
		"bad store":    {"EXO_STORE", "postgres"},
		"bad provider": {"EXO_LLM_PROVIDER", "eliza"},
		"zero buffer":  {"EXO_WS_SEND_BUFFER", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
