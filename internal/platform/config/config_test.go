package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"CREDHUB_ADDR", "CREDHUB_DATA_DIR", "CORS_ORIGINS", "LEDGER_URL", "LEDGER_TIMEOUT", "DEBUG_ENDPOINTS"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":3001", cfg.Addr)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.CORSOrigins)
	assert.Equal(t, 3*time.Second, cfg.LedgerTimeout)
	assert.Empty(t, cfg.LedgerURL)
	assert.False(t, cfg.DebugEndpoints)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CREDHUB_ADDR", "127.0.0.1:9000")
	t.Setenv("LEDGER_URL", "http://ledger.local:8545/")
	t.Setenv("LEDGER_TIMEOUT", "750ms")
	t.Setenv("CORS_ORIGINS", " https://app.example , ,https://admin.example")
	t.Setenv("DEBUG_ENDPOINTS", "true")

	cfg := FromEnv()

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "http://ledger.local:8545", cfg.LedgerURL)
	assert.Equal(t, 750*time.Millisecond, cfg.LedgerTimeout)
	assert.Equal(t, []string{"https://app.example", "https://admin.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.DebugEndpoints)
}

func TestFromEnvRejectsBadDuration(t *testing.T) {
	t.Setenv("LEDGER_TIMEOUT", "soon")
	assert.Equal(t, 3*time.Second, FromEnv().LedgerTimeout)

	t.Setenv("LEDGER_TIMEOUT", "-1s")
	assert.Equal(t, 3*time.Second, FromEnv().LedgerTimeout)
}
