package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr           string
	Environment    string
	LogLevel       string
	DataDir        string
	CORSOrigins    []string
	DebugEndpoints bool

	// LedgerURL selects the HTTP ledger client; empty keeps the in-process ledger.
	LedgerURL     string
	LedgerAPIKey  string
	LedgerTimeout time.Duration

	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

const (
	defaultAddr          = ":3001"
	defaultDataDir       = "data"
	defaultCORSOrigins   = "http://localhost:3000,http://localhost:3001"
	defaultLedgerTimeout = 3 * time.Second
)

// FromEnv builds a Server config from environment variables so main stays lean.
// Unparseable durations fall back to their defaults.
func FromEnv() Server {
	return Server{
		Addr:           envOr("CREDHUB_ADDR", defaultAddr),
		Environment:    envOr("ENVIRONMENT", "development"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		DataDir:        envOr("CREDHUB_DATA_DIR", defaultDataDir),
		CORSOrigins:    splitList(envOr("CORS_ORIGINS", defaultCORSOrigins)),
		DebugEndpoints: os.Getenv("DEBUG_ENDPOINTS") == "true",
		LedgerURL:      strings.TrimRight(os.Getenv("LEDGER_URL"), "/"),
		LedgerAPIKey:   os.Getenv("LEDGER_API_KEY"),
		LedgerTimeout:  durationOr("LEDGER_TIMEOUT", defaultLedgerTimeout),
		RequestTimeout: durationOr("REQUEST_TIMEOUT", 30*time.Second),
		MaxBodyBytes:   1 << 20,
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
