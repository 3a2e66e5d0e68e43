package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credhandler "credhub/internal/credential/handler"
	credservice "credhub/internal/credential/service"
	credstore "credhub/internal/credential/store"
	"credhub/internal/ledger"
	"credhub/internal/platform/health"
	"credhub/internal/platform/metrics"
)

type panicRoute struct{}

func (panicRoute) Register(r chi.Router) {
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })
}

func newTestRouter(t *testing.T, debug bool) (http.Handler, *metrics.Metrics) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)
	svc := credservice.NewService(credstore.NewInMemoryStore(), credservice.WithLedger(ledger.NewLocal()), credservice.WithLogger(logger))

	router := NewRouter(logger, Options{
		CORSOrigins:    []string{"http://localhost:3000"},
		MaxBodyBytes:   256,
		DebugEndpoints: debug,
		Latency:        m,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, credhandler.New(svc, logger), health.New("test"), panicRoute{})
	return router, m
}

func TestRouter_HealthAndRequestID(t *testing.T) {
	router, _ := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestRouter_DebugEndpointsGated(t *testing.T) {
	off, _ := newTestRouter(t, false)
	rr := httptest.NewRecorder()
	off.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/credentials", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	on, _ := newTestRouter(t, true)
	rr = httptest.NewRecorder()
	on.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/credentials", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/issue", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/issue", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_BodyLimit(t *testing.T) {
	router, _ := newTestRouter(t, false)

	body := `{"subject":"` + strings.Repeat("a", 512) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/issue", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestRouter_RejectsNonJSONContentType(t *testing.T) {
	router, _ := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodPost, "/revoke", strings.NewReader("credentialId=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestRouter_RecoversPanics(t *testing.T) {
	router, _ := newTestRouter(t, false)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRouter_MetricsAndLatency(t *testing.T) {
	router, m := newTestRouter(t, false)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/templates", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, 1, testutil.CollectAndCount(m.EndpointLatency))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "credhub_endpoint_latency_seconds")
}
