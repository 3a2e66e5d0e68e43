package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"credhub/pkg/platform/middleware/request"
	"credhub/pkg/platform/middleware/requesttime"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// DebugRegistrar mounts routes that are only exposed when debug endpoints are on.
type DebugRegistrar interface {
	RegisterDebug(r chi.Router)
}

// Options tunes the middleware stack.
type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	DebugEndpoints bool

	// Latency receives per-route timings; nil disables them.
	Latency request.LatencyObserver

	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
}

// NewRouter wires all public endpoints with middleware. Handlers stay thin
// and delegate to services.
func NewRouter(logger *slog.Logger, opts Options, routes ...Registrar) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(request.Latency(opts.Latency))
	r.Use(request.Timeout(opts.RequestTimeout))
	r.Use(request.BodyLimit(opts.MaxBodyBytes))
	r.Use(request.ContentTypeJSON)

	for _, route := range routes {
		route.Register(r)
		if debug, ok := route.(DebugRegistrar); ok && opts.DebugEndpoints {
			debug.RegisterDebug(r)
		}
	}

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	return r
}
