package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	credhandler "credhub/internal/credential/handler"
	credmodels "credhub/internal/credential/models"
	credservice "credhub/internal/credential/service"
	credstore "credhub/internal/credential/store"
	"credhub/internal/ledger"
	"credhub/internal/platform/config"
	"credhub/internal/platform/health"
	"credhub/internal/platform/httpserver"
	"credhub/internal/platform/logger"
	"credhub/internal/platform/metrics"
	"credhub/internal/platform/tracer"
	"credhub/internal/stats"
	httptransport "credhub/internal/transport/http"
	vhandler "credhub/internal/verification/handler"
	vservice "credhub/internal/verification/service"
	vstore "credhub/internal/verification/store"
	"credhub/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	log.Info("initializing credential hub",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir,
		"ledger", ledgerMode(cfg),
	)

	if err := credmodels.ValidateCatalog(); err != nil {
		log.Error("invalid credential catalog", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		log.Error("failed to create data directory", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}

	credentials := credstore.NewFileStore(cfg.DataDir)
	history := vstore.NewFileStore(cfg.DataDir)
	if err := loadStores(context.Background(), log, credentials, history); err != nil {
		log.Error("failed to load persisted state", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	tr := tracer.NewOTel()
	l := buildLedger(cfg, log)

	credService := credservice.NewService(credentials,
		credservice.WithLedger(l),
		credservice.WithLedgerTimeout(cfg.LedgerTimeout),
		credservice.WithMetrics(m),
		credservice.WithTracer(tr),
		credservice.WithLogger(log),
	)
	verifyService := vservice.NewService(history, credService, l,
		vservice.WithLedgerTimeout(cfg.LedgerTimeout),
		vservice.WithMetrics(m),
		vservice.WithTracer(tr),
		vservice.WithLogger(log),
	)
	statsService := stats.NewService(credService, history)

	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("data_dir", health.DirWritable(cfg.DataDir))

	router := httptransport.NewRouter(log, httptransport.Options{
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		DebugEndpoints: cfg.DebugEndpoints,
		Latency:        m,
		Metrics:        promhttp.Handler(),
	},
		healthHandler,
		credhandler.New(credService, log),
		vhandler.New(verifyService, log),
		stats.NewHandler(statsService, log),
	)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr, "debug_endpoints", cfg.DebugEndpoints)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT or SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// loadStores reads both persisted collections in parallel. A corrupt file
// aborts startup rather than silently starting empty.
func loadStores(ctx context.Context, log *slog.Logger, credentials *credstore.FileStore, history *vstore.FileStore) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := credentials.Load(gctx)
		if err != nil {
			return err
		}
		log.Info("loaded credentials", "count", n, "path", credentials.Path())
		return nil
	})
	g.Go(func() error {
		n, err := history.Load(gctx)
		if err != nil {
			return err
		}
		log.Info("loaded verification history", "count", n, "path", history.Path())
		return nil
	})
	return g.Wait()
}

func buildLedger(cfg config.Server, log *slog.Logger) ledger.Ledger {
	if cfg.LedgerURL == "" {
		return ledger.NewLocal()
	}
	client := ledger.NewHTTPClient(ledger.HTTPConfig{
		BaseURL: cfg.LedgerURL,
		APIKey:  cfg.LedgerAPIKey,
		Timeout: cfg.LedgerTimeout,
	})
	return ledger.NewGuarded(client, circuit.New("ledger"), log)
}

func ledgerMode(cfg config.Server) string {
	if cfg.LedgerURL == "" {
		return "local"
	}
	return "http"
}
