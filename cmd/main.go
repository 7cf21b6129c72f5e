package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ribslabs/ribs/internal/adapters/http/api"
	"github.com/ribslabs/ribs/internal/adapters/http/site"
	"github.com/ribslabs/ribs/internal/adapters/http/swagger"
	repository "github.com/ribslabs/ribs/internal/adapters/repository"
	app "github.com/ribslabs/ribs/internal/app"
	"github.com/ribslabs/ribs/internal/config"
	"github.com/ribslabs/ribs/pkg/logger"
	"github.com/ribslabs/ribs/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	samples, events, backend := buildStores(ctx, cfg, log)

	svc := app.New(
		app.WithLogger(log),
		app.WithThreshold(cfg.SlouchThreshold),
		app.WithStores(samples, events),
		app.WithSeriesWindow(time.Duration(cfg.SeriesWindowMinutes)*time.Minute),
		app.WithEventsLimit(cfg.EventsLimit),
		app.WithBackendName(backend),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc, api.WithAPIKey(cfg.APIKey))
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// buildStores selects the storage backend: MongoDB when credentials
// are configured and reachable, in-memory otherwise. Index creation
// failure is tolerated with a warning so restricted deployments still
// run.
func buildStores(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.SampleStore, repository.EventStore, string) {
	connect := repository.ConnectConfig{
		URI:      cfg.MongoURI,
		Username: cfg.MongoUsername,
		Password: cfg.MongoPassword,
		Host:     cfg.MongoHost,
		AppName:  cfg.MongoAppName,
		Database: cfg.MongoDB,
	}

	if !connect.HasCredentials() {
		log.Info(ctx, "no mongo credentials; using in-memory stores")
		return repository.NewMemorySampleStore(), repository.NewMemoryEventStore(), "memory"
	}

	db, err := repository.Connect(ctx, connect)
	if err != nil {
		log.Warn(ctx, "mongo unreachable; falling back to in-memory stores", logger.Error(err))
		return repository.NewMemorySampleStore(), repository.NewMemoryEventStore(), "memory"
	}

	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.Warn(ctx, "index creation failed; continuing without indexes", logger.Error(err))
	}
	log.Info(ctx, "connected to mongo", logger.String("database", cfg.MongoDB))
	return repository.NewMongoSampleStore(db), repository.NewMongoEventStore(db), "mongo"
}

// startSystemMetricsUpdater periodically refreshes system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater periodically refreshes store gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the store record gauges as a side
			// effect.
			_ = svc.GetStats()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
