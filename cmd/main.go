package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/poirisk/internal/adapters/http/api"
	"github.com/okian/poirisk/internal/adapters/http/site"
	"github.com/okian/poirisk/internal/adapters/http/swagger"
	app "github.com/okian/poirisk/internal/app"
	"github.com/okian/poirisk/internal/config"
	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/internal/domain/types"
	"github.com/okian/poirisk/internal/domain/view"
	"github.com/okian/poirisk/pkg/logger"
	"github.com/okian/poirisk/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging with defaults until the config is known
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := configureLogging(cfg); err != nil {
		os.Stderr.WriteString("failed to configure logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	loggerInstance := logger.Get()

	svc, err := newService(cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "invalid service configuration", logger.Error(err))
		os.Exit(1)
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service",
			logger.Error(err),
			logger.Any("values", goerr.Values(err)))
		os.Exit(1)
	}
	defer svc.Stop()

	// Prerender the view caches in the background
	if cfg.WarmWorkers > 0 {
		go func() {
			if _, err := svc.Warm(ctx, cfg.WarmWorkers); err != nil {
				loggerInstance.Warn(ctx, "cache warm-up incomplete", logger.Error(err))
			}
		}()
	}

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// configureLogging applies the configured format and level.
func configureLogging(cfg *config.Config) error {
	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		return err
	}
	// Level first: the console handler captures it at Init.
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	return logger.Init(logger.WithFormat(format))
}

// newService maps the configuration onto service options.
func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	categoryWeekday, err := types.ParseWeekday(cfg.CategoryWeekday)
	if err != nil {
		return nil, err
	}
	defaultWeekday, err := types.ParseWeekday(cfg.DefaultWeekday)
	if err != nil {
		return nil, err
	}

	return app.New(
		app.WithLogger(log),
		app.WithRiskPath(cfg.RiskCSV),
		app.WithPOIPath(cfg.POICSV),
		app.WithJoinKey(cfg.JoinKey),
		app.WithCategoryWeekday(categoryWeekday),
		app.WithDefaultSelection(model.Selection{Weekday: defaultWeekday, Category: cfg.DefaultCategory}),
		app.WithMapSettings(view.MapSettings{
			Center:      view.Center{Lat: cfg.MapCenterLat, Lon: cfg.MapCenterLon},
			Zoom:        cfg.MapZoom,
			Style:       cfg.MapStyle,
			AccessToken: cfg.MapboxToken,
			MarkerSize:  view.DefaultMarkerSize,
			Scale:       view.Plasma,
		}),
		app.WithHistogramBins(cfg.HistogramBins),
		app.WithCacheSize(cfg.ViewCacheSize),
		app.WithChartSize(cfg.ChartWidth, cfg.ChartHeight),
		app.WithTitle(cfg.Title),
	), nil
}

// newHandler wires every route behind the request id middleware.
func newHandler(ctx context.Context, svc *app.Service) http.Handler {
	mux := http.NewServeMux()

	// Dashboard page and its static assets
	site.Register(ctx, mux)

	// API documentation under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	api.NewServer(svc, svc, logger.Named("api")).Register(ctx, mux)

	return api.RequestIDMiddleware(mux)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
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

// updateSystemMetrics updates system-level metrics.
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
