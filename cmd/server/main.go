package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/zombar/biasradar/internal/analyzer"
	"github.com/zombar/biasradar/internal/api"
	"github.com/zombar/biasradar/internal/compare"
	"github.com/zombar/biasradar/internal/config"
	"github.com/zombar/biasradar/internal/database"
	"github.com/zombar/biasradar/internal/notify"
	"github.com/zombar/biasradar/internal/queue"
	"github.com/zombar/biasradar/internal/session"
	"github.com/zombar/biasradar/internal/web"
	"github.com/zombar/biasradar/pkg/logging"
	"github.com/zombar/biasradar/pkg/metrics"
	"github.com/zombar/biasradar/pkg/tracing"
)

const (
	serviceName      = "biasradar"
	sweepInterval    = time.Minute
	dbStatsInterval  = 15 * time.Second
	shutdownDeadline = 30 * time.Second
)

func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", "config.yaml"), "Path to YAML config file (env: CONFIG_PATH)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", *configPath)
		os.Exit(1)
	}

	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logging.ParseLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("biasradar service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := tracing.InitTracer(serviceName)
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	reg := newRegistry()
	business := metrics.NewBusinessMetrics(serviceName, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the optional comparison archive
	var db *database.DB
	if cfg.Database.Driver != "" {
		db, err = database.New(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			logger.Error("failed to initialize database", "error", err, "driver", cfg.Database.Driver)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		dbMetrics := metrics.NewDatabaseMetrics(serviceName, reg)
		go func() {
			ticker := time.NewTicker(dbStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					dbMetrics.UpdateDBStats(db.Conn())
				}
			}
		}()
		logger.Info("comparison archive enabled", "driver", db.Driver())
	}

	simulator := analyzer.New(
		analyzer.WithDelay(cfg.AnalysisDelay()),
		analyzer.WithLogger(logger),
	)

	// Initialize the optional background queue
	var jobs *queue.Client
	if cfg.Queue.RedisAddr != "" {
		jobs = queue.NewClient(queue.ClientConfig{RedisAddr: cfg.Queue.RedisAddr})
		defer jobs.Close()

		var archive queue.Archive
		if db != nil {
			archive = db
		}
		worker := queue.NewWorker(queue.WorkerConfig{
			RedisAddr:   cfg.Queue.RedisAddr,
			Concurrency: cfg.Queue.Concurrency,
		}, simulator, archive, business)

		go func() {
			if err := worker.Start(); err != nil {
				logger.Error("queue worker stopped", "error", err)
			}
		}()
		defer worker.Shutdown()
		logger.Info("background jobs enabled", "redis_addr", cfg.Queue.RedisAddr)
	}

	app, err := newApp(cfg, appDeps{
		logger:    logger,
		simulator: simulator,
		registry:  reg,
		recorder:  business,
		archive:   db,
		jobs:      jobs,
	})
	if err != nil {
		logger.Error("failed to build handlers", "error", err)
		os.Exit(1)
	}
	go app.store.Run(ctx, sweepInterval)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("biasradar service starting",
			"port", cfg.Server.Port,
			"analysis_delay_ms", cfg.Analysis.DelayMS,
			"archive_enabled", db != nil,
			"queue_enabled", jobs != nil,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// wait for in-flight comparisons
	app.store.Wait()
	logger.Info("server stopped")
}

// appDeps are the collaborators shared by the page and the API
type appDeps struct {
	logger    *slog.Logger
	simulator compare.Simulator
	registry  *prometheus.Registry
	recorder  compare.Recorder
	archive   *database.DB
	jobs      *queue.Client
}

// app is the assembled HTTP surface
type app struct {
	handler http.Handler
	store   *session.Store
}

// newApp wires the session store, the page and the JSON API onto one mux
// wrapped in recovery, request logging and tracing
func newApp(cfg config.Config, deps appDeps) (*app, error) {
	logger := deps.logger

	store := session.NewStore(func(n notify.Notifier) *compare.Session {
		return compare.NewSession(deps.simulator,
			compare.WithNotifier(n),
			compare.WithRecorder(deps.recorder),
			compare.WithLogger(logger),
		)
	},
		session.WithTTL(cfg.SessionTTL()),
		session.WithSink(notify.NewLogger(logger)),
		session.WithLogger(logger),
	)

	page, err := web.NewHandler(store, cfg.SessionTTL(), logger)
	if err != nil {
		return nil, fmt.Errorf("web handler: %w", err)
	}

	opts := []api.Option{
		api.WithGatherer(deps.registry),
		api.WithRecorder(deps.recorder),
		api.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		api.WithLogger(logger),
	}
	if deps.archive != nil {
		opts = append(opts, api.WithArchive(deps.archive))
	}
	if deps.jobs != nil {
		opts = append(opts, api.WithQueue(deps.jobs))
	}
	apiHandler := api.NewHandler(deps.simulator, opts...)

	mux := http.NewServeMux()
	page.RegisterRoutes(mux)
	mux.Handle("/", apiHandler)

	// Wrap handler with middleware chain: recovery -> HTTP logging -> tracing -> handlers
	handler := logging.RecoveryMiddleware(logger)(
		logging.HTTPLoggingMiddleware(logger)(
			tracing.HTTPMiddleware(serviceName)(mux),
		),
	)

	return &app{handler: handler, store: store}, nil
}

// newRegistry returns a registry carrying the Go runtime and process collectors
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
