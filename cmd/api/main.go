// Package main is the entrypoint for the Meraki toolkit API server.
// It queues audit runs, executes them in a background worker, and serves
// results, exports, and tag sync operations over HTTP.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/LakeAndrew/MerakiScripts/internal/audit"
	"github.com/LakeAndrew/MerakiScripts/internal/cache"
	"github.com/LakeAndrew/MerakiScripts/internal/config"
	"github.com/LakeAndrew/MerakiScripts/internal/handler"
	"github.com/LakeAndrew/MerakiScripts/internal/meraki"
	"github.com/LakeAndrew/MerakiScripts/internal/metrics"
	"github.com/LakeAndrew/MerakiScripts/internal/middleware"
	"github.com/LakeAndrew/MerakiScripts/internal/repository"
	"github.com/LakeAndrew/MerakiScripts/internal/server"
	"github.com/LakeAndrew/MerakiScripts/internal/tagsync"
)

// Per-service-key limits for the toolkit's own API surface.
const (
	apiRatePerMinute = 120
	apiRateBurst     = 20
)

func main() {
	ctx := context.Background()

	// Seed environment from environment.env when present
	if err := config.LoadEnvFile(""); err != nil {
		slog.Error("failed to load environment file", "error", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Metrics
	metricsRecorder := metrics.NewInMemory()

	// Meraki Dashboard client. The shared Redis bucket keeps all instances
	// inside the org-wide Dashboard rate limit, and GET responses are cached
	// briefly to cut duplicate reads.
	dashboard := meraki.New(meraki.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Logger:  logger,
		Limiter: cache.NewDashboardLimiter(cacheClient, cfg.DashboardRPS, cfg.DashboardBurst),
		Metrics: metricsRecorder,
		Cache:   cache.NewDashboardResponseCache(cacheClient),
	})

	// Audit engine and worker
	runner := audit.NewRunner(dashboard, logger, metricsRecorder, audit.Options{
		OrgID:              cfg.OrgID,
		Manufacturers:      cfg.ManufacturerList(),
		MACPrefix:          cfg.MACPrefix,
		TargetVLAN:         cfg.TargetVLAN,
		Lookback:           cfg.Lookback,
		NetworkConcurrency: cfg.NetworkConcurrency,
	})
	worker := audit.NewWorker(repo, runner, logger, metricsRecorder)

	// Tag sync engine
	syncer := tagsync.NewSyncer(dashboard, logger, metricsRecorder)

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	auditHandler := handler.NewAuditHandler(logger, repo, cfg.OrgID)
	tagSyncHandler := handler.NewTagSyncHandler(logger, syncer, cfg.OrgID)
	serviceKeyHandler := handler.NewServiceKeyHandler(logger, repo)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)

	// Setup router
	r := setupRouter(h, healthHandler, auditHandler, tagSyncHandler, serviceKeyHandler, metricsHandler, repo, cacheClient, cfg, logger)

	// Create server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Start worker; it is registered for shutdown so queued runs drain
	// before the process exits.
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	go func() {
		if err := worker.Run(workerCtx); err != nil {
			logger.Error("audit worker stopped", "error", err)
		}
	}()
	srv.OnShutdown("audit worker", worker.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"org_id", cfg.OrgID,
		"api_key", cfg.RedactedAPIKey(),
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	auditHandler *handler.AuditHandler,
	tagSyncHandler *handler.TagSyncHandler,
	serviceKeyHandler *handler.ServiceKeyHandler,
	metricsHandler *handler.MetricsHandler,
	repo *repository.Repository,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	// Root info endpoint
	r.Get("/", h.Hello)

	// Auth middleware configuration
	authCfg := middleware.AuthConfig{
		Logger:     logger,
		Repository: repo,
		Cache:      cacheClient,
	}

	// Rate limit middleware configuration
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:            logger,
		Cache:             cacheClient,
		Enabled:           cfg.RateLimitAPIEnabled,
		RequestsPerMinute: apiRatePerMinute,
		Burst:             apiRateBurst,
	}

	// API v1 routes (require authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitAPI(rateLimitCfg))

		// Audit runs (queue with write scope, read with read scope)
		r.Route("/audits", func(r chi.Router) {
			r.With(middleware.RequireWrite()).Post("/", auditHandler.Create)
			r.With(middleware.RequireRead()).Get("/", auditHandler.List)
			r.With(middleware.RequireRead()).Get("/{run_id}", auditHandler.Get)
			r.With(middleware.RequireRead()).Get("/{run_id}/results", auditHandler.GetResults)
			r.With(middleware.RequireRead()).Get("/{run_id}/export.xlsx", auditHandler.ExportXLSX)
		})

		// Tag sync (plan is read-only, apply mutates the Dashboard)
		r.Route("/tagsync", func(r chi.Router) {
			r.With(middleware.RequireRead()).Post("/plan", tagSyncHandler.Plan)
			r.With(middleware.RequireWrite()).Post("/apply", tagSyncHandler.Apply)
		})

		// Service key management (requires admin scope for mutations)
		r.Route("/service-keys", func(r chi.Router) {
			r.With(middleware.RequireRead()).Get("/", serviceKeyHandler.List)
			r.With(middleware.RequireAdmin()).Post("/", serviceKeyHandler.Create)
			r.With(middleware.RequireAdmin()).Delete("/{key_id}", serviceKeyHandler.Revoke)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
