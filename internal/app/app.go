package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gorm.io/gorm"

	"bcmaccess/internal/catalog"
	"bcmaccess/internal/config"
	"bcmaccess/internal/infrastructure"
	"bcmaccess/internal/license"
	customMiddleware "bcmaccess/internal/middleware"
	"bcmaccess/internal/services"
	"bcmaccess/internal/store/memory"
	"bcmaccess/internal/store/postgres"
	handlers "bcmaccess/internal/transport/http"
	"bcmaccess/internal/workflow"
	"bcmaccess/pkg/contracts"
)

// AppName identifies the service in startup logs
const AppName = "BCM Access Control"

// accessStore is the combined persistence surface the application wires:
// one adapter serves both the grant store and the request store so a
// terminal approval and its grant share a transaction.
type accessStore interface {
	license.GrantStore
	workflow.RequestStore
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	AccessService *services.AccessService
	HealthService *services.HealthService

	store      accessStore
	db         *gorm.DB
	grantCache license.GrantCache
	licenses   *license.Store
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	app := &Application{
		Config: cfg,
		Logger: logger,
	}

	providers, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	app.OTelProviders = providers

	if err := app.setupStore(); err != nil {
		return nil, err
	}

	if err := app.setupServices(); err != nil {
		return nil, err
	}

	if err := app.setupRouter(); err != nil {
		return nil, err
	}

	app.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        app.Router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return app, nil
}

// setupStore selects the durable store and grant cache from configuration.
// An empty database DSN selects the in-memory adapter.
func (a *Application) setupStore() error {
	if dsn := a.Config.Database.DSN; dsn != "" {
		db, err := postgres.Connect(dsn, a.Config.Database.MaxOpenConns)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db

		store := postgres.NewStore(db, a.Logger)
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		a.store = store

		a.Logger.Info("durable store ready", slog.String("backend", "postgres"))
	} else {
		a.store = memory.New()
		a.Logger.Warn("no database configured, using in-memory store",
			slog.String("backend", "memory"))
	}

	switch a.Config.Cache.Backend {
	case "redis":
		cache, err := license.NewRedisCache(a.Config.Cache.RedisURL, a.Config.Cache.KeyPrefix, a.Config.Cache.TTL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis cache: %w", err)
		}
		a.grantCache = cache
	default:
		a.grantCache = license.NewMemoryCache(a.Config.Cache.TTL, a.Config.Cache.MaxEntries)
	}

	a.Logger.Info("grant cache ready", slog.String("backend", a.Config.Cache.Backend))
	return nil
}

// setupServices wires the domain services
func (a *Application) setupServices() error {
	cat := catalog.New()

	var metrics *infrastructure.AccessMetrics
	if a.OTelProviders.Meter != nil {
		m, err := infrastructure.CreateAccessMetrics(a.OTelProviders.Meter)
		if err != nil {
			return fmt.Errorf("failed to create metrics: %w", err)
		}
		metrics = m
	}

	a.licenses = license.NewStore(a.store, a.grantCache, a.Config.Database.Timeout, metrics, a.Logger)
	resolver := license.NewResolver(cat, a.licenses, a.Config.License.DemoOrganizations, a.Logger)
	engine := workflow.NewEngine(a.store, a.Logger)

	a.AccessService = services.NewAccessService(cat, resolver, a.licenses, engine, metrics, a.Logger)
	a.HealthService = services.NewHealthService(a.licenses, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	if a.OTelProviders.Tracer != nil {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			return fmt.Errorf("failed to create tracing middleware: %w", err)
		}
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			Logger:         a.Logger,
		}))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		// Unauthenticated surface.
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		// Everything else requires the caller identity headers.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Identity(a.Logger))

			r.Mount("/organizations", handlers.NewModulesHandler(a.AccessService, a.Logger).Routes())
			r.Mount("/module-requests", handlers.NewRequestsHandler(a.AccessService, a.Logger).Routes())
			r.Mount("/cache", handlers.NewCacheHandler(a.AccessService, a.Logger).Routes())
		})
	})

	r.Method(http.MethodGet, "/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP))

	a.Router = r
	return nil
}

// Run starts the HTTP server and blocks until shutdown
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("HTTP server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.Logger.Info("shutdown signal received")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the server and releases resources
func (a *Application) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}

	if a.grantCache != nil {
		if err := a.grantCache.Close(); err != nil {
			a.Logger.Warn("grant cache close failed", slog.String("error", err.Error()))
		}
	}

	if a.db != nil {
		if err := postgres.Close(a.db); err != nil {
			a.Logger.Warn("database close failed", slog.String("error", err.Error()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("observability shutdown failed", slog.String("error", err.Error()))
		}
	}

	infrastructure.CloseLogFile()

	a.Logger.Info("shutdown complete")
	return nil
}
