// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nociq/nociq/internal/analytics"
	"github.com/nociq/nociq/internal/config"
	"github.com/nociq/nociq/internal/geocode"
	"github.com/nociq/nociq/internal/identity"
	"github.com/nociq/nociq/internal/outage"
	outagefirestore "github.com/nociq/nociq/internal/outage/firestore"
	"github.com/nociq/nociq/internal/outage/kafka"
	outagepostgres "github.com/nociq/nociq/internal/outage/postgres"
	"github.com/nociq/nociq/internal/pkg/ctxlog"
	"github.com/nociq/nociq/internal/pkg/httputil"
	"github.com/nociq/nociq/internal/pkg/metrics"
	"github.com/nociq/nociq/internal/pkg/postgres"
	"github.com/nociq/nociq/internal/rca"
	rcafirestore "github.com/nociq/nociq/internal/rca/firestore"
	rcapostgres "github.com/nociq/nociq/internal/rca/postgres"
	"github.com/nociq/nociq/internal/sla"
	slafirestore "github.com/nociq/nociq/internal/sla/firestore"
	slapostgres "github.com/nociq/nociq/internal/sla/postgres"
	"github.com/nociq/nociq/internal/version"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	fsClient      *firestore.Client
	producer      *kafka.Producer
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	app := &App{
		config: cfg,
		logger: logger,
	}

	var outageStore outage.Store
	var slaRepo sla.Repository
	var rcaRepo rca.Repository

	switch cfg.Storage.Driver {
	case "postgres":
		connectCtx, connectCancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
		defer connectCancel()

		db, err := postgres.Connect(connectCtx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnectAttempts: cfg.Database.ConnectAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}

		app.db = db
		outageStore = outagepostgres.NewRepository(db)
		slaRepo = slapostgres.NewRepository(db)
		rcaRepo = rcapostgres.NewRepository(db)

	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.Storage.Firestore.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create firestore client: %w", err)
		}

		app.fsClient = client
		outageStore = outagefirestore.NewRepository(client, cfg.Storage.Firestore.OutagesCollection)
		slaRepo = slafirestore.NewRepository(client, cfg.Storage.Firestore.PaymentsCollection)
		rcaRepo = rcafirestore.NewRepository(client, cfg.Storage.Firestore.RCACollection)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())
	app.metricsCancel = metricsCancel

	if app.db != nil {
		go app.collectDBMetrics(metricsCtx)
	}

	var geocoder outage.Geocoder
	if cfg.Geocoding.Enabled {
		geocoder = geocode.NewClient(geocode.Config{
			BaseURL: cfg.Geocoding.BaseURL,
			Timeout: cfg.Geocoding.Timeout,
		})
	}

	app.producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)

	outageService := outage.NewService(outageStore, geocoder, app.producer)
	outageHandler := outage.NewHandler(outageService)

	analyticsService := analytics.NewService(outageStore)
	analyticsHandler := analytics.NewHandler(analyticsService)

	slaService := sla.NewService(outageService, slaRepo)
	slaHandler := sla.NewHandler(slaService)

	rcaHandler := rca.NewHandler(rcaRepo)

	verifier := identity.NewVerifier(cfg.Auth.SecretKey)

	router := app.setupRouter(verifier, outageHandler, analyticsHandler, slaHandler, rcaHandler)

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"storage_driver", a.config.Storage.Driver,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if err := a.producer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close kafka producer: %w", err))
	}

	if a.db != nil {
		a.db.Close()
	}
	if a.fsClient != nil {
		if err := a.fsClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close firestore client: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter(
	verifier httputil.TokenVerifier,
	outageHandler *outage.Handler,
	analyticsHandler *analytics.Handler,
	slaHandler *sla.Handler,
	rcaHandler *rca.Handler,
) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	r.Group(func(r chi.Router) {
		r.Use(httputil.AuthMiddleware(verifier))

		outageHandler.RegisterRoutes(r)
		analyticsHandler.RegisterRoutes(r)
		slaHandler.RegisterRoutes(r)
		rcaHandler.RegisterRoutes(r)
	})

	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		httputil.Text(w, http.StatusOK, "OK")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
