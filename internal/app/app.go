package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"student-registry/internal/config"
	"student-registry/internal/health"
	"student-registry/internal/kafka"
	"student-registry/internal/messaging"
	"student-registry/internal/metrics"
	"student-registry/internal/middleware"
	"student-registry/internal/observability"
	"student-registry/internal/registry"
	"student-registry/internal/telemetry"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	config    *config.Config
	router    chi.Router
	server    *http.Server
	logger    *slog.Logger
	telemetry *telemetry.Telemetry
	service   registry.Service
	closers   []io.Closer
	flush     func()
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger.Info("initializing application", "env", cfg.Env, "version", Version, "commit", GitCommit)

	flush, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env, Version)
	if err != nil {
		logger.Warn("failed to initialize sentry", "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tel, err := telemetry.Init(ctx, cfg.Telemetry, Version, reg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	app := &App{
		config:    cfg,
		router:    chi.NewRouter(),
		logger:    logger,
		telemetry: tel,
		flush:     flush,
	}

	healthHandler := health.NewHandler()

	opts := []registry.Option{registry.WithMetrics(tel.Metrics)}
	if publisher := app.newPublisher(healthHandler); publisher != nil {
		opts = append(opts, registry.WithPublisher(publisher))
	}
	app.service = registry.NewService(registry.NewMemoryRepository(), opts...)

	if err := metrics.RegisterSnapshotGauges(tel.Meter, app.snapshot); err != nil {
		logger.Warn("failed to register registry gauges", "error", err)
	}

	if cfg.Catalog.Seed {
		courses, err := registry.SeedCatalog(ctx, app.service, registry.DefaultCatalog())
		if err != nil {
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
		logger.Info("course catalog seeded", "courses", len(courses))
	}

	httpMetrics, err := middleware.NewHTTPMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register http metrics: %w", err)
	}

	app.router.Use(chimw.RequestID)
	app.router.Use(chimw.RealIP)
	app.router.Use(chimw.Recoverer)
	app.router.Use(observability.Middleware)
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	app.router.Use(httpMetrics.Handler)

	healthHandler.RegisterRoutes(app.router)
	app.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	registryHandler := registry.NewHandler(app.service, logger)
	app.router.Route("/api", func(r chi.Router) {
		registryHandler.RegisterRoutes(r)
	})

	logger.Info("application initialized successfully")

	return app, nil
}

// newPublisher connects the configured event broker. A broker that cannot be
// reached disables events instead of failing startup.
func (a *App) newPublisher(h *health.Handler) registry.Publisher {
	switch a.config.Events.Driver {
	case config.EventsDriverNATS:
		producer, err := messaging.NewProducer(a.config.NATS.URL, a.config.NATS.SubjectPrefix, a.logger)
		if err != nil {
			a.logger.Warn("failed to initialize NATS producer, events disabled", "error", err)
			return nil
		}
		a.closers = append(a.closers, producer)
		h.AddCheck("nats", producer)
		return producer
	case config.EventsDriverKafka:
		producer, err := kafka.NewProducer(a.config.Kafka.Brokers, a.config.Kafka.Topic, a.logger)
		if err != nil {
			a.logger.Warn("failed to initialize kafka producer, events disabled", "error", err)
			return nil
		}
		a.closers = append(a.closers, producer)
		return producer
	default:
		a.logger.Info("event publishing disabled")
		return nil
	}
}

func (a *App) snapshot(ctx context.Context) (metrics.Snapshot, error) {
	stats, err := a.service.Stats(ctx)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	return metrics.Snapshot{
		Students:      stats.Students,
		Courses:       stats.Courses,
		Registrations: stats.Registrations,
		Graded:        stats.Graded,
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) Service() registry.Service {
	return a.service
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	var errs []error
	if a.server != nil {
		errs = append(errs, a.server.Shutdown(ctx))
	}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	errs = append(errs, a.telemetry.Shutdown(ctx, a.logger))
	if a.flush != nil {
		a.flush()
	}
	return errors.Join(errs...)
}
