package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aliuyar1234/propdesk/internal/audit"
	"github.com/aliuyar1234/propdesk/internal/config"
	"github.com/aliuyar1234/propdesk/internal/events"
	"github.com/aliuyar1234/propdesk/internal/invites"
	"github.com/aliuyar1234/propdesk/internal/orgs"
	"github.com/aliuyar1234/propdesk/internal/retention"
	"github.com/aliuyar1234/propdesk/internal/store"
	"github.com/aliuyar1234/propdesk/internal/store/postgres"
	"github.com/aliuyar1234/propdesk/internal/store/sqlite"
	"github.com/aliuyar1234/propdesk/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// App holds the application state
type App struct {
	Config    *config.Config
	Store     store.Store
	Publisher events.Publisher
	Auditor   *audit.Writer
	Invites   *invites.Service
	Orgs      *orgs.Service
	Router    http.Handler

	server            *http.Server
	shutdownTelemetry telemetry.ShutdownFunc
}

// New creates and initializes a new application instance
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	setupLogger(cfg.LogLevel)

	log.Info().Msg("Initializing PropDesk application")
	log.Info().Interface("config", cfg.RedactedValues()).Msg("Configuration loaded")

	if cfg.IsDev() {
		log.Info().Msg("Development mode: running migrations automatically")
	} else {
		log.Info().Msg("Production mode: migrations must be run manually")
	}

	shutdownTelemetry, err := telemetry.InitProviders(ctx, telemetry.ProviderConfig{
		ServiceName: serviceName,
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if cfg.OTelEndpoint != "" {
		log.Info().Str("endpoint", cfg.OTelEndpoint).Msg("Exporting traces and metrics over OTLP")
	}

	st, err := OpenStore(ctx, cfg.DBDSN, cfg.IsDev())
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, err
	}

	publisher := newPublisher(ctx, cfg)

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create metric instruments, metrics disabled")
		metrics = nil
	}

	a := &App{
		Config:    cfg,
		Store:     st,
		Publisher: publisher,
		Auditor:   audit.NewWriter(st.Audit()),
		Orgs:      orgs.NewService(st),

		shutdownTelemetry: shutdownTelemetry,
	}
	a.Invites = invites.NewService(st, invites.Options{
		CodeLength: cfg.InviteCodeLength,
		TTL:        cfg.InviteTTL,
		Auditor:    a.Auditor,
		Publisher:  publisher,
		Metrics:    metrics,
	})
	a.Router = NewRouter(a)

	log.Info().Msg("Application initialized successfully")
	return a, nil
}

// OpenStore connects to the database named by dsn (postgres:// or sqlite://)
// and optionally applies pending migrations.
func OpenStore(ctx context.Context, dsn string, migrate bool) (store.Store, error) {
	driver, target, err := config.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	log.Info().Str("driver", driver).Msg("Connecting to database...")

	switch driver {
	case "postgres":
		pg, err := postgres.Open(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if migrate {
			if err := pg.Migrate(ctx); err != nil {
				_ = pg.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		log.Info().Msg("Database connection established")
		return pg, nil

	case "sqlite":
		lite, err := sqlite.Open(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if migrate {
			if err := lite.ApplyMigrations(); err != nil {
				_ = lite.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		log.Info().Msg("Database connection established")
		return lite, nil
	}

	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// MigrateStore applies pending migrations on a store opened by OpenStore.
func MigrateStore(ctx context.Context, st store.Store) error {
	switch s := st.(type) {
	case *postgres.Store:
		return s.Migrate(ctx)
	case *sqlite.Store:
		return s.ApplyMigrations()
	}
	return fmt.Errorf("store %T does not support migrations", st)
}

func newPublisher(ctx context.Context, cfg *config.Config) events.Publisher {
	if cfg.NATSURL == "" {
		return events.LogPublisher{}
	}

	p, err := events.ConnectNATS(ctx, cfg.NATSURL)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to NATS, redemption events will only be logged")
		return events.LogPublisher{}
	}
	log.Info().Str("stream", events.StreamName).Msg("Publishing redemption events to NATS")
	return p
}

// Sweeper returns the housekeeping job run by the scheduler.
func (a *App) Sweeper() retention.Job {
	return retention.Job{
		Invites:            a.Invites,
		AuditLog:           a.Store.Audit(),
		Auditor:            a.Auditor,
		AuditRetentionDays: a.Config.AuditRetentionDays,
	}
}

// Start starts the HTTP server
func (a *App) Start() error {
	addr := a.Config.HTTPAddr
	log.Info().Str("addr", addr).Msg("Starting HTTP server")

	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a.server.ListenAndServe()
}

// Shutdown stops the HTTP server, releases the store and event connection and
// flushes telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down application")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event publisher: %w", err))
		}
	}
	if a.Store != nil {
		log.Info().Msg("Closing database connection")
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}

// setupLogger configures the global logger
func setupLogger(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Debug().Str("level", level).Msg("Logger configured")
}
