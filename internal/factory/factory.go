package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/mcoot/triviagame/internal/dependencies/clock"
	"github.com/mcoot/triviagame/internal/dependencies/random"
	"github.com/mcoot/triviagame/internal/events"
	"github.com/mcoot/triviagame/internal/services/advancer"
	"github.com/mcoot/triviagame/internal/services/auth"
	"github.com/mcoot/triviagame/internal/services/ledger"
	"github.com/mcoot/triviagame/internal/services/questions"
	"github.com/mcoot/triviagame/internal/services/scheduler"
	"github.com/mcoot/triviagame/internal/services/session"
	"github.com/mcoot/triviagame/internal/storage"
	"github.com/mcoot/triviagame/internal/storage/memory"
	"github.com/mcoot/triviagame/internal/storage/postgres"
	redisstorage "github.com/mcoot/triviagame/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Source questions.Source

	// Events
	Events  *events.Fanout
	Emitter *events.Emitter

	// Services
	Catalog           *questions.Catalog
	Ledger            *ledger.Ledger
	SessionController *session.Controller
	Advancer          *advancer.Service
	AuthService       *auth.Service

	// Scheduler is nil unless enabled
	Scheduler *scheduler.Scheduler

	closers []func() error
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger

	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds Postgres connection settings (required if StorageType is "postgres")
	PostgresConfig *postgres.Config

	// Source supplies questions and categories (optional)
	// If nil, the built-in demo bank is used
	Source questions.Source

	// SessionConfig holds game settings (optional)
	// If zero value, defaults to session.DefaultConfig()
	SessionConfig session.Config
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config

	// SchedulerConfig enables timer-driven advances when non-nil
	SchedulerConfig *scheduler.Config
	// JetStreamConfig enables publishing events to NATS when non-nil
	JetStreamConfig *events.JetStreamConfig
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var closers []func() error
	fail := func(err error) (*App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		store = redisStore
		closers = append(closers, redisStore.Close)
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := postgres.New(ctx, *cfg.PostgresConfig)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store = pgStore
		closers = append(closers, pgStore.Close)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'postgres'")
	}

	source := cfg.Source
	if source == nil {
		source = questions.DemoProvider()
	}

	publishers := []events.Publisher{events.NewLogPublisher(logger)}
	if cfg.JetStreamConfig != nil {
		js, err := events.NewJetStreamPublisher(ctx, *cfg.JetStreamConfig, logger)
		if err != nil {
			return fail(fmt.Errorf("connect nats: %w", err))
		}
		publishers = append(publishers, js)
		closers = append(closers, js.Close)
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	app, err := newWithDependencies(store, clk, rnd, source, cfg.SessionConfig, cfg.AuthConfig, logger, publishers...)
	if err != nil {
		return fail(err)
	}
	app.closers = closers

	if cfg.SchedulerConfig != nil {
		app.Scheduler = newScheduler(app, clk, *cfg.SchedulerConfig, logger)
	}
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	source questions.Source,
	sessionCfg session.Config,
	authCfg auth.Config,
	logger *slog.Logger,
	publishers ...events.Publisher,
) (*App, error) {
	if sessionCfg == (session.Config{}) {
		sessionCfg = session.DefaultConfig()
	}

	fanout := events.NewFanout(publishers...)
	emitter := events.NewEmitter(fanout, clk, rnd, logger)

	catalog := questions.NewCatalog(store, source, clk, questions.DefaultStaleAfter, logger)
	ldg := ledger.New(rnd)
	sessionController := session.NewController(store, source, catalog, ldg, emitter, clk, rnd, sessionCfg, logger)
	advancerService := advancer.New(store, emitter, clk, sessionCfg.Timing, logger)

	authService, err := auth.New(store, clk, rnd, authCfg)
	if err != nil {
		return nil, err
	}

	return &App{
		Storage:           store,
		Clock:             clk,
		Random:            rnd,
		Source:            source,
		Events:            fanout,
		Emitter:           emitter,
		Catalog:           catalog,
		Ledger:            ldg,
		SessionController: sessionController,
		Advancer:          advancerService,
		AuthService:       authService,
	}, nil
}

// newScheduler creates a scheduler and subscribes it to game events
func newScheduler(app *App, clk clockwork.Clock, cfg scheduler.Config, logger *slog.Logger) *scheduler.Scheduler {
	sched := scheduler.New(app.Advancer, app.Storage, clk, cfg, logger)
	app.Events.Subscribe(sched)
	return sched
}

// Close releases storage and event stream connections
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
