// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mcoot/triviagame/internal/events"
	"github.com/mcoot/triviagame/internal/services/auth"
	"github.com/mcoot/triviagame/internal/services/questions/opentdb"
	"github.com/mcoot/triviagame/internal/services/scheduler"
	"github.com/mcoot/triviagame/internal/services/session"
	"github.com/mcoot/triviagame/internal/storage/postgres"
	redisstorage "github.com/mcoot/triviagame/internal/storage/redis"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Question providers
const (
	ProviderOpenTDB = "opentdb"
	ProviderDemo    = "demo"
)

// Config is the full server configuration
type Config struct {
	Host     string `env:"TRIVIA_HOST"`
	Port     int    `env:"TRIVIA_PORT" envDefault:"8080"`
	LogLevel string `env:"TRIVIA_LOG_LEVEL" envDefault:"info"`

	CORSOrigins []string `env:"TRIVIA_CORS_ORIGINS" envSeparator:","`

	Storage  string `env:"TRIVIA_STORAGE" envDefault:"memory"`
	Redis    Redis
	Postgres postgres.Config

	Provider string `env:"TRIVIA_PROVIDER" envDefault:"opentdb"`
	OpenTDB  OpenTDB
	Game     Game
	Auth     Auth

	Scheduler Scheduler
	NATS      NATS
}

// Redis holds Redis storage settings
type Redis struct {
	URL            string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	PoolSize       int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	GuestPlayerTTL time.Duration `env:"REDIS_GUEST_PLAYER_TTL" envDefault:"24h"`
	EndedGameTTL   time.Duration `env:"REDIS_ENDED_GAME_TTL" envDefault:"168h"`
}

// OpenTDB holds question provider settings
type OpenTDB struct {
	BaseURL string        `env:"TRIVIA_OPENTDB_URL" envDefault:"https://opentdb.com"`
	Timeout time.Duration `env:"TRIVIA_PROVIDER_TIMEOUT" envDefault:"10s"`
}

// Game holds game timing settings
type Game struct {
	LeadIn         time.Duration `env:"TRIVIA_LEAD_IN" envDefault:"5s"`
	RoundDuration  time.Duration `env:"TRIVIA_ROUND_DURATION" envDefault:"15s"`
	LiveGamesLimit int           `env:"TRIVIA_LIVE_GAMES_LIMIT" envDefault:"5"`
}

// Auth holds session settings
type Auth struct {
	Secret          string        `env:"TRIVIA_AUTH_SECRET"`
	SessionDuration time.Duration `env:"TRIVIA_SESSION_DURATION" envDefault:"24h"`
}

// Scheduler holds timer-driven advance settings
type Scheduler struct {
	Enabled bool          `env:"TRIVIA_SCHEDULER_ENABLED" envDefault:"true"`
	Grace   time.Duration `env:"TRIVIA_SCHEDULER_GRACE" envDefault:"5s"`
	Workers int           `env:"TRIVIA_SCHEDULER_WORKERS" envDefault:"4"`
}

// NATS holds event stream settings. Publishing is disabled when URL is empty.
type NATS struct {
	URL        string `env:"NATS_URL"`
	StreamName string `env:"NATS_STREAM" envDefault:"TRIVIA_EVENTS"`
}

// Load reads the configuration from the environment and validates it
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks option values that env parsing cannot
func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StorageRedis, StoragePostgres:
	default:
		return fmt.Errorf("TRIVIA_STORAGE must be memory, redis or postgres, got %q", c.Storage)
	}
	switch c.Provider {
	case ProviderOpenTDB, ProviderDemo:
	default:
		return fmt.Errorf("TRIVIA_PROVIDER must be opentdb or demo, got %q", c.Provider)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("TRIVIA_PORT out of range: %d", c.Port)
	}
	if c.Game.RoundDuration <= 0 {
		return fmt.Errorf("TRIVIA_ROUND_DURATION must be positive")
	}
	if c.Game.LeadIn < 0 {
		return fmt.Errorf("TRIVIA_LEAD_IN must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level
func (c Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// RedisConfig returns the Redis storage settings
func (c Config) RedisConfig() redisstorage.Config {
	cfg := redisstorage.DefaultConfig()
	cfg.URL = c.Redis.URL
	cfg.PoolSize = c.Redis.PoolSize
	cfg.GuestPlayerTTL = c.Redis.GuestPlayerTTL
	cfg.EndedGameTTL = c.Redis.EndedGameTTL
	return cfg
}

// OpenTDBConfig returns the question provider client settings
func (c Config) OpenTDBConfig() opentdb.Config {
	cfg := opentdb.DefaultConfig()
	cfg.BaseURL = c.OpenTDB.BaseURL
	cfg.Timeout = c.OpenTDB.Timeout
	return cfg
}

// SessionConfig returns the game session settings
func (c Config) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.Timing.LeadIn = c.Game.LeadIn
	cfg.Timing.RoundDuration = c.Game.RoundDuration
	cfg.ProviderTimeout = c.OpenTDB.Timeout
	cfg.LiveGamesLimit = c.Game.LiveGamesLimit
	return cfg
}

// AuthConfig returns the auth service settings
func (c Config) AuthConfig() auth.Config {
	cfg := auth.DefaultConfig()
	cfg.Secret = []byte(c.Auth.Secret)
	cfg.SessionDuration = c.Auth.SessionDuration
	return cfg
}

// SchedulerConfig returns the scheduler settings
func (c Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		Grace:   c.Scheduler.Grace,
		Workers: c.Scheduler.Workers,
	}
}

// JetStreamConfig returns the event stream settings, or nil when disabled
func (c Config) JetStreamConfig() *events.JetStreamConfig {
	if c.NATS.URL == "" {
		return nil
	}
	cfg := events.DefaultJetStreamConfig()
	cfg.URL = c.NATS.URL
	cfg.StreamName = c.NATS.StreamName
	return &cfg
}

// ParseLevel converts a level name to a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
