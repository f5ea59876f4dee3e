package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) TestDefaults() {
	cfg, err := Load()
	s.Require().NoError(err)

	s.Equal(8080, cfg.Port)
	s.Equal(StorageMemory, cfg.Storage)
	s.Equal(ProviderOpenTDB, cfg.Provider)
	s.Equal(5*time.Second, cfg.Game.LeadIn)
	s.Equal(15*time.Second, cfg.Game.RoundDuration)
	s.True(cfg.Scheduler.Enabled)
	s.Nil(cfg.JetStreamConfig())
	s.Equal("trivia", cfg.Postgres.Database)
	s.Equal(slog.LevelInfo, cfg.Level())
}

func (s *ConfigSuite) TestOverrides() {
	t := s.T()
	t.Setenv("TRIVIA_PORT", "9090")
	t.Setenv("TRIVIA_STORAGE", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("TRIVIA_ROUND_DURATION", "30s")
	t.Setenv("TRIVIA_CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("NATS_URL", "nats://bus:4222")
	t.Setenv("TRIVIA_LOG_LEVEL", "debug")
	t.Setenv("TRIVIA_AUTH_SECRET", "s3cret")

	cfg, err := Load()
	s.Require().NoError(err)

	s.Equal(9090, cfg.Port)
	s.Equal("redis://cache:6379/1", cfg.RedisConfig().URL)
	s.Equal(30*time.Second, cfg.SessionConfig().Timing.RoundDuration)
	s.Equal([]string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	s.Require().NotNil(cfg.JetStreamConfig())
	s.Equal("nats://bus:4222", cfg.JetStreamConfig().URL)
	s.Equal("TRIVIA_EVENTS", cfg.JetStreamConfig().StreamName)
	s.Equal(slog.LevelDebug, cfg.Level())
	s.Equal([]byte("s3cret"), cfg.AuthConfig().Secret)
}

func (s *ConfigSuite) TestRejectsUnknownStorage() {
	s.T().Setenv("TRIVIA_STORAGE", "sqlite")
	_, err := Load()
	s.ErrorContains(err, "TRIVIA_STORAGE")
}

func (s *ConfigSuite) TestRejectsUnknownProvider() {
	s.T().Setenv("TRIVIA_PROVIDER", "trivia-crack")
	_, err := Load()
	s.ErrorContains(err, "TRIVIA_PROVIDER")
}

func (s *ConfigSuite) TestRejectsBadDuration() {
	s.T().Setenv("TRIVIA_ROUND_DURATION", "soon")
	_, err := Load()
	s.Error(err)
}

func (s *ConfigSuite) TestRejectsBadLogLevel() {
	s.T().Setenv("TRIVIA_LOG_LEVEL", "loud")
	_, err := Load()
	s.ErrorContains(err, "log level")
}
