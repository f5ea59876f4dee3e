package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mcoot/triviagame/internal/api"
	"github.com/mcoot/triviagame/internal/config"
	"github.com/mcoot/triviagame/internal/factory"
	"github.com/mcoot/triviagame/internal/services/questions"
	"github.com/mcoot/triviagame/internal/services/questions/opentdb"
)

func main() {
	// A missing .env file is fine; real environment variables still apply
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factoryCfg := factory.Config{
		Logger:          logger,
		StorageType:     cfg.Storage,
		Source:          newSource(cfg, logger),
		SessionConfig:   cfg.SessionConfig(),
		AuthConfig:      cfg.AuthConfig(),
		JetStreamConfig: cfg.JetStreamConfig(),
	}
	switch cfg.Storage {
	case config.StorageRedis:
		redisCfg := cfg.RedisConfig()
		factoryCfg.RedisConfig = &redisCfg
	case config.StoragePostgres:
		factoryCfg.PostgresConfig = &cfg.Postgres
	}
	if cfg.Scheduler.Enabled {
		schedCfg := cfg.SchedulerConfig()
		factoryCfg.SchedulerConfig = &schedCfg
	}

	app, err := factory.New(ctx, factoryCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Logger:            logger,
		AuthService:       app.AuthService,
		Catalog:           app.Catalog,
		SessionController: app.SessionController,
		Advancer:          app.Advancer,
		CORSOrigins:       cfg.CORSOrigins,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(router, serverConfig, logger)

	errCh := make(chan error, 2)
	if app.Scheduler != nil {
		go func() {
			if err := app.Scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage),
		slog.String("provider", cfg.Provider),
		slog.Bool("scheduler", app.Scheduler != nil),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newSource(cfg config.Config, logger *slog.Logger) questions.Source {
	if cfg.Provider == config.ProviderDemo {
		return questions.DemoProvider()
	}
	return opentdb.New(cfg.OpenTDBConfig(), logger)
}
