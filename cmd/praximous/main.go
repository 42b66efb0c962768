package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nidhogg/praximous/internal/api"
	"github.com/nidhogg/praximous/internal/audit"
	"github.com/nidhogg/praximous/internal/config"
	"github.com/nidhogg/praximous/internal/dispatch"
	"github.com/nidhogg/praximous/internal/provider"
	"github.com/nidhogg/praximous/internal/router"
	"github.com/nidhogg/praximous/internal/skill"
)

func main() {
	_ = godotenv.Load()

	logger := newLogger(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	logger.Info("Starting Praximous...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/praximous.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Provider pool. A misconfigured enabled provider is fatal at startup.
	providers, err := provider.NewRegistry(cfg.Providers, logger)
	if err != nil {
		logger.Fatal("failed to load providers", zap.Error(err))
	}

	// Audit storage backend.
	store, err := newAuditStore(cfg.Audit, logger)
	if err != nil {
		logger.Fatal("failed to initialize audit store", zap.Error(err))
	}

	// Audit event mirror is optional: without Redis the gateway runs on
	// the durable store alone.
	var pub *audit.Publisher
	if cfg.Audit.RedisURL != "" {
		pub, err = audit.NewPublisher(cfg.Audit.RedisURL, logger)
		if err != nil {
			logger.Warn("Redis unavailable, running without audit events", zap.Error(err))
			pub = nil
		}
	}
	sink := audit.NewSink(store, pub, logger)

	// Skill registry with the failover router injected into model-backed
	// skills.
	modelRouter := router.New(providers, logger)
	skills := skill.NewRegistry(logger)
	if err := skill.RegisterBuiltins(skills, modelRouter, logger); err != nil {
		logger.Fatal("failed to register builtin skills", zap.Error(err))
	}
	logger.Info("Skills registered", zap.Strings("skills", skills.Names()))

	var dispatchOpts []dispatch.Option
	if cfg.Gateway.RequestTimeoutSeconds > 0 {
		dispatchOpts = append(dispatchOpts,
			dispatch.WithRequestTimeout(time.Duration(cfg.Gateway.RequestTimeoutSeconds)*time.Second))
	}
	if len(cfg.Gateway.AllowedSkills) > 0 {
		dispatchOpts = append(dispatchOpts, dispatch.WithAllowedSkills(cfg.Gateway.AllowedSkills))
	}
	dispatcher := dispatch.New(skills, sink, logger, dispatchOpts...)

	reload := func() error {
		fresh, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		return providers.Reload(fresh.Providers)
	}

	handler := api.NewHandler(dispatcher, skills, providers, sink, reload, logger)

	port := cfg.Server.Port
	if port == 0 {
		port = 8000
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Praximous listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Praximous...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	sink.Close()
}

func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func newAuditStore(cfg config.AuditConfig, logger *zap.Logger) (audit.Store, error) {
	switch cfg.Driver {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		store, err := audit.NewPostgresStore(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx, "migrations"); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case "sqlite":
		return audit.NewSQLiteStore(cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown audit driver %q", cfg.Driver)
	}
}
