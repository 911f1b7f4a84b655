package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/graphdesk/server/internal/config"
	"github.com/graphdesk/server/internal/logger"
	"github.com/graphdesk/server/internal/policy"
	"github.com/graphdesk/server/internal/service"
	"github.com/graphdesk/server/internal/store"
	v1 "github.com/graphdesk/server/internal/transport/http/v1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Int("port", cfg.HTTPPort).
		Str("store", cfg.StoreDriver).
		Msg("starting graphdesk server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	var db store.Store
	switch cfg.StoreDriver {
	case config.DriverRedis:
		db, err = store.NewRedisStore(ctx, cfg.RedisURL, cfg.StoreTimeout)
	default:
		db, err = store.NewSQLiteStore(cfg.DatabaseURL, cfg.StoreTimeout)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer db.Close()

	// Initialize policy engine
	var policyEngine *policy.Engine
	if cfg.PolicyPath != "" {
		policyEngine, err = policy.NewEngineFromFile(ctx, cfg.PolicyPath)
	} else {
		policyEngine, err = policy.NewEngine(ctx, policy.DefaultPolicy)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize policy engine")
	}
	defer policyEngine.Close()

	// Initialize service and handlers
	svc := service.New(db, policyEngine)
	h := v1.NewHandler(svc)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	log.Info().Int("port", cfg.HTTPPort).Msg("API started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down gracefully")
	}
	log.Info().Msg("server stopped")
}
