package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/MichalZG/gaia-targets/internal/api"
	"github.com/MichalZG/gaia-targets/internal/cache"
	"github.com/MichalZG/gaia-targets/internal/catalog"
	"github.com/MichalZG/gaia-targets/internal/config"
	"github.com/MichalZG/gaia-targets/internal/health"
	"github.com/MichalZG/gaia-targets/internal/stream"
	"github.com/MichalZG/gaia-targets/internal/visibility"
	"github.com/MichalZG/gaia-targets/web"
)

func main() {
	dotenvErr := config.LoadDotEnv(".env")
	logger := config.NewLogger(os.Stdout)
	if dotenvErr != nil {
		logger.Warn("ignoring .env file", "error", dotenvErr)
	}

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	loader := &catalog.Loader{
		Source:   cfg.Catalog.Source,
		CacheDir: cfg.Catalog.CacheDir,
		MaxFiles: cfg.Catalog.MaxFiles,
		Clock:    clock,
		Logger:   logger,
	}
	cat, err := loader.Load(ctx)
	if err != nil {
		logger.Error("failed to load catalog", "source", cfg.Catalog.Source, "error", err)
		os.Exit(1)
	}

	engine := visibility.NewEngine(cat, cfg.Engine, logger)
	results := cache.NewResultCache(cfg.Cache, engine, clock, logger)
	streamHandler := stream.NewHandler(results, cfg.Stream, clock, logger)

	srv := api.NewServer(cfg.HTTPAddr, logger, cfg.Auth, api.Deps{
		Catalog:   cat,
		Computer:  results,
		Stats:     results,
		Stream:    streamHandler.HandleVisibility,
		Readiness: []health.ReadinessChecker{results},
		Static:    web.Content,
		Clock:     clock,
		Defaults:  cfg.Defaults,
		Offsets:   engine.Offsets(),
	})

	// Start cache background worker.
	go results.Start(ctx)

	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTPAddr,
			"auth_enabled", cfg.Auth.Enabled,
			"targets", cat.Len(),
			"catalog_source", cat.Source,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

