package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/bookdigest/internal/api"
	"github.com/dgallion1/bookdigest/internal/cache"
	"github.com/dgallion1/bookdigest/internal/cache/sqlite"
	"github.com/dgallion1/bookdigest/internal/config"
	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the stage cache.
	var store cache.Store = cache.NewMemory()
	if cfg.CacheDBPath != "" {
		store, err = sqlite.OpenSQLite(ctx, cfg.CacheDBPath)
		if err != nil {
			log.Error("failed to open cache", "path", cfg.CacheDBPath, "error", err)
			os.Exit(1)
		}
	}

	stats := llm.NewStats(cfg.StatsWindow)
	newProvider := func(ctx context.Context, s llm.Settings) (llm.Provider, error) {
		p, err := llm.New(ctx, s, log)
		if err != nil {
			return nil, err
		}
		return llm.Instrument(p, stats), nil
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Cache:       store,
		NewProvider: newProvider,
		RunTTL:      cfg.RunTTL,
		DocumentTTL: cfg.DocumentTTL,
		Log:         log,
	})
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, newProvider, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		if err := store.Close(); err != nil {
			log.Warn("failed to close cache", "error", err)
		}
	}()

	log.Info("starting bookdigest",
		"port", cfg.Port,
		"provider", cfg.LLM.Provider,
		"cache", cfg.CacheDBPath,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}
