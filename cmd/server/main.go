package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/rfpgest/internal/api"
	"github.com/dgallion1/rfpgest/internal/config"
	"github.com/dgallion1/rfpgest/internal/pipeline"
	"github.com/dgallion1/rfpgest/internal/storage"
)

func main() {
	boot := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := config.LoadDotEnv(".env"); err != nil {
		boot.Warn("ignoring .env", "error", err)
	}

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Error("open preset database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	configs := storage.NewConfigRepo(db)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, nil, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, configs, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting rfpgest", "port", cfg.Port, "workers", cfg.WorkerCount, "db", cfg.DBPath)
		serveErr <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	select {
	case <-sigCh:
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			exitCode = 1
		}
	}

	// The HTTP server stops first so no request can Submit into a closed queue.
	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	shutdownCancel()

	orch.Stop()

	if err := db.Close(); err != nil {
		log.Warn("close preset database", "error", err)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
