package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"portfolio/api/internal/app"
	"portfolio/api/internal/bootstrap"
	"portfolio/api/internal/config"
	"portfolio/api/internal/logging"
	"portfolio/api/internal/seed"
)

func main() {
	cfg := config.Load()
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx := context.Background()

	rt, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.EnsureAdmin(ctx); err != nil {
		log.Warn("bootstrap admin failed; will retry on next restart", zap.Error(err))
	}
	if path := strings.TrimSpace(cfg.SeedFile); path != "" {
		if doc, err := seed.Load(path); err != nil {
			log.Warn("seed file skipped", zap.Error(err))
		} else if _, err := rt.Service.ApplySeed(ctx, doc); err != nil {
			log.Warn("seed failed", zap.Error(err))
		}
	}

	opts := []app.Option{app.WithLogger(log), app.WithMetrics(rt.Metrics)}
	if rt.Files != nil {
		opts = append(opts, app.WithFiles(rt.Files))
	}
	httpServer := app.NewHTTPServer(rt.Service, opts...)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("portfolio api listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
