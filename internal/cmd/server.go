package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/PauloHFS/giftideas/internal/config"
	"github.com/PauloHFS/giftideas/internal/ideas"
	"github.com/PauloHFS/giftideas/internal/logging"
	"github.com/PauloHFS/giftideas/internal/middleware"
	"github.com/PauloHFS/giftideas/internal/telemetry"
	"github.com/PauloHFS/giftideas/internal/web"
)

func RunServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logging.Init()
	logger := logging.Get()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Options{
		Exporter: cfg.Tracing.Exporter,
		Endpoint: cfg.Tracing.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	// 1. LLM gateway. A broken config keeps the API up and answers 503.
	var gateway ideas.Gateway
	base, err := newLLMClient(cfg, logger)
	if err == nil {
		client, overrideErr := applyOverridesFile(base, cfg.LLM.OverridesFile)
		if overrideErr != nil {
			logger.Error("failed to apply llm overrides, using environment config",
				"path", cfg.LLM.OverridesFile, "error", overrideErr)
			client = base
		}
		logger.Info("llm gateway configured", slog.Any("config", client.DescribeConfig()))
		gateway = client
	} else {
		logger.Error("llm gateway unavailable", "error", err)
		gateway = unavailableGateway{err: asConfigurationError(err)}
	}

	generator, err := newGenerator(cfg, gateway, logger)
	if err != nil {
		return err
	}

	// 2. Hot reload of the overrides file.
	if base != nil && cfg.LLM.OverridesFile != "" {
		go func() {
			err := config.WatchFile(ctx, cfg.LLM.OverridesFile, logger, func() {
				next, err := applyOverridesFile(base, cfg.LLM.OverridesFile)
				if err != nil {
					logger.Error("llm overrides reload failed, keeping current config", "error", err)
					return
				}
				generator.SetGateway(next)
				logger.Info("llm overrides reloaded", slog.Any("config", next.DescribeConfig()))
			})
			if err != nil {
				logger.Error("llm overrides watcher stopped", "error", err)
			}
		}()
	}

	// 3. HTTP
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.Cleanup(ctx, time.Minute, 3*time.Minute)

	handler := web.NewHandler(web.HandlerDeps{
		Generator: generator,
		Config:    cfg,
	}, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gzhttp.GzipHandler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("server stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited properly")
	return nil
}
