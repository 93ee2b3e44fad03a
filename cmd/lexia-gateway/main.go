package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lexia-ai/lexia-gateway/internal/audit"
	"github.com/lexia-ai/lexia-gateway/internal/casectx"
	"github.com/lexia-ai/lexia-gateway/internal/config"
	"github.com/lexia-ai/lexia-gateway/internal/controller"
	"github.com/lexia-ai/lexia-gateway/internal/orchestrator"
	"github.com/lexia-ai/lexia-gateway/internal/provider"
	"github.com/lexia-ai/lexia-gateway/internal/quota"
	"github.com/lexia-ai/lexia-gateway/internal/routing"
	"github.com/lexia-ai/lexia-gateway/internal/server"
	"github.com/lexia-ai/lexia-gateway/internal/storage"
	"github.com/lexia-ai/lexia-gateway/internal/storage/memory"
	"github.com/lexia-ai/lexia-gateway/internal/storage/sqlite"
	"github.com/lexia-ai/lexia-gateway/internal/telemetry"
	"github.com/lexia-ai/lexia-gateway/internal/tokens"
	"github.com/lexia-ai/lexia-gateway/internal/tools"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer("lexia-gateway", logger)
		if err != nil {
			log.Fatalf("failed to initialize tracer: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer store.Close()

	providers := provider.FromConfig(cfg)
	if len(providers) == 0 {
		logger.Warn("no provider API keys configured, every model call will fail")
	}

	routes := routing.NewRegistry()
	ctrl := controller.New(routes, casectx.NewEnricher(store, logger), logger)

	handler := server.NewHandler(
		ctrl,
		quota.NewManager(store, logger),
		tools.NewRegistry(store),
		orchestrator.New(providers, routes, logger),
		audit.NewRecorder(store, logger),
		tokens.NewCounter(),
		routes,
		logger,
	)

	srv := server.New(cfg.Server.Port, time.Duration(cfg.Server.RequestTimeout)*time.Second, logger)
	handler.Mount(srv.Router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server failed: %v", err)
		}
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.Type == "memory" {
		return memory.New(), nil
	}
	return sqlite.New(cfg.Storage.SQLite.Path)
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
