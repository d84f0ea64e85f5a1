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

	"github.com/joho/godotenv"

	"github.com/hongminglow/custody-be/internal/config"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/server"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()
	if envErr != nil {
		logger.Info(ctx, "no .env file found; relying on existing environment")
	}

	openCtx, cancelOpen := context.WithTimeout(ctx, 30*time.Second)
	store, err := server.OpenStore(openCtx, cfg)
	cancelOpen()
	if err != nil {
		logger.Error(ctx, "init storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	srv, err := server.New(ctx, cfg, store, logger)
	if err != nil {
		logger.Error(ctx, "init server", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info(ctx, "custody backend listening", "addr", cfg.HTTPAddress(), "storage", cfg.StorageDriver)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Warn(ctx, "graceful shutdown error", "error", err)
	}
}
