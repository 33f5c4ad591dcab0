// Package main is the entry point for the WhatsApp bridge.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nextshop/wabridge/internal/chats"
	"github.com/nextshop/wabridge/internal/config"
	"github.com/nextshop/wabridge/internal/health"
	"github.com/nextshop/wabridge/internal/session"
	"github.com/nextshop/wabridge/internal/state"
	"github.com/nextshop/wabridge/internal/store"
	"github.com/nextshop/wabridge/internal/whatsapp"
	"github.com/nextshop/wabridge/pkg/api"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to config file")
	logLevel   = flag.String("log-level", "", "Log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Override log level from flag if provided
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var logHandler slog.Handler
	if cfg.LogFormat == "text" {
		logHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		logHandler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("WhatsApp bridge starting",
		"config", *configPath,
		"log_level", cfg.LogLevel,
		"http_port", cfg.HTTPPort,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize WhatsApp client
	waClient, err := whatsapp.NewClient(ctx, &whatsapp.Config{SessionPath: cfg.SessionPath}, logger)
	if err != nil {
		logger.Error("Failed to create WhatsApp client", "error", err)
		os.Exit(1)
	}
	defer waClient.Disconnect()

	// Session state, message store, chat cache
	sm := state.NewMachine()
	msgStore := store.NewMessageStore(store.DefaultCap)
	chatCache := chats.NewCache(waClient, sm, logger)
	monitor := health.NewMonitor(sm)

	manager := session.NewManager(waClient, sm, chatCache, msgStore, monitor, logger)
	manager.Start(ctx)
	go chatCache.Run(ctx, cfg.SyncInterval)

	// HTTP API
	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(waClient, manager, chatCache, msgStore, monitor,
		cfg.AllowedOrigins, cfg.SendResyncDelay, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler.Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	logger.Info("Bridge initialized",
		"session_path", cfg.SessionPath,
		"state", sm.MustState(),
	)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig)
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}

	// Graceful shutdown
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	logger.Info("WhatsApp bridge stopped")
}
