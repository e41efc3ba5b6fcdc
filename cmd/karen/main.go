package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/karenbot/karen/internal/conversation"
	"github.com/karenbot/karen/internal/notify"
	"github.com/karenbot/karen/internal/responder"
	"github.com/karenbot/karen/internal/storage"
	"github.com/karenbot/karen/internal/webhook"
	"github.com/karenbot/karen/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration; the default file is optional, env vars and
	// defaults are enough to run.
	path := *configPath
	if path == "config.yaml" {
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", path))
	}

	window := cfg.Conversation.ExpirationWindow
	if window <= 0 {
		window = conversation.DefaultExpirationWindow
	}

	// Initialize storage
	probeCtx, cancelProbe := context.WithTimeout(context.Background(), 5*time.Second)
	store, err := storage.Open(probeCtx, storage.Config{
		Backend: cfg.Storage.Backend,
		Redis: storage.RedisConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		},
		Postgres: storage.PostgresConfig{
			Host:     cfg.Storage.Postgres.Host,
			Port:     cfg.Storage.Postgres.Port,
			User:     cfg.Storage.Postgres.User,
			Password: cfg.Storage.Postgres.Password,
			DBName:   cfg.Storage.Postgres.DBName,
			SSLMode:  cfg.Storage.Postgres.SSLMode,
		},
		TTL: 2 * window,
	}, logger)
	cancelProbe()
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Storage ready", zap.String("backend", store.Type()))

	// Initialize escalation notifier
	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.Telegram.Enabled && cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Warn("Telegram notifier unavailable, escalations will only be logged", zap.Error(err))
		} else {
			notifier = tg
			logger.Info("Telegram escalation notifier enabled")
		}
	}

	// Initialize conversation manager
	manager := conversation.NewManager(store, conversation.Config{
		ExpirationWindow: cfg.Conversation.ExpirationWindow,
		RecentMessages:   cfg.Conversation.RecentMessages,
	}, logger, conversation.WithNotifier(notifier))

	// Initialize responder
	var rsp responder.Responder = responder.NewTemplateResponder()
	if cfg.OpenAI.APIKey != "" {
		rsp = responder.NewGPTResponder(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.OpenAI.MaxTokens,
			cfg.OpenAI.Temperature,
			logger,
		)
		logger.Info("GPT responder enabled", zap.String("model", cfg.OpenAI.Model))
	} else {
		logger.Info("Template responder enabled")
	}

	// Start background cleanup
	cleanup := conversation.NewCleanupService(manager, cfg.Conversation.CleanupSchedule, logger)
	if err := cleanup.Start(); err != nil {
		logger.Fatal("Failed to start cleanup service", zap.Error(err))
	}
	defer cleanup.Stop()

	// Start the webhook server; SIGINT/SIGTERM drain it gracefully.
	server := webhook.NewServer(cfg.Server.Address, manager, rsp, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Error("Webhook server shutdown failed", zap.Error(err))
		}
	}()

	if err := server.Start(); err != nil {
		logger.Fatal("Webhook server error", zap.Error(err))
	}
}
