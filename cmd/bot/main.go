// Package main is the entry point for the dataset bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/timik232/dataset-bot/internal/auth"
	"github.com/timik232/dataset-bot/internal/bot"
	"github.com/timik232/dataset-bot/internal/config"
	"github.com/timik232/dataset-bot/internal/dataset"
	"github.com/timik232/dataset-bot/internal/engine"
	"github.com/timik232/dataset-bot/internal/llm"
	"github.com/timik232/dataset-bot/internal/ops"
	"github.com/timik232/dataset-bot/internal/transport"
	"github.com/timik232/dataset-bot/internal/workflow"
	"github.com/timik232/dataset-bot/pkg/logger"
	"github.com/timik232/dataset-bot/pkg/tracing"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting dataset bot")

	// Initialize tracing if enabled
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "dataset-bot", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	if cfg.VKToken == "" {
		log.Error("VK_TOKEN is required")
		os.Exit(1)
	}
	if cfg.PasswordHash == "" {
		log.Error("PASSWORD_HASH is required")
		os.Exit(1)
	}

	// Load the dataset
	store := dataset.NewStore(cfg.DatasetPath, log)
	if err := store.Load(cfg.DefaultSystem); err != nil {
		log.Error("failed to load dataset", zap.Error(err))
		os.Exit(1)
	}
	log.Info("dataset loaded",
		zap.String("path", cfg.DatasetPath),
		zap.Int("topics", store.Len()),
	)

	// Load registered users
	gate := auth.NewGate(cfg.PasswordHash, cfg.UsersPath, log)
	if err := gate.Load(); err != nil {
		log.Error("failed to load users", zap.Error(err))
		os.Exit(1)
	}

	// Initialize LLM client
	var model llm.Client
	switch llm.Provider(cfg.DefaultLLM) {
	case llm.ProviderAnthropic:
		if cfg.AnthropicAPIKey != "" {
			model, err = llm.NewClient(llm.Config{
				Provider: llm.ProviderAnthropic,
				APIKey:   cfg.AnthropicAPIKey,
			})
		}
	default:
		if cfg.OpenAIAPIKey != "" {
			model, err = llm.NewClient(llm.Config{
				Provider: llm.ProviderOpenAI,
				APIKey:   cfg.OpenAIAPIKey,
				BaseURL:  cfg.OpenAIBaseURL,
			})
		}
	}
	if err != nil {
		log.Warn("failed to create LLM client, chat disabled", zap.Error(err))
		model = nil
	}
	if model == nil {
		log.Warn("no LLM API key configured, chat disabled")
	}

	// Wire the conversation engine
	vk := transport.NewVKClient(cfg.VKToken, log)
	registry := engine.NewRegistry()
	flows := workflow.New(store, model, cfg.ModelName, vk, log)
	flows.Register(registry)
	dispatcher := engine.NewDispatcher(registry, flows, vk, log)
	sessions := engine.NewSessions(workflow.StateMenu)
	b := bot.New(vk, vk, dispatcher, sessions, gate, log)

	// Backup sweeper
	sweeper := dataset.NewSweeper(cfg.DatasetPath, cfg.BackupDir, cfg.BackupKeep, cfg.BackupDebounce, log)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("backup sweeper stopped", zap.Error(err))
		}
	}()

	// Ops server
	var ready atomic.Bool
	opsServer := ops.NewServer(cfg.OpsPort, ready.Load, log)
	go func() {
		if err := opsServer.Start(); err != nil {
			log.Error("ops server error", zap.Error(err))
		}
	}()

	// Run the poll loop until a shutdown signal arrives
	ready.Store(true)
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped", zap.Error(err))
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("ops server forced to shutdown", zap.Error(err))
	}

	log.Info("stopped")
}
