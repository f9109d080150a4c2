package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/elliehq/issue-relay/internal/biz/usecase"
	"github.com/elliehq/issue-relay/internal/conf"
	"github.com/elliehq/issue-relay/internal/data"
	"github.com/elliehq/issue-relay/internal/server"
	"github.com/elliehq/issue-relay/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Processed-event store
	store, err := data.NewStoreRepo(cfg.Store.DBPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// Optional pre-analysis
	analyzer := data.NewAnalyzerRepo(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	if analyzer != nil {
		fmt.Println("[Relay] OpenAI pre-analysis enabled")
	} else {
		fmt.Println("[Relay] Pre-analysis disabled, analysis handled by the automation service")
	}

	// Webhook dispatcher
	dispatcher := data.NewWebhookRepo(data.DefaultWebhookConfig(cfg.Webhook.URL, cfg.Webhook.Secret))

	// Core pipeline
	gate := usecase.NewAccessGate(cfg.Access.Chats, cfg.Access.Users, cfg.Access.TriggerEmojis)
	buffers := usecase.NewBufferRegistry(cfg.ToBufferConfig())
	limiter := usecase.NewRateLimiter(cfg.ToRateLimitConfig())
	assembler := usecase.NewAssembler(usecase.AssemblerConfig{Anonymize: cfg.Context.Anonymize})
	detector := usecase.NewTriggerDetector(gate, buffers, limiter, assembler, store, cfg.Context.MaxMessages)

	svc := service.NewRelayService(gate, buffers, detector, dispatcher, analyzer, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.StartCleanupLoop(ctx, 24*time.Hour, 30*24*time.Hour)

	fmt.Printf("[Relay] Whitelisted chats: %v\n", cfg.Access.Chats)
	fmt.Printf("[Relay] Whitelisted users: %v\n", cfg.Access.Users)
	fmt.Printf("[Relay] Trigger emojis: %v, rate limit %d/%ds, context %d messages, anonymize=%v\n",
		cfg.Access.TriggerEmojis, cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSeconds,
		cfg.Context.MaxMessages, cfg.Context.Anonymize)

	if stats, err := store.Stats(ctx); err == nil {
		fmt.Printf("[Relay] Store: %d reactions, %d dispatches tracked\n", stats.ProcessedReactions, stats.Dispatches)
	}

	errCh := make(chan error, 1)

	switch cfg.Platform {
	case conf.PlatformTelegram:
		tg, err := server.NewTelegramServer(cfg.Telegram.BotToken, svc)
		if err != nil {
			log.Fatalf("Failed to create Telegram server: %v", err)
		}
		svc.SetNotifier(tg)
		go func() { errCh <- tg.Start(ctx) }()
	case conf.PlatformFeishu:
		fs := server.NewFeishuServer(cfg.Feishu.AppID, cfg.Feishu.AppSecret, svc)
		svc.SetNotifier(fs)
		defer fs.Stop()
		go func() { errCh <- fs.Start(ctx) }()
	}

	fmt.Printf("[Relay] Running on %s. React with a trigger emoji to flag an issue.\n", cfg.Platform)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		fmt.Printf("\n[Relay] Received %v, shutting down\n", sig)
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Platform adapter stopped: %v", err)
		}
	}
}
