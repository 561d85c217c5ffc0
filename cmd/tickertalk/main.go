// Tickertalk server — conversational financial analytics: session API,
// background analysis orchestration, and the SSE event stream.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tickertalk/tickertalk/pkg/api"
	"github.com/tickertalk/tickertalk/pkg/collect"
	"github.com/tickertalk/tickertalk/pkg/config"
	"github.com/tickertalk/tickertalk/pkg/entity"
	"github.com/tickertalk/tickertalk/pkg/events"
	"github.com/tickertalk/tickertalk/pkg/forecast"
	"github.com/tickertalk/tickertalk/pkg/intent"
	"github.com/tickertalk/tickertalk/pkg/llm"
	"github.com/tickertalk/tickertalk/pkg/orchestrator"
	"github.com/tickertalk/tickertalk/pkg/session"
	"github.com/tickertalk/tickertalk/pkg/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	envPath := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", *envPath, "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			slog.Error("Error closing Redis client", "error", err)
		}
	}()

	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "addr", cfg.Redis.Addr(), "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to Redis", "addr", cfg.Redis.Addr())

	st := store.New(rdb)
	publisher := events.NewPublisher(rdb)
	subscriber := events.NewSubscriber(rdb)

	llmClient := llm.NewOpenAIClient(cfg.LLM)
	modelService := forecast.NewServiceClient(cfg.Models)
	candidates := modelService.Candidates()

	orch := orchestrator.New(orchestrator.Deps{
		Store:       st,
		Publisher:   publisher,
		LLM:         llmClient,
		Classifier:  intent.NewClassifier(llmClient),
		Resolver:    entity.NewIndexResolver(cfg.Entity),
		Prices:      collect.NewPriceClient(cfg.Prices),
		News:        collect.NewDualSourceNews(cfg.News),
		Research:    collect.NewResearchClient(cfg.Research),
		Zones:       collect.NewZoneClient(cfg.Models, st),
		Selector:    forecast.NewSelector(cfg.Models, candidates),
		Forecasters: candidates,
		Models:      cfg.Models,
	})

	sessions := session.New(st, orch)
	server := api.NewServer(sessions, subscriber, st).HTTPServer(":" + cfg.HTTP.Port)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// Stop accepting new work first, then drain active orchestrations.
	httpCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := server.Shutdown(httpCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if !orch.Shutdown(shutdownTimeout) {
		slog.Warn("Shutdown timeout exceeded, active analyses interrupted")
	}

	slog.Info("Shutdown complete")
}
