// Package main is the entry point for the agent orchestrator server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driftcode/agentserver/internal/config"
	"github.com/driftcode/agentserver/internal/logging"
	"github.com/driftcode/agentserver/internal/provider"
	"github.com/driftcode/agentserver/internal/server"
	"github.com/driftcode/agentserver/internal/session"
	"github.com/driftcode/agentserver/internal/storage"
	"github.com/driftcode/agentserver/internal/tool"
)

var versionFlag = flag.Bool("version", false, "Print version and exit")

const version = "0.1.0"

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("agentserver %s\n", version)
		os.Exit(0)
	}

	cfg := config.Load()
	logging.Init(logging.Config{Level: logging.ParseLevel(cfg.LogLevel), Output: os.Stderr})

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	registry := tool.DefaultRegistry()

	adapter := provider.New(provider.Config{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   cfg.OpenRouterModel,
	})

	orchestrator := session.NewOrchestrator(adapter, registry)
	manager := session.NewManager(store, orchestrator)

	srv := server.New(cfg, manager, registry)

	go func() {
		logging.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("shutdown error")
	}
}
