package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"empath-relay/handler"
	"empath-relay/internal/adapter"
	"empath-relay/internal/config"
	"empath-relay/internal/integrations/hfhub"
	"empath-relay/internal/logging"
	"empath-relay/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logging.New(cfg.Debug, cfg.LogFile)

	client, err := hfhub.NewClient(cfg.Token, cfg.Provider)
	if err != nil {
		return fmt.Errorf("hub client: %w", err)
	}

	inv, err := adapter.New(client, log)
	if err != nil {
		return fmt.Errorf("invocation adapter: %w", err)
	}

	chat, err := usecase.NewChatService(inv, cfg.DefaultModel, cfg.MaxNewTokens, cfg.Temperature, cfg.CannedReply)
	if err != nil {
		return fmt.Errorf("chat service: %w", err)
	}

	h, err := handler.NewHandler(chat, cfg.View(), cfg.Debug, log)
	if err != nil {
		return fmt.Errorf("handler: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.WithField("addr", addr).Info("starting chat relay")
	return h.Router().Run(addr)
}
