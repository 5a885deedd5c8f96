package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/josinaldojr/finlit-quiz/internal/app"
	"github.com/josinaldojr/finlit-quiz/internal/config"
	"github.com/josinaldojr/finlit-quiz/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.Telegram.Token == "" {
		log.Fatal("TELEGRAM_TOKEN environment variable is required")
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init services: %v", err)
	}
	defer a.Close()

	bot, err := telegram.NewBot(cfg.Telegram.Token, a.Quiz)
	if err != nil {
		log.Fatalf("failed to init telegram bot: %v", err)
	}

	log.Println("bot is starting...")
	if err := bot.Run(ctx); err != nil {
		log.Fatalf("bot stopped: %v", err)
	}
}
