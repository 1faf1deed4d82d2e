package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/uicestone/minimars-server-sub000/internal/config"
	"github.com/uicestone/minimars-server-sub000/internal/domain/loyalty"
	"github.com/uicestone/minimars-server-sub000/internal/infra/broker"
	"github.com/uicestone/minimars-server-sub000/internal/logging"
)

// events consumes settlement events from the broker and syncs points and
// balances to the loyalty program.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal := zerolog.New(os.Stderr)
		fatal.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg)
	if cfg.RabbitMQURL == "" {
		log.Fatal().Msg("RABBITMQ_URL is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	consumer := broker.NewConsumer(cfg.RabbitMQURL, cfg.EventsQueue, loyalty.Handler(loyalty.NewLogSyncer(log)), log)
	log.Info().Str("queue", cfg.EventsQueue).Msg("events consumer started")
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("consumer stopped")
	}
	log.Info().Msg("events consumer stopped")
}
