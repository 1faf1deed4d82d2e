package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/uicestone/minimars-server-sub000/internal/app"
	"github.com/uicestone/minimars-server-sub000/internal/config"
	"github.com/uicestone/minimars-server-sub000/internal/logging"
	"github.com/uicestone/minimars-server-sub000/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "run every job once and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal := zerolog.New(os.Stderr)
		fatal.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg)

	a, err := app.New(cfg, log, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sw := worker.NewSweeper(a.Bookings, a.Cards, cfg.SweepInterval, log)
	if *once {
		done := sw.RunOnce(ctx)
		log.Info().Interface("jobs", done).Msg("sweep completed")
		return
	}
	sw.Start(ctx)
}
