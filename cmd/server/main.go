package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"sme-billing/internal/adapters/cli"
	"sme-billing/internal/config"
	"sme-billing/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.Setup(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("logger setup")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Serve(ctx, cfg, cfg.Server.MigrateOnStart); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
