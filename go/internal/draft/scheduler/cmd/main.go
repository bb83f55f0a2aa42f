package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/go/internal/config"
	"github.com/mcdev12/courtside/go/internal/draft/draft"
	"github.com/mcdev12/courtside/go/internal/draft/scheduler"
)

// Standalone expiry scheduler. It drives a remote API server through the draft
// RPC client, so any number of API replicas can share one scheduler.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	config.SetupLogging("scheduler")

	apiURL := config.GetEnv("DRAFT_API_URL", "http://localhost:8080")
	client := draft.NewClient(&http.Client{Timeout: 15 * time.Second}, apiURL)

	cfg := scheduler.DefaultConfig()
	cfg.PollInterval = config.GetEnvAsDuration("SCHEDULER_POLL_INTERVAL", cfg.PollInterval)
	cfg.BatchSize = config.GetEnvAsInt("SCHEDULER_BATCH_SIZE", cfg.BatchSize)
	cfg.Workers = config.GetEnvAsInt("SCHEDULER_WORKERS", cfg.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("api_url", apiURL).Msg("starting standalone expiry scheduler")
	if err := scheduler.New(client, clockwork.NewRealClock(), cfg).Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("scheduler exited")
	}
	log.Info().Msg("graceful shutdown complete")
}
