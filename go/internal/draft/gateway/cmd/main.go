package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/courtside/go/internal/config"
	"github.com/mcdev12/courtside/go/internal/draft/broadcast"
	"github.com/mcdev12/courtside/go/internal/draft/draft"
	"github.com/mcdev12/courtside/go/internal/draft/gateway"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	config.SetupLogging("gateway")

	port := config.GetEnv("GATEWAY_PORT", "8081")
	natsURL := config.GetEnv("NATS_URL", broadcast.DefaultJetStreamConfig().URL)
	apiURL := config.GetEnv("DRAFT_API_URL", "http://localhost:8080")

	nc, err := broadcast.Connect(natsURL, -1, 2*time.Second)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Drain()

	js, err := jetstream.New(nc)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create JetStream context")
	}

	// Snapshots come from the API server so the gateway holds no database handle.
	stateProvider := draft.NewClient(&http.Client{Timeout: 10 * time.Second}, apiURL)

	gatewayConfig := gateway.DefaultConfig()
	if origins := config.GetEnv("GATEWAY_ALLOWED_ORIGINS", ""); origins != "" {
		gatewayConfig.AllowedOrigins = strings.Split(origins, ",")
	}
	gatewayService := gateway.NewService(gatewayConfig, stateProvider, js)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", port),
		Handler:     gatewayService.Routes(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	log.Info().
		Str("nats_url", natsURL).
		Str("api_url", apiURL).
		Str("port", port).
		Msg("starting draft gateway")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gatewayService.Start(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("draft gateway exited unexpectedly")
		return
	}
	log.Info().Msg("draft gateway shutdown complete")
}
