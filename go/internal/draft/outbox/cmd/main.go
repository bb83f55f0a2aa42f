package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/courtside/go/internal/config"
	"github.com/mcdev12/courtside/go/internal/dbconfig"
	"github.com/mcdev12/courtside/go/internal/draft/broadcast"
	"github.com/mcdev12/courtside/go/internal/draft/outbox"
	"github.com/mcdev12/courtside/go/internal/metrics"
)

func main() {
	// load .env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	config.SetupLogging("outbox-relay")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB config
	cfg := dbconfig.NewConfigFromEnv()
	dsn := cfg.DSN()
	db, err := cfg.Open(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()
	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to database")

	// JetStream publisher
	jsCfg := broadcast.DefaultJetStreamConfig()
	jsCfg.URL = config.GetEnv("NATS_URL", jsCfg.URL)
	publisher, err := broadcast.NewJetStreamPublisher(ctx, jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create JetStream publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("close publisher")
		}
	}()

	// Relay config
	relayCfg := outbox.DefaultRelayConfig()
	relayCfg.DatabaseURL = dsn
	relayCfg.FallbackInterval = config.GetEnvAsDuration("FALLBACK_INTERVAL", relayCfg.FallbackInterval)
	relayCfg.MaxRetries = config.GetEnvAsInt("OUTBOX_MAX_RETRIES", relayCfg.MaxRetries)

	notifier, err := outbox.NewPQNotifier(relayCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create outbox listener")
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheus(registry)
	clock := clockwork.NewRealClock()
	store := outbox.NewRepository(db)
	relay := outbox.NewRelay(store, notifier, publisher, clock, recorder, relayCfg)
	health := outbox.NewHealthChecker(relay, db, store, func() bool {
		return publisher.Conn().IsConnected()
	}, clock, config.GetEnvAsDuration("OUTBOX_STALE_AFTER", 5*time.Minute))

	mux := http.NewServeMux()
	mux.Handle("/health", health)
	mux.Handle("/metrics", metrics.Handler(registry))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetEnv("OUTBOX_HTTP_PORT", "8082")),
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msg("starting outbox relay")
		return relay.Start(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("serving relay health and metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("outbox relay exited unexpectedly")
		return
	}
	log.Info().Msg("graceful shutdown complete")
}
