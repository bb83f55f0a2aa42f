package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/courtside/go/internal/draft/broadcast"
	"github.com/mcdev12/courtside/go/internal/draft/draft"
	"github.com/mcdev12/courtside/go/internal/draft/outbox"
	"github.com/mcdev12/courtside/go/internal/draft/scheduler"
	"github.com/mcdev12/courtside/go/internal/metrics"
	"github.com/mcdev12/courtside/go/internal/player"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Services struct {
	DB        *sql.DB
	Draft     *draft.Service
	Publisher *broadcast.JetStreamPublisher
	Registry  *prometheus.Registry
	// Scheduler is nil when expiry runs in the standalone scheduler process.
	Scheduler *scheduler.Scheduler
}

func setupServices(ctx context.Context, cfg *Config, database *sql.DB) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	clock := clockwork.NewRealClock()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheus(registry)

	// Broadcast
	publisher, err := broadcast.NewJetStreamPublisher(ctx, cfg.jetStreamConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
	}
	gatewayOpts := []broadcast.Option{broadcast.WithClock(clock), broadcast.WithMetrics(recorder)}
	if cfg.Broadcast.Spool {
		gatewayOpts = append(gatewayOpts, broadcast.WithSpool(outbox.NewRepository(database)))
	}
	notifier := broadcast.NewGateway(publisher, gatewayOpts...)

	// Players
	playerApp := player.NewApp(player.NewRepository(database), cfg.cacheConfig())

	// Draft
	draftRepo := draft.NewPostgresRepository(database)
	draftApp := draft.NewApp(draftRepo, playerApp, notifier,
		draft.WithClock(clock),
		draft.WithMetrics(recorder),
		draft.WithDefaults(cfg.draftDefaults()),
	)

	services := &Services{
		DB:        database,
		Draft:     draft.NewService(draftApp),
		Publisher: publisher,
		Registry:  registry,
	}
	if cfg.Scheduler.Embedded {
		services.Scheduler = scheduler.New(draftApp, clock, cfg.schedulerConfig())
	}
	return services, nil
}
