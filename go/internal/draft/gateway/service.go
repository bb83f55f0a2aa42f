package gateway

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mcdev12/courtside/go/internal/draft/events"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Service is the draft gateway: it relays published draft events to
// websocket clients and serves state snapshots.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	eventConsumer     *EventConsumer
	config            Config
}

// Config holds configuration for the draft gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
	AllowedOrigins   []string
}

// DefaultConfig returns default configuration for the draft gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
		AllowedOrigins:   []string{"*"},
	}
}

// NewService creates a new draft gateway service. js may be nil, in which case
// events only arrive through Broadcast.
func NewService(config Config, stateProvider StateProvider, js jetstream.JetStream) *Service {
	cm := NewConnectionManager(config.ConnectionConfig)
	s := &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, stateProvider),
		stateHandler:      NewStateHandler(stateProvider),
		config:            config,
	}
	if js != nil {
		s.eventConsumer = NewEventConsumer(js, cm, config.JetStreamConfig)
	}
	return s
}

// Start runs the connection manager and the event consumer until ctx ends.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting draft gateway service")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.connectionManager.Start(gctx)
		return nil
	})
	if s.eventConsumer != nil {
		g.Go(func() error {
			return s.eventConsumer.Start(gctx)
		})
	}

	err := g.Wait()
	log.Info().Msg("draft gateway service stopped")
	return err
}

// Routes returns the gateway's HTTP handler.
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)

	s.wsHandler.RegisterRoutes(r)
	s.stateHandler.RegisterRoutes(r)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
	return r
}

// Broadcast forwards an event to the league's clients without going through
// JetStream.
func (s *Service) Broadcast(event events.Event) error {
	return s.connectionManager.BroadcastToLeague(event)
}

// Stats returns statistics about the gateway service
func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.Stats()
}
