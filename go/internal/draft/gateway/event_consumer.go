package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/draft/broadcast"
	"github.com/mcdev12/courtside/go/internal/draft/events"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer
type JetStreamConsumerConfig struct {
	StreamName     string
	FilterSubjects []string
}

// DefaultJetStreamConsumerConfig returns default JetStream consumer configuration
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		StreamName:     broadcast.DefaultJetStreamConfig().StreamName,
		FilterSubjects: broadcast.StreamSubjects(),
	}
}

// LeagueBroadcaster receives decoded envelopes. *ConnectionManager satisfies it.
type LeagueBroadcaster interface {
	BroadcastToLeague(event events.Event) error
}

// EventConsumer reads the draft stream with an ordered, ephemeral consumer and
// forwards every envelope to the websocket clients of its league. Each gateway
// replica sees every event; delivery to browsers is best-effort.
type EventConsumer struct {
	js     jetstream.JetStream
	sink   LeagueBroadcaster
	config JetStreamConsumerConfig
}

// NewEventConsumer creates a new JetStream event consumer
func NewEventConsumer(js jetstream.JetStream, sink LeagueBroadcaster, config JetStreamConsumerConfig) *EventConsumer {
	return &EventConsumer{js: js, sink: sink, config: config}
}

// Start consumes new events until ctx is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	consumer, err := ec.js.OrderedConsumer(ctx, ec.config.StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: ec.config.FilterSubjects,
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create ordered consumer: %w", err)
	}

	log.Info().
		Str("stream", ec.config.StreamName).
		Strs("subjects", ec.config.FilterSubjects).
		Msg("starting JetStream event consumer")

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := ec.HandleEnvelope(msg.Data()); err != nil {
			log.Error().
				Err(err).
				Str("subject", msg.Subject()).
				Msg("failed to process message")
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	<-ctx.Done()
	log.Info().Msg("event consumer shutting down")
	return nil
}

// HandleEnvelope decodes one published event and broadcasts it.
func (ec *EventConsumer) HandleEnvelope(data []byte) error {
	var event events.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}
	if event.Type == "" || event.LeagueID == uuid.Nil {
		return fmt.Errorf("incomplete event envelope %s", event.ID)
	}

	log.Debug().
		Str("event_id", event.ID.String()).
		Str("league_id", event.LeagueID.String()).
		Str("event_type", string(event.Type)).
		Msg("processing JetStream event")

	return ec.sink.BroadcastToLeague(event)
}
