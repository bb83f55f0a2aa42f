package broadcast

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/courtside/go/internal/draft/events"
	"github.com/mcdev12/courtside/go/internal/metrics"
	"github.com/rs/zerolog/log"
)

// ErrBroadcastFailed wraps any publish failure. The state change that produced
// the event is already committed when this is returned.
var ErrBroadcastFailed = errors.New("broadcast failed")

// Publisher delivers an envelope to its topic.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Spool keeps events that failed to publish so they can be retried later.
type Spool interface {
	Enqueue(ctx context.Context, event events.Event) error
}

// Gateway publishes league draft events, best effort.
type Gateway struct {
	publisher Publisher
	spool     Spool
	clock     clockwork.Clock
	metrics   metrics.Recorder
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithSpool hands failed events to s for later retry.
func WithSpool(s Spool) Option {
	return func(g *Gateway) { g.spool = s }
}

// WithClock overrides the time source for envelope timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(g *Gateway) { g.clock = c }
}

// WithMetrics reports publish outcomes to m.
func WithMetrics(m metrics.Recorder) Option {
	return func(g *Gateway) { g.metrics = m }
}

func NewGateway(publisher Publisher, opts ...Option) *Gateway {
	g := &Gateway{
		publisher: publisher,
		clock:     clockwork.NewRealClock(),
		metrics:   metrics.NoOp{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Broadcast publishes payload on the league's draft topic.
func (g *Gateway) Broadcast(ctx context.Context, leagueID uuid.UUID, eventType events.Type, payload any) error {
	event, err := events.New(leagueID, eventType, payload, g.clock.Now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBroadcastFailed, err)
	}
	return g.publish(ctx, event)
}

// Chat publishes an informational message on the league chat topic.
func (g *Gateway) Chat(ctx context.Context, leagueID, userID uuid.UUID, message string) error {
	payload := events.ChatMessagePayload{
		UserID:  userID,
		Message: message,
		SentAt:  g.clock.Now().UTC(),
	}
	return g.Broadcast(ctx, leagueID, events.TypeChatMessage, payload)
}

func (g *Gateway) publish(ctx context.Context, event events.Event) error {
	err := g.publisher.Publish(ctx, event)
	g.metrics.RecordBroadcast(string(event.Type), err == nil)
	if err == nil {
		return nil
	}

	log.Warn().
		Err(err).
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Str("league_id", event.LeagueID.String()).
		Msg("broadcast publish failed")

	// chat is informational and not worth a retry
	if g.spool != nil && event.Type != events.TypeChatMessage {
		if spoolErr := g.spool.Enqueue(ctx, event); spoolErr != nil {
			log.Error().
				Err(spoolErr).
				Str("event_id", event.ID.String()).
				Msg("failed to spool broadcast for retry")
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrBroadcastFailed, event.Type, err)
}
