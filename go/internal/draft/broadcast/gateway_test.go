package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/courtside/go/internal/draft/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

type recordingSpool struct {
	events []events.Event
}

func (s *recordingSpool) Enqueue(_ context.Context, e events.Event) error {
	s.events = append(s.events, e)
	return nil
}

func TestBroadcastPublishesEnvelope(t *testing.T) {
	now := time.Date(2025, 10, 1, 19, 0, 0, 0, time.UTC)
	pub := &recordingPublisher{}
	g := NewGateway(pub, WithClock(clockwork.NewFakeClockAt(now)))
	league := uuid.New()

	err := g.Broadcast(context.Background(), league, events.TypeDraftPaused, events.DraftPausedPayload{TimeRemainingMs: 50000})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)

	ev := pub.events[0]
	assert.Equal(t, events.TypeDraftPaused, ev.Type)
	assert.Equal(t, league, ev.LeagueID)
	assert.Equal(t, now, ev.Timestamp)

	var payload events.DraftPausedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, int64(50000), payload.TimeRemainingMs)
}

func TestBroadcastFailureSpoolsEvent(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats: no responders")}
	spool := &recordingSpool{}
	g := NewGateway(pub, WithSpool(spool))

	err := g.Broadcast(context.Background(), uuid.New(), events.TypePickMade, events.PickMadePayload{CurrentPick: 3})
	require.ErrorIs(t, err, ErrBroadcastFailed)
	require.Len(t, spool.events, 1)
	assert.Equal(t, events.TypePickMade, spool.events[0].Type)
}

func TestChatFailureIsNotSpooled(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("down")}
	spool := &recordingSpool{}
	g := NewGateway(pub, WithSpool(spool))

	err := g.Chat(context.Background(), uuid.New(), uuid.New(), "on the clock!")
	assert.ErrorIs(t, err, ErrBroadcastFailed)
	assert.Empty(t, spool.events)
}

func TestNewMsgHeaders(t *testing.T) {
	ev, err := events.New(uuid.New(), events.TypeDraftCompleted, events.DraftCompletedPayload{TotalPicks: 8}, time.Now())
	require.NoError(t, err)

	msg, err := newMsg(ev)
	require.NoError(t, err)
	assert.Equal(t, ev.Subject(), msg.Subject)
	assert.Equal(t, ev.ID.String(), msg.Header.Get("Event-ID"))
	assert.Equal(t, "draft-completed", msg.Header.Get("Event-Type"))

	var decoded events.Event
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
}
