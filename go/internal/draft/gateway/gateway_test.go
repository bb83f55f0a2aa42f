package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/courtside/go/internal/draft/draft"
	"github.com/mcdev12/courtside/go/internal/draft/events"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	app     *draft.App
	league  uuid.UUID
	service *Service
	server  *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := draft.NewMemoryStore()
	store.AddPlayers(models.Player{ID: uuid.New(), FullName: "Jayson Tatum", Position: models.PositionSmallForward, Price: 58})
	app := draft.NewApp(store, player.NewApp(store, player.DefaultCacheConfig()), nil)

	league := uuid.New()
	_, err := app.CreateSession(context.Background(), draft.CreateSessionRequest{
		LeagueID: league,
		Settings: models.DraftSettings{PickTimeLimitSec: 60, TeamSize: 1},
		Teams:    []draft.TeamSeat{{OwnerID: uuid.New(), Name: "Celtics Pride"}},
	})
	require.NoError(t, err)

	service := NewService(DefaultConfig(), app, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = service.Start(ctx)
	}()

	server := httptest.NewServer(service.Routes())
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})
	return &fixture{app: app, league: league, service: service, server: server}
}

func (f *fixture) dial(t *testing.T, leagueID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/leagues/" + leagueID + "/draft?user_id=u1"
	return websocket.DefaultDialer.Dial(url, nil)
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event events.Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestConnectReceivesStateSyncThenEvents(t *testing.T) {
	f := newFixture(t)

	conn, _, err := f.dial(t, f.league.String())
	require.NoError(t, err)
	defer conn.Close()

	first := readEvent(t, conn)
	assert.Equal(t, events.TypeStateSync, first.Type)
	assert.Equal(t, f.league, first.LeagueID)
	var view draft.SessionView
	require.NoError(t, json.Unmarshal(first.Payload, &view))
	assert.Equal(t, models.DraftStatusPending, view.Session.Status)

	require.Eventually(t, func() bool { return f.service.Stats().TotalConnections == 1 }, time.Second, 10*time.Millisecond)

	event, err := events.New(f.league, events.TypeDraftPaused, events.DraftPausedPayload{TimeRemainingMs: 4200}, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.service.Broadcast(event))

	got := readEvent(t, conn)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, events.TypeDraftPaused, got.Type)
}

func TestEventsStayWithinTheirLeague(t *testing.T) {
	f := newFixture(t)

	conn, _, err := f.dial(t, f.league.String())
	require.NoError(t, err)
	defer conn.Close()
	readEvent(t, conn)
	require.Eventually(t, func() bool { return f.service.Stats().TotalConnections == 1 }, time.Second, 10*time.Millisecond)

	other, err := events.New(uuid.New(), events.TypeDraftStarted, events.DraftStartedPayload{}, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.service.Broadcast(other))
	mine, err := events.New(f.league, events.TypeChatMessage, events.ChatMessagePayload{Message: "gl"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.service.Broadcast(mine))

	got := readEvent(t, conn)
	assert.Equal(t, mine.ID, got.ID)
}

func TestConnectRejectsUnknownLeague(t *testing.T) {
	f := newFixture(t)

	_, resp, err := f.dial(t, uuid.New().String())
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = f.dial(t, "not-a-uuid")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Zero(t, f.service.Stats().TotalConnections, "rejected clients are released")
}

// slowStateProvider runs during after the state is read and before it is
// returned, the window in which a freshly published event used to be lost.
type slowStateProvider struct {
	inner  StateProvider
	during func()
}

func (p *slowStateProvider) GetState(ctx context.Context, leagueID uuid.UUID) (*draft.SessionView, error) {
	view, err := p.inner.GetState(ctx, leagueID)
	if p.during != nil {
		p.during()
	}
	return view, err
}

func heldEvents(cm *ConnectionManager, leagueID uuid.UUID) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	held := 0
	for conn := range cm.leagueConnections[leagueID] {
		conn.syncMu.Lock()
		held += len(conn.pending)
		conn.syncMu.Unlock()
	}
	return held
}

func TestEventDuringSnapshotFollowsIt(t *testing.T) {
	f := newFixture(t)

	cm := NewConnectionManager(DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cm.Start(ctx)

	paused, err := events.New(f.league, events.TypeDraftPaused, events.DraftPausedPayload{TimeRemainingMs: 900}, time.Now())
	require.NoError(t, err)
	provider := &slowStateProvider{inner: f.app, during: func() {
		assert.NoError(t, cm.BroadcastToLeague(paused))
		assert.Eventually(t, func() bool { return heldEvents(cm, f.league) == 1 }, time.Second, 5*time.Millisecond)
	}}

	router := chi.NewRouter()
	NewWebSocketHandler(cm, provider).RegisterRoutes(router)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/leagues/" + f.league.String() + "/draft"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readEvent(t, conn)
	assert.Equal(t, events.TypeStateSync, first.Type)
	second := readEvent(t, conn)
	assert.Equal(t, paused.ID, second.ID)
	assert.Zero(t, heldEvents(cm, f.league))
}

func TestReservedConnectionOverflowIsDropped(t *testing.T) {
	cm := NewConnectionManager(ConnectionConfig{SendBufferSize: 2})
	league := uuid.New()
	conn := cm.Reserve("u1", league)

	assert.True(t, cm.trySend(conn, []byte("a")))
	assert.False(t, cm.trySend(conn, []byte("b")), "one slot stays free for the snapshot")

	cm.Release(conn)
	assert.Zero(t, cm.Stats().TotalConnections)
	assert.False(t, cm.flushPending(conn, []byte("snapshot")))
}

func TestStateEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/api/leagues/" + f.league.String() + "/draft/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view draft.SessionView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, f.league, view.Session.LeagueID)
	assert.Equal(t, 1, view.TotalPicks)

	missing, err := http.Get(f.server.URL + "/api/leagues/" + uuid.New().String() + "/draft/state")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	f := newFixture(t)

	conn, _, err := f.dial(t, f.league.String())
	require.NoError(t, err)
	readEvent(t, conn)
	require.Eventually(t, func() bool { return f.service.Stats().TotalConnections == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.Get(f.server.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats ConnectionStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.LeagueConnections[f.league.String()])

	conn.Close()
	require.Eventually(t, func() bool { return f.service.Stats().TotalConnections == 0 }, 2*time.Second, 10*time.Millisecond)
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) BroadcastToLeague(event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func TestHandleEnvelope(t *testing.T) {
	sink := &recordingSink{}
	ec := NewEventConsumer(nil, sink, DefaultJetStreamConsumerConfig())

	event, err := events.New(uuid.New(), events.TypePickMade, events.PickMadePayload{CurrentPick: 2}, time.Now())
	require.NoError(t, err)
	data, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, ec.HandleEnvelope(data))
	require.Len(t, sink.events, 1)
	assert.Equal(t, event.ID, sink.events[0].ID)
	assert.Equal(t, event.LeagueID, sink.events[0].LeagueID)

	assert.Error(t, ec.HandleEnvelope([]byte("{")))
	assert.Error(t, ec.HandleEnvelope([]byte(`{"type":"pick-made"}`)), "league id is required")
	assert.Len(t, sink.events, 1)
}
