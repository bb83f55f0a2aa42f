package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/mcdev12/courtside/go/internal/draft/events"
	"github.com/mcdev12/courtside/go/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu       sync.Mutex
	entries  []Entry
	attempts map[uuid.UUID]int
}

func newMemStore(entries ...Entry) *memStore {
	return &memStore{entries: entries, attempts: map[uuid.UUID]int{}}
}

func (s *memStore) FetchUnsent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.SentAt == nil && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) FetchByID(_ context.Context, id uuid.UUID) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id && e.SentAt == nil {
			return &e, nil
		}
	}
	return nil, ErrEntryNotFound
}

func (s *memStore) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].SentAt = &at
		}
	}
	return nil
}

func (s *memStore) MarkAttempt(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[id]++
	return nil
}

func (s *memStore) CountUnsent(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.SentAt == nil {
			n++
		}
	}
	return n, nil
}

type flakyPublisher struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	published []events.Event
}

func (p *flakyPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failFirst {
		return errors.New("nats: timeout")
	}
	p.published = append(p.published, e)
	return nil
}

func (p *flakyPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type chanNotifier struct {
	ch     chan *pq.Notification
	closed bool
}

func (n *chanNotifier) NotificationChannel() <-chan *pq.Notification { return n.ch }
func (n *chanNotifier) Ping() error                                  { return nil }
func (n *chanNotifier) Close() error                                 { n.closed = true; return nil }

func newEntry(t *testing.T, eventType events.Type) Entry {
	t.Helper()
	ev, err := events.New(uuid.New(), eventType, events.DraftCompletedPayload{TotalPicks: 8}, time.Now())
	require.NoError(t, err)
	return EntryFromEvent(ev)
}

func testConfig() RelayConfig {
	cfg := DefaultRelayConfig()
	cfg.RetryDelay = 0
	cfg.MaxRetries = 2
	return cfg
}

func TestProcessUnsentPublishesAndMarksSent(t *testing.T) {
	e1 := newEntry(t, events.TypePickMade)
	e2 := newEntry(t, events.TypeDraftCompleted)
	store := newMemStore(e1, e2)
	pub := &flakyPublisher{}
	relay := NewRelay(store, &chanNotifier{}, pub, clockwork.NewFakeClock(), nil, testConfig())

	require.NoError(t, relay.ProcessUnsent(context.Background()))

	require.Len(t, pub.published, 2)
	assert.Equal(t, e1.ID, pub.published[0].ID, "relay keeps the original event id for dedup")
	n, _ := store.CountUnsent(context.Background())
	assert.Zero(t, n)

	relayed, _ := relay.Stats()
	assert.Equal(t, uint64(2), relayed)
}

func TestPublishRetriesThenSucceeds(t *testing.T) {
	entry := newEntry(t, events.TypeDraftPaused)
	store := newMemStore(entry)
	pub := &flakyPublisher{failFirst: 2}

	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheus(reg)
	relay := NewRelay(store, &chanNotifier{}, pub, clockwork.NewFakeClock(), m, testConfig())

	require.NoError(t, relay.HandleNotification(context.Background(), entry.ID.String()))
	assert.Equal(t, 3, pub.calls)
	assert.Equal(t, 1, pub.count())

	series, err := testutil.GatherAndCount(reg, "courtside_outbox_publish_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 3, series)

	lag, err := testutil.GatherAndCount(reg, "courtside_outbox_unsent_events")
	require.NoError(t, err)
	assert.Equal(t, 1, lag)
}

func TestPublishGivesUpAfterMaxRetries(t *testing.T) {
	entry := newEntry(t, events.TypeDraftResumed)
	store := newMemStore(entry)
	pub := &flakyPublisher{failFirst: 100}
	relay := NewRelay(store, &chanNotifier{}, pub, clockwork.NewFakeClock(), nil, testConfig())

	err := relay.HandleNotification(context.Background(), entry.ID.String())
	require.Error(t, err)
	assert.Equal(t, 3, pub.calls)
	assert.Equal(t, 1, store.attempts[entry.ID])

	n, _ := store.CountUnsent(context.Background())
	assert.Equal(t, 1, n)
}

func TestHandleNotificationIgnoresAlreadySent(t *testing.T) {
	store := newMemStore()
	pub := &flakyPublisher{}
	relay := NewRelay(store, &chanNotifier{}, pub, clockwork.NewFakeClock(), nil, testConfig())

	assert.NoError(t, relay.HandleNotification(context.Background(), uuid.NewString()))
	assert.Error(t, relay.HandleNotification(context.Background(), "not-a-uuid"))
	assert.Zero(t, pub.calls)
}

func TestStartRelaysNotifiedEntries(t *testing.T) {
	entry := newEntry(t, events.TypePickMade)
	store := newMemStore()
	pub := &flakyPublisher{}
	notifier := &chanNotifier{ch: make(chan *pq.Notification, 1)}
	relay := NewRelay(store, notifier, pub, clockwork.NewFakeClock(), nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Start(ctx) }()

	store.mu.Lock()
	store.entries = append(store.entries, entry)
	store.mu.Unlock()
	notifier.ch <- &pq.Notification{Channel: NotifyChannel, Extra: entry.ID.String()}

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, notifier.closed)
}

type okPinger struct{ err error }

func (p okPinger) PingContext(context.Context) error { return p.err }

func TestHealthChecker(t *testing.T) {
	clock := clockwork.NewFakeClock()
	entry := newEntry(t, events.TypePickMade)
	store := newMemStore(entry)
	relay := NewRelay(store, &chanNotifier{}, &flakyPublisher{}, clock, nil, testConfig())

	checker := NewHealthChecker(relay, okPinger{}, store, func() bool { return true }, clock, time.Minute)
	status := checker.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, 1, status.PendingEntries)

	down := NewHealthChecker(relay, okPinger{err: errors.New("refused")}, store, func() bool { return false }, clock, time.Minute)
	rec := httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.DatabaseConnected)
	assert.Len(t, body.Errors, 2)
}
