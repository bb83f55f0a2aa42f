package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/courtside/go/internal/draft/draft"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	mu      sync.Mutex
	due     []uuid.UUID
	listErr error
	lists   atomic.Int32
	checks  map[uuid.UUID]int
	started chan uuid.UUID
	release chan struct{}
}

func newFakeChecker(due ...uuid.UUID) *fakeChecker {
	return &fakeChecker{due: due, checks: make(map[uuid.UUID]int)}
}

func (f *fakeChecker) ListDueLeagues(_ context.Context, limit int) ([]uuid.UUID, error) {
	f.lists.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && len(f.due) > limit {
		return append([]uuid.UUID(nil), f.due[:limit]...), nil
	}
	return append([]uuid.UUID(nil), f.due...), nil
}

func (f *fakeChecker) CheckAndApplyExpiry(ctx context.Context, leagueID uuid.UUID) (*draft.ExpiryResult, error) {
	if f.started != nil {
		f.started <- leagueID
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.checks[leagueID]++
	f.mu.Unlock()
	return &draft.ExpiryResult{Applied: false}, nil
}

func (f *fakeChecker) checked(leagueID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks[leagueID]
}

func TestPollSkipsLeaguesInFlight(t *testing.T) {
	league := uuid.New()
	checker := newFakeChecker(league)
	checker.started = make(chan uuid.UUID, 1)
	checker.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(checker, clockwork.NewFakeClock(), Config{Workers: 2, PollInterval: time.Minute})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case id := <-checker.started:
		assert.Equal(t, league, id)
	case <-time.After(2 * time.Second):
		t.Fatal("initial poll never dispatched")
	}

	assert.Equal(t, 0, s.Poll(ctx), "league is still being checked")
	assert.Equal(t, 1, s.InFlight())

	close(checker.release)
	require.Eventually(t, func() bool { return s.InFlight() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, checker.checked(league))

	cancel()
	require.NoError(t, <-done)
}

func TestRunPollsOnTicker(t *testing.T) {
	clock := clockwork.NewFakeClock()
	checker := newFakeChecker()
	s := New(checker, clock, Config{PollInterval: 2 * time.Second, Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	require.Eventually(t, func() bool { return checker.lists.Load() == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool { return checker.lists.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestPollSurvivesListErrors(t *testing.T) {
	checker := newFakeChecker()
	checker.listErr = errors.New("pq: connection reset by peer")
	s := New(checker, clockwork.NewFakeClock(), DefaultConfig())

	assert.Equal(t, 0, s.Poll(context.Background()))
	assert.Equal(t, 0, s.InFlight())
}

func TestPollRespectsBatchSize(t *testing.T) {
	checker := newFakeChecker(uuid.New(), uuid.New(), uuid.New())
	s := New(checker, clockwork.NewFakeClock(), Config{BatchSize: 2, Workers: 4})

	// no workers are running, so dispatched leagues stay queued
	assert.Equal(t, 2, s.Poll(context.Background()))
	assert.Equal(t, 2, s.InFlight())
}

func TestPollDropsWhenQueueIsFull(t *testing.T) {
	checker := newFakeChecker(uuid.New(), uuid.New(), uuid.New())
	s := New(checker, clockwork.NewFakeClock(), Config{Workers: 1})

	assert.Equal(t, 2, s.Poll(context.Background()), "queue holds twice the worker count")
	assert.Equal(t, 2, s.InFlight())
}

func TestSchedulerAutoPicksExpiredDraft(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := draft.NewMemoryStore()
	app := draft.NewApp(store, player.NewApp(store, player.DefaultCacheConfig()), nil, draft.WithClock(clock))

	p := models.Player{ID: uuid.New(), FullName: "Nikola Jokic", Position: models.PositionCenter, Price: 62}
	store.AddPlayers(p, models.Player{ID: uuid.New(), FullName: "Bench Guy", Position: models.PositionCenter, Price: 1})

	league := uuid.New()
	seat := draft.TeamSeat{ID: uuid.New(), OwnerID: uuid.New(), Name: "Mile High", DraftOrder: 1}
	_, err := app.CreateSession(context.Background(), draft.CreateSessionRequest{
		LeagueID: league,
		Settings: models.DraftSettings{PickTimeLimitSec: 30, TeamSize: 1, SeatOrder: models.SeatOrderConfigured},
		Teams:    []draft.TeamSeat{seat},
	})
	require.NoError(t, err)
	_, err = app.Start(context.Background(), league, seat.OwnerID)
	require.NoError(t, err)

	clock.Advance(31 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	s := New(app, clock, Config{Workers: 2})
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		picks, err := app.ListPicks(context.Background(), league)
		return err == nil && len(picks) == 1
	}, 2*time.Second, 10*time.Millisecond)

	picks, err := app.ListPicks(context.Background(), league)
	require.NoError(t, err)
	assert.Equal(t, p.ID, picks[0].PlayerID)
	assert.True(t, picks[0].AutoPick)

	cancel()
	require.NoError(t, <-done)
}
