// Package scheduler drives pick expiry. It polls for running drafts whose
// deadline has passed and hands each league to a worker that asks the state
// machine to auto-pick. Polling is the only path that expires a pick, so a
// missed tick is simply caught by the next one.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/courtside/go/internal/draft/draft"
	"github.com/rs/zerolog/log"
)

// ExpiryChecker is satisfied by both draft.App and draft.Client.
type ExpiryChecker interface {
	ListDueLeagues(ctx context.Context, limit int) ([]uuid.UUID, error)
	CheckAndApplyExpiry(ctx context.Context, leagueID uuid.UUID) (*draft.ExpiryResult, error)
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	Workers      int
	CheckTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 2 * time.Second,
		BatchSize:    50,
		Workers:      10,
		CheckTimeout: 10 * time.Second,
	}
}

type Scheduler struct {
	checker    ExpiryChecker
	clock      clockwork.Clock
	cfg        Config
	instanceID string

	workCh chan uuid.UUID

	// Track in-flight work to prevent duplicate processing
	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex
}

// New creates a scheduler with its worker pool configuration.
func New(checker ExpiryChecker, clock clockwork.Clock, cfg Config) *Scheduler {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = def.CheckTimeout
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		checker:    checker,
		clock:      clock,
		cfg:        cfg,
		instanceID: uuid.New().String()[:8],
		workCh:     make(chan uuid.UUID, cfg.Workers*2),
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// Run polls until ctx is cancelled, then waits for in-flight checks to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().
		Str("instance", s.instanceID).
		Int("workers", s.cfg.Workers).
		Dur("poll_interval", s.cfg.PollInterval).
		Msg("expiry scheduler started")

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, i)
	}
	defer func() {
		close(s.workCh)
		wg.Wait()
		log.Info().Str("instance", s.instanceID).Msg("expiry scheduler stopped")
	}()

	ticker := s.clock.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			s.Poll(ctx)
		}
	}
}

// Poll runs one scheduling round and returns how many leagues it dispatched.
func (s *Scheduler) Poll(ctx context.Context) int {
	due, err := s.checker.ListDueLeagues(ctx, s.cfg.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Str("instance", s.instanceID).Msg("error fetching due drafts")
		}
		return 0
	}
	if len(due) == 0 {
		return 0
	}

	log.Debug().
		Int("count_due", len(due)).
		Int("batch_size", s.cfg.BatchSize).
		Str("instance", s.instanceID).
		Msg("processing due drafts")

	dispatched := 0
	for _, leagueID := range due {
		if !s.claim(leagueID) {
			log.Debug().Str("league_id", leagueID.String()).Str("instance", s.instanceID).Msg("skipping league already in flight")
			continue
		}
		select {
		case s.workCh <- leagueID:
			dispatched++
		case <-ctx.Done():
			s.release(leagueID)
			return dispatched
		default:
			// the next poll picks it up again
			s.release(leagueID)
			log.Warn().Str("league_id", leagueID.String()).Str("instance", s.instanceID).Msg("work channel full")
		}
	}
	return dispatched
}

// InFlight reports how many leagues are queued or being checked.
func (s *Scheduler) InFlight() int {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	return len(s.inFlight)
}

func (s *Scheduler) claim(leagueID uuid.UUID) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if s.inFlight[leagueID] {
		return false
	}
	s.inFlight[leagueID] = true
	return true
}

func (s *Scheduler) release(leagueID uuid.UUID) {
	s.inFlightMu.Lock()
	delete(s.inFlight, leagueID)
	s.inFlightMu.Unlock()
}

// worker processes due leagues from the work channel
func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for leagueID := range s.workCh {
		if ctx.Err() != nil {
			s.release(leagueID)
			continue
		}
		if err := s.check(ctx, leagueID, workerID); err != nil {
			log.Error().
				Err(err).
				Str("league_id", leagueID.String()).
				Str("instance", s.instanceID).
				Int("worker_id", workerID).
				Msg("expiry check failed")
		}
	}
}

func (s *Scheduler) check(ctx context.Context, leagueID uuid.UUID, workerID int) error {
	defer s.release(leagueID)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CheckTimeout)
	defer cancel()

	res, err := s.checker.CheckAndApplyExpiry(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("check and apply expiry: %w", err)
	}
	if res.Applied && res.Pick != nil {
		log.Info().
			Str("league_id", leagueID.String()).
			Int("pick_number", res.Pick.Pick.PickNumber).
			Str("team_id", res.Pick.Team.ID.String()).
			Str("player_id", res.Pick.Player.ID.String()).
			Str("instance", s.instanceID).
			Int("worker_id", workerID).
			Msg("auto-picked on expiry")
	}
	return nil
}
