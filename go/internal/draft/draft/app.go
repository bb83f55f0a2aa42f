package draft

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/courtside/go/internal/draft/audit"
	"github.com/mcdev12/courtside/go/internal/draft/autopick"
	"github.com/mcdev12/courtside/go/internal/draft/clock"
	"github.com/mcdev12/courtside/go/internal/draft/events"
	"github.com/mcdev12/courtside/go/internal/draft/order"
	"github.com/mcdev12/courtside/go/internal/metrics"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/player"
	"github.com/rs/zerolog/log"
)

const (
	maxChatLength     = 500
	broadcastTimeout  = 5 * time.Second
	defaultHistoryCap = 100
)

// Repository defines what the app layer needs from the draft store
type Repository interface {
	CreateSession(ctx context.Context, session models.DraftSession, teams []models.FantasyTeam) error
	GetSessionByLeague(ctx context.Context, leagueID uuid.UUID) (*models.DraftSession, error)
	ListTeams(ctx context.Context, sessionID uuid.UUID) ([]models.FantasyTeam, error)
	ListPicks(ctx context.Context, sessionID uuid.UUID) ([]models.DraftPick, error)
	ListActions(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]models.DraftAction, error)
	ListDueLeagues(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)

	// WithLeagueLock runs fn as the only writer of the league's session. The
	// session is loaded and locked before fn runs; fn's writes commit together
	// when it returns nil and are discarded otherwise.
	WithLeagueLock(ctx context.Context, leagueID uuid.UUID, fn func(tx Tx) error) error
}

// Tx is the view of the store inside a league critical section.
type Tx interface {
	Session() *models.DraftSession
	SaveSession(ctx context.Context, session *models.DraftSession) error
	Teams(ctx context.Context) ([]models.FantasyTeam, error)
	SaveDraftOrder(ctx context.Context, teams []models.FantasyTeam) error
	RosterCounts(ctx context.Context) (map[uuid.UUID]int, error)
	Roster(ctx context.Context, teamID uuid.UUID) ([]models.Player, error)
	Player(ctx context.Context, playerID uuid.UUID) (*models.Player, error)
	IsDrafted(ctx context.Context, playerID uuid.UUID) (bool, error)
	AvailablePlayers(ctx context.Context) ([]models.Player, error)
	InsertPick(ctx context.Context, pick models.DraftPick) error
	AddRosterEntry(ctx context.Context, entry models.RosterEntry) error
	audit.Appender
}

// Notifier publishes committed changes to league subscribers.
type Notifier interface {
	Broadcast(ctx context.Context, leagueID uuid.UUID, eventType events.Type, payload any) error
	Chat(ctx context.Context, leagueID, userID uuid.UUID, message string) error
}

// PlayerPool serves the cached available-player pool.
type PlayerPool interface {
	Available(ctx context.Context, sessionID uuid.UUID, filter player.Filter) (*player.Page, error)
	Invalidate(sessionID uuid.UUID)
}

// StrategyFactory builds the auto-pick strategy for a session.
type StrategyFactory func(settings models.DraftSettings) autopick.Strategy

// App handles draft business logic
type App struct {
	repo     Repository
	players  PlayerPool
	notifier Notifier
	clock    clockwork.Clock
	recorder *audit.Recorder
	strategy StrategyFactory
	shuffle  func(n int, swap func(i, j int))
	metrics  metrics.Recorder
	defaults models.DraftSettings
}

// Option configures an App.
type Option func(*App)

func WithClock(c clockwork.Clock) Option {
	return func(a *App) { a.clock = c }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(a *App) { a.metrics = m }
}

func WithStrategy(f StrategyFactory) Option {
	return func(a *App) { a.strategy = f }
}

// WithShuffle replaces the seat shuffle used by RANDOM seat order.
func WithShuffle(f func(n int, swap func(i, j int))) Option {
	return func(a *App) { a.shuffle = f }
}

// WithDefaults fills the zero-valued settings of new sessions.
func WithDefaults(d models.DraftSettings) Option {
	return func(a *App) { a.defaults = d }
}

// NewApp creates a new draft App
func NewApp(repo Repository, players PlayerPool, notifier Notifier, opts ...Option) *App {
	a := &App{
		repo:     repo,
		players:  players,
		notifier: notifier,
		clock:    clockwork.NewRealClock(),
		strategy: func(s models.DraftSettings) autopick.Strategy {
			return autopick.NewSelector(autopick.PolicyFromSettings(s))
		},
		shuffle: rand.Shuffle,
		metrics: metrics.NoOp{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.notifier == nil {
		a.notifier = silentNotifier{}
	}
	a.recorder = audit.NewRecorder(a.clock)
	return a
}

// CreateSession configures a PENDING draft for a league.
func (a *App) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionView, error) {
	settings, err := normalizeSettings(a.withDefaults(req.Settings))
	if err != nil {
		return nil, err
	}
	if req.LeagueID == uuid.Nil {
		return nil, fmt.Errorf("%w: league id is required", ErrInvalidSettings)
	}
	if len(req.Teams) == 0 {
		return nil, fmt.Errorf("%w: at least one team is required", ErrInvalidSettings)
	}

	now := a.clock.Now().UTC()
	session := models.DraftSession{
		ID:        uuid.New(),
		LeagueID:  req.LeagueID,
		Status:    models.DraftStatusPending,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	teams := make([]models.FantasyTeam, 0, len(req.Teams))
	for _, seat := range req.Teams {
		if seat.OwnerID == uuid.Nil || strings.TrimSpace(seat.Name) == "" {
			return nil, fmt.Errorf("%w: every team needs an owner and a name", ErrInvalidSettings)
		}
		id := seat.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		teams = append(teams, models.FantasyTeam{
			ID:         id,
			SessionID:  session.ID,
			LeagueID:   req.LeagueID,
			OwnerID:    seat.OwnerID,
			Name:       strings.TrimSpace(seat.Name),
			DraftOrder: seat.DraftOrder,
			CreatedAt:  now,
		})
	}

	if err := a.repo.CreateSession(ctx, session, teams); err != nil {
		return nil, fmt.Errorf("failed to create draft session: %w", err)
	}

	log.Info().
		Str("league_id", req.LeagueID.String()).
		Str("session_id", session.ID.String()).
		Int("teams", len(teams)).
		Int("team_size", settings.TeamSize).
		Msg("created draft session")
	return a.view(&session, teams, now), nil
}

// Start seeds the seats and puts pick 1 on the clock.
func (a *App) Start(ctx context.Context, leagueID, actingUserID uuid.UUID) (*TransitionResult, error) {
	var state *SessionView
	err := a.repo.WithLeagueLock(ctx, leagueID, func(tx Tx) error {
		session := tx.Session()
		if session.Status != models.DraftStatusPending {
			return invalidState("start", session.Status, models.DraftStatusPending)
		}

		teams, err := tx.Teams(ctx)
		if err != nil {
			return err
		}
		if len(teams) == 0 {
			return fmt.Errorf("%w: session has no teams", ErrInvalidSettings)
		}
		teams = a.seedSeats(session.Settings.SeatOrder, teams)
		if err := tx.SaveDraftOrder(ctx, teams); err != nil {
			return err
		}

		now := a.clock.Now().UTC()
		var c clock.Clock
		c.Start(now, session.Settings.PickTimeLimit())
		session.Status = models.DraftStatusInProgress
		session.CurrentPick = 1
		session.StartedAt = &now
		session.UpdatedAt = now
		applyClock(session, c)
		if err := tx.SaveSession(ctx, session); err != nil {
			return err
		}

		if _, err := a.recorder.Record(ctx, session.ID, tx, audit.Action{
			Type:   models.DraftActionStart,
			UserID: &actingUserID,
			Details: map[string]any{
				"seat_order":  session.Settings.SeatOrder,
				"teams":       len(teams),
				"total_picks": order.TotalPicks(len(teams), session.Settings.TeamSize),
			},
		}); err != nil {
			return err
		}

		state = a.view(session, teams, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Str("session_id", state.Session.ID.String()).
		Time("end_time", state.Clock.EndTime).
		Msg("draft started")

	payload := events.DraftStartedPayload{
		SessionID:   state.Session.ID,
		CurrentPick: state.Session.CurrentPick,
		TeamOnClock: teamID(state.TeamOnClock),
		TotalPicks:  state.TotalPicks,
		EndTime:     state.Clock.EndTime,
		ServerTime:  state.Clock.ServerTime,
	}
	return &TransitionResult{
		State:    state,
		Notified: a.notify(ctx, leagueID, events.TypeDraftStarted, payload),
	}, nil
}

// MakePick commits a manual pick for the team on the clock.
func (a *App) MakePick(ctx context.Context, req MakePickRequest) (*PickResult, error) {
	started := a.clock.Now()
	var out *pickOutcome
	err := a.repo.WithLeagueLock(ctx, req.LeagueID, func(tx Tx) error {
		session := tx.Session()
		if session.Status != models.DraftStatusInProgress {
			return invalidState("make pick", session.Status, models.DraftStatusInProgress)
		}
		if req.ExpectedPick != nil && *req.ExpectedPick != session.CurrentPick {
			return fmt.Errorf("%w: pick %d is on the clock, not %d", ErrNotYourTurn, session.CurrentPick, *req.ExpectedPick)
		}

		teams, err := tx.Teams(ctx)
		if err != nil {
			return err
		}
		team := findTeam(teams, req.TeamID)
		if team == nil {
			return fmt.Errorf("%w: %s", ErrTeamNotFound, req.TeamID)
		}
		onClock := teamAtPick(session.CurrentPick, teams)
		if onClock == nil || onClock.ID != team.ID {
			return fmt.Errorf("%w: pick %d belongs to another team", ErrNotYourTurn, session.CurrentPick)
		}

		p, err := tx.Player(ctx, req.PlayerID)
		if err != nil {
			return err
		}

		out, err = a.commitPick(ctx, tx, session, teams, *team, *p, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.metrics.RecordPick(false, a.clock.Since(started))
	return a.afterPick(ctx, out), nil
}

// CheckAndApplyExpiry auto-picks for the team on the clock once its time is up.
// A session that is not running or not yet expired is left alone.
func (a *App) CheckAndApplyExpiry(ctx context.Context, leagueID uuid.UUID) (*ExpiryResult, error) {
	started := a.clock.Now()
	var out *pickOutcome
	err := a.repo.WithLeagueLock(ctx, leagueID, func(tx Tx) error {
		session := tx.Session()
		if session.Status != models.DraftStatusInProgress {
			return nil
		}
		if !clockOf(session).IsExpired(a.clock.Now()) {
			return nil
		}

		teams, err := tx.Teams(ctx)
		if err != nil {
			return err
		}
		onClock := teamAtPick(session.CurrentPick, teams)
		if onClock == nil {
			return fmt.Errorf("no team seated for pick %d", session.CurrentPick)
		}

		roster, err := tx.Roster(ctx, onClock.ID)
		if err != nil {
			return err
		}
		available, err := tx.AvailablePlayers(ctx)
		if err != nil {
			return err
		}
		choice, err := a.strategy(session.Settings).SelectFor(roster, available)
		if err != nil {
			return fmt.Errorf("auto-pick for team %s at pick %d: %w", onClock.ID, session.CurrentPick, err)
		}

		out, err = a.commitPick(ctx, tx, session, teams, *onClock, choice, true)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNoEligiblePlayer) {
			a.metrics.RecordExpiryCheck(metrics.ExpiryFatal)
			log.Error().
				Err(err).
				Str("league_id", leagueID.String()).
				Msg("auto-pick found no eligible player, draft is stalled")
		} else {
			a.metrics.RecordExpiryCheck(metrics.ExpiryFailed)
		}
		return nil, err
	}
	if out == nil {
		a.metrics.RecordExpiryCheck(metrics.ExpiryNoop)
		return &ExpiryResult{Applied: false}, nil
	}

	a.metrics.RecordExpiryCheck(metrics.ExpiryApplied)
	a.metrics.RecordPick(true, a.clock.Since(started))
	return &ExpiryResult{Applied: true, Pick: a.afterPick(ctx, out)}, nil
}

// Pause freezes the clock with its remaining time.
func (a *App) Pause(ctx context.Context, leagueID, byUserID uuid.UUID) (*TransitionResult, error) {
	var (
		state     *SessionView
		remaining time.Duration
	)
	err := a.repo.WithLeagueLock(ctx, leagueID, func(tx Tx) error {
		session := tx.Session()
		if session.Status != models.DraftStatusInProgress {
			return invalidState("pause", session.Status, models.DraftStatusInProgress)
		}

		now := a.clock.Now().UTC()
		c := clockOf(session)
		remaining = c.Pause(now)
		remainingMs := remaining.Milliseconds()

		session.Status = models.DraftStatusPaused
		session.PausedAt = &now
		session.PausedBy = &byUserID
		session.PauseTimeRemainingMs = &remainingMs
		session.UpdatedAt = now
		applyClock(session, c)
		if err := tx.SaveSession(ctx, session); err != nil {
			return err
		}

		teams, err := tx.Teams(ctx)
		if err != nil {
			return err
		}
		if _, err := a.recorder.Record(ctx, session.ID, tx, audit.Action{
			Type:        models.DraftActionPause,
			UserID:      &byUserID,
			PickNumber:  session.CurrentPick,
			RoundNumber: order.RoundOf(session.CurrentPick, len(teams)),
			Details:     map[string]any{"time_remaining_ms": remainingMs},
		}); err != nil {
			return err
		}

		state = a.view(session, teams, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Str("paused_by", byUserID.String()).
		Int64("time_remaining_ms", remaining.Milliseconds()).
		Msg("draft paused")

	payload := events.DraftPausedPayload{
		PausedBy:        byUserID,
		TimeRemainingMs: remaining.Milliseconds(),
		PausedAt:        *state.Session.PausedAt,
	}
	return &TransitionResult{
		State:    state,
		Notified: a.notify(ctx, leagueID, events.TypeDraftPaused, payload),
	}, nil
}

// Resume restarts the clock from the frozen remaining time.
func (a *App) Resume(ctx context.Context, leagueID, byUserID uuid.UUID) (*TransitionResult, error) {
	var state *SessionView
	err := a.repo.WithLeagueLock(ctx, leagueID, func(tx Tx) error {
		session := tx.Session()
		if session.Status != models.DraftStatusPaused {
			return invalidState("resume", session.Status, models.DraftStatusPaused)
		}

		var remaining time.Duration
		if session.PauseTimeRemainingMs != nil {
			remaining = time.Duration(*session.PauseTimeRemainingMs) * time.Millisecond
		}

		now := a.clock.Now().UTC()
		c := clockOf(session)
		c.Resume(now, remaining)

		session.Status = models.DraftStatusInProgress
		session.PausedAt = nil
		session.PausedBy = nil
		session.PauseTimeRemainingMs = nil
		session.UpdatedAt = now
		applyClock(session, c)
		if err := tx.SaveSession(ctx, session); err != nil {
			return err
		}

		teams, err := tx.Teams(ctx)
		if err != nil {
			return err
		}
		if _, err := a.recorder.Record(ctx, session.ID, tx, audit.Action{
			Type:        models.DraftActionResume,
			UserID:      &byUserID,
			PickNumber:  session.CurrentPick,
			RoundNumber: order.RoundOf(session.CurrentPick, len(teams)),
			Details:     map[string]any{"time_remaining_ms": remaining.Milliseconds()},
		}); err != nil {
			return err
		}

		state = a.view(session, teams, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Str("resumed_by", byUserID.String()).
		Time("end_time", state.Clock.EndTime).
		Msg("draft resumed")

	payload := events.DraftResumedPayload{
		ResumedBy:     byUserID,
		PickStartedAt: *state.Session.PickStartedAt,
		EndTime:       state.Clock.EndTime,
		ServerTime:    state.Clock.ServerTime,
	}
	return &TransitionResult{
		State:    state,
		Notified: a.notify(ctx, leagueID, events.TypeDraftResumed, payload),
	}, nil
}

// GetState returns the league's session with its derived turn and clock.
func (a *App) GetState(ctx context.Context, leagueID uuid.UUID) (*SessionView, error) {
	session, err := a.repo.GetSessionByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	teams, err := a.repo.ListTeams(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return a.view(session, teams, a.clock.Now().UTC()), nil
}

// ListPicks returns the committed picks in pick order.
func (a *App) ListPicks(ctx context.Context, leagueID uuid.UUID) ([]models.DraftPick, error) {
	session, err := a.repo.GetSessionByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	picks, err := a.repo.ListPicks(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	return picks, nil
}

// History returns the audit log, oldest first.
func (a *App) History(ctx context.Context, leagueID uuid.UUID, limit, offset int) ([]models.DraftAction, error) {
	session, err := a.repo.GetSessionByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultHistoryCap {
		limit = defaultHistoryCap
	}
	if offset < 0 {
		offset = 0
	}
	actions, err := a.repo.ListActions(ctx, session.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft actions: %w", err)
	}
	return actions, nil
}

// ListAvailablePlayers pages through undrafted players.
func (a *App) ListAvailablePlayers(ctx context.Context, leagueID uuid.UUID, filter player.Filter) (*player.Page, error) {
	session, err := a.repo.GetSessionByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	return a.players.Available(ctx, session.ID, filter)
}

// ListDueLeagues returns running leagues whose pick deadline has passed.
func (a *App) ListDueLeagues(ctx context.Context, limit int) ([]uuid.UUID, error) {
	leagues, err := a.repo.ListDueLeagues(ctx, a.clock.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due leagues: %w", err)
	}
	return leagues, nil
}

// PostChat sends an informational chat message to the league.
func (a *App) PostChat(ctx context.Context, leagueID, userID uuid.UUID, message string) error {
	message = strings.TrimSpace(message)
	if message == "" || len(message) > maxChatLength {
		return fmt.Errorf("%w: chat message must be 1-%d characters", ErrInvalidSettings, maxChatLength)
	}
	if _, err := a.repo.GetSessionByLeague(ctx, leagueID); err != nil {
		return err
	}
	return a.notifier.Chat(ctx, leagueID, userID, message)
}

type pickOutcome struct {
	session models.DraftSession
	teams   []models.FantasyTeam
	pick    models.DraftPick
	player  models.Player
	team    models.FantasyTeam
	now     time.Time
}

// commitPick runs the shared success path of manual and automatic picks. The
// caller has already checked the turn.
func (a *App) commitPick(ctx context.Context, tx Tx, session *models.DraftSession, teams []models.FantasyTeam, team models.FantasyTeam, p models.Player, auto bool) (*pickOutcome, error) {
	drafted, err := tx.IsDrafted(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if drafted {
		return nil, fmt.Errorf("%w: %s", ErrPlayerAlreadyDrafted, p.FullName)
	}

	counts, err := tx.RosterCounts(ctx)
	if err != nil {
		return nil, err
	}
	if counts[team.ID] >= session.Settings.TeamSize {
		return nil, fmt.Errorf("%w: %s holds %d players", ErrRosterFull, team.Name, counts[team.ID])
	}

	now := a.clock.Now().UTC()
	pick := models.DraftPick{
		ID:         uuid.New(),
		SessionID:  session.ID,
		PickNumber: session.CurrentPick,
		Round:      order.RoundOf(session.CurrentPick, len(teams)),
		TeamID:     team.ID,
		PlayerID:   p.ID,
		AutoPick:   auto,
		CreatedAt:  now,
	}
	if err := tx.InsertPick(ctx, pick); err != nil {
		return nil, err
	}
	if err := tx.AddRosterEntry(ctx, models.RosterEntry{
		TeamID:     team.ID,
		PlayerID:   p.ID,
		SessionID:  session.ID,
		PickNumber: pick.PickNumber,
		AcquiredAt: now,
	}); err != nil {
		return nil, err
	}

	action := audit.Action{
		Type:        models.DraftActionPick,
		UserID:      &team.OwnerID,
		TeamID:      &team.ID,
		PlayerID:    &p.ID,
		PickNumber:  pick.PickNumber,
		RoundNumber: pick.Round,
		Details: map[string]any{
			"player_name": p.FullName,
			"position":    p.Position,
		},
	}
	if auto {
		action.Type = models.DraftActionAutoPick
		action.UserID = nil
		action.Details["price"] = p.Price
		action.Details["rank"] = p.Rank
	}
	if _, err := a.recorder.Record(ctx, session.ID, tx, action); err != nil {
		return nil, err
	}

	counts[team.ID]++
	session.CurrentPick++
	session.UpdatedAt = now

	if allRostersFull(teams, counts, session.Settings.TeamSize) {
		var c clock.Clock
		c.Stop()
		session.Status = models.DraftStatusCompleted
		session.CompletedAt = &now
		applyClock(session, c)
		if _, err := a.recorder.Record(ctx, session.ID, tx, audit.Action{
			Type:    models.DraftActionComplete,
			Details: map[string]any{"total_picks": pick.PickNumber},
		}); err != nil {
			return nil, err
		}
	} else {
		var c clock.Clock
		c.Start(now, session.Settings.PickTimeLimit())
		applyClock(session, c)
	}

	if err := tx.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	return &pickOutcome{
		session: *session,
		teams:   teams,
		pick:    pick,
		player:  p,
		team:    team,
		now:     now,
	}, nil
}

// afterPick runs once the pick is committed: cache invalidation and broadcasts.
func (a *App) afterPick(ctx context.Context, out *pickOutcome) *PickResult {
	a.players.Invalidate(out.session.ID)

	state := a.view(&out.session, out.teams, out.now)
	completed := out.session.Status == models.DraftStatusCompleted
	result := &PickResult{
		Pick:        out.pick,
		Player:      out.player,
		Team:        out.team,
		CurrentPick: out.session.CurrentPick,
		TeamOnClock: teamID(state.TeamOnClock),
		Completed:   completed,
		Clock:       state.Clock,
	}

	log.Info().
		Str("league_id", out.session.LeagueID.String()).
		Str("session_id", out.session.ID.String()).
		Int("pick_number", out.pick.PickNumber).
		Str("team_id", out.team.ID.String()).
		Str("player_id", out.player.ID.String()).
		Bool("auto_pick", out.pick.AutoPick).
		Bool("completed", completed).
		Msg("pick committed")

	payload := events.PickMadePayload{
		Pick: events.PickInfo{
			PickID:     out.pick.ID,
			PickNumber: out.pick.PickNumber,
			Round:      out.pick.Round,
			TeamID:     out.team.ID,
			TeamName:   out.team.Name,
			PlayerID:   out.player.ID,
			PlayerName: out.player.FullName,
			Position:   out.player.Position,
			AutoPick:   out.pick.AutoPick,
			MadeAt:     out.pick.CreatedAt,
		},
		CurrentPick: out.session.CurrentPick,
		TeamOnClock: result.TeamOnClock,
		ServerTime:  state.Clock.ServerTime,
	}
	if !completed {
		end := state.Clock.EndTime
		payload.EndTime = &end
	}
	result.Notified = a.notify(ctx, out.session.LeagueID, events.TypePickMade, payload)

	if completed {
		done := events.DraftCompletedPayload{
			CompletedAt: *out.session.CompletedAt,
			TotalPicks:  out.pick.PickNumber,
		}
		if !a.notify(ctx, out.session.LeagueID, events.TypeDraftCompleted, done) {
			result.Notified = false
		}
	}
	return result
}

// notify broadcasts after commit. Failure is logged and reported, never returned.
func (a *App) notify(ctx context.Context, leagueID uuid.UUID, eventType events.Type, payload any) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), broadcastTimeout)
	defer cancel()

	if err := a.notifier.Broadcast(ctx, leagueID, eventType, payload); err != nil {
		log.Warn().
			Err(err).
			Str("league_id", leagueID.String()).
			Str("event_type", string(eventType)).
			Msg("state committed but broadcast failed")
		return false
	}
	return true
}

func (a *App) seedSeats(seatOrder models.SeatOrder, teams []models.FantasyTeam) []models.FantasyTeam {
	seated := make([]models.FantasyTeam, len(teams))
	copy(seated, teams)

	if seatOrder == models.SeatOrderConfigured && validDraftOrder(seated) {
		sort.Slice(seated, func(i, j int) bool { return seated[i].DraftOrder < seated[j].DraftOrder })
		return seated
	}

	a.shuffle(len(seated), func(i, j int) { seated[i], seated[j] = seated[j], seated[i] })
	for i := range seated {
		seated[i].DraftOrder = i + 1
	}
	return seated
}

func (a *App) view(session *models.DraftSession, teams []models.FantasyTeam, now time.Time) *SessionView {
	sorted := make([]models.FantasyTeam, len(teams))
	copy(sorted, teams)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DraftOrder < sorted[j].DraftOrder })

	v := &SessionView{
		Session:    *session,
		Teams:      sorted,
		TotalPicks: order.TotalPicks(len(teams), session.Settings.TeamSize),
		Clock:      clockOf(session).Deadline(now),
	}
	switch session.Status {
	case models.DraftStatusInProgress, models.DraftStatusPaused:
		v.Round = order.RoundOf(session.CurrentPick, len(teams))
		v.PickInRound = order.PickInRound(session.CurrentPick, len(teams))
		v.TeamOnClock = teamAtPick(session.CurrentPick, sorted)
	}
	return v
}

// clockOf rebuilds the countdown from the persisted session fields.
func clockOf(s *models.DraftSession) clock.Clock {
	c := clock.Clock{Allowance: time.Duration(s.PickAllowanceMs) * time.Millisecond}
	if s.PickStartedAt != nil {
		c.StartedAt = *s.PickStartedAt
	}
	if s.IsPaused() {
		c.Paused = true
		c.StartedAt = time.Time{}
		if s.PauseTimeRemainingMs != nil {
			c.Remaining = time.Duration(*s.PauseTimeRemainingMs) * time.Millisecond
		}
	}
	return c
}

// applyClock writes the countdown back, keeping pick_deadline in step.
func applyClock(s *models.DraftSession, c clock.Clock) {
	s.PickAllowanceMs = c.Allowance.Milliseconds()
	if c.Running() {
		startedAt := c.StartedAt
		deadline := c.EndTime()
		s.PickStartedAt = &startedAt
		s.PickDeadline = &deadline
		return
	}
	s.PickStartedAt = nil
	s.PickDeadline = nil
}

func teamAtPick(pickNumber int, teams []models.FantasyTeam) *models.FantasyTeam {
	seat := order.TeamAtPick(pickNumber, len(teams))
	for i := range teams {
		if teams[i].DraftOrder == seat {
			return &teams[i]
		}
	}
	return nil
}

func findTeam(teams []models.FantasyTeam, id uuid.UUID) *models.FantasyTeam {
	for i := range teams {
		if teams[i].ID == id {
			return &teams[i]
		}
	}
	return nil
}

func teamID(t *models.FantasyTeam) *uuid.UUID {
	if t == nil {
		return nil
	}
	id := t.ID
	return &id
}

func allRostersFull(teams []models.FantasyTeam, counts map[uuid.UUID]int, teamSize int) bool {
	for _, t := range teams {
		if counts[t.ID] < teamSize {
			return false
		}
	}
	return true
}

// validDraftOrder reports whether the orders are exactly 1..N.
func validDraftOrder(teams []models.FantasyTeam) bool {
	seen := make(map[int]bool, len(teams))
	for _, t := range teams {
		if t.DraftOrder < 1 || t.DraftOrder > len(teams) || seen[t.DraftOrder] {
			return false
		}
		seen[t.DraftOrder] = true
	}
	return true
}

func (a *App) withDefaults(s models.DraftSettings) models.DraftSettings {
	if s.PickTimeLimitSec == 0 {
		s.PickTimeLimitSec = a.defaults.PickTimeLimitSec
	}
	if s.TeamSize == 0 {
		s.TeamSize = a.defaults.TeamSize
	}
	if s.AutoPickMetric == "" {
		s.AutoPickMetric = a.defaults.AutoPickMetric
	}
	if s.SeatOrder == "" {
		s.SeatOrder = a.defaults.SeatOrder
	}
	if s.PositionLimits == nil {
		s.PositionLimits = a.defaults.PositionLimits
	}
	return s
}

func normalizeSettings(s models.DraftSettings) (models.DraftSettings, error) {
	if s.PickTimeLimitSec < 1 {
		return s, fmt.Errorf("%w: pick_time_limit_sec must be positive", ErrInvalidSettings)
	}
	if s.TeamSize < 1 {
		return s, fmt.Errorf("%w: team_size must be positive", ErrInvalidSettings)
	}

	switch s.AutoPickMetric {
	case "":
		s.AutoPickMetric = models.AutoPickMetricPrice
	case models.AutoPickMetricPrice, models.AutoPickMetricRank:
	default:
		return s, fmt.Errorf("%w: unknown auto_pick_metric %q", ErrInvalidSettings, s.AutoPickMetric)
	}

	switch s.SeatOrder {
	case "":
		s.SeatOrder = models.SeatOrderRandom
	case models.SeatOrderRandom, models.SeatOrderConfigured:
	default:
		return s, fmt.Errorf("%w: unknown seat_order %q", ErrInvalidSettings, s.SeatOrder)
	}

	minimums := 0
	for pos, limit := range s.PositionLimits {
		if limit.Min < 0 || limit.Max < 0 || (limit.Max > 0 && limit.Min > limit.Max) {
			return s, fmt.Errorf("%w: bad limits for %s", ErrInvalidSettings, pos)
		}
		minimums += limit.Min
	}
	if minimums > s.TeamSize {
		return s, fmt.Errorf("%w: position minimums exceed team_size", ErrInvalidSettings)
	}
	return s, nil
}

type silentNotifier struct{}

func (silentNotifier) Broadcast(context.Context, uuid.UUID, events.Type, any) error { return nil }
func (silentNotifier) Chat(context.Context, uuid.UUID, uuid.UUID, string) error    { return nil }
