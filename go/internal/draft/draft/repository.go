package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/player"
	"github.com/mcdev12/courtside/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

const sessionColumns = `id, league_id, status, current_pick, settings,
    pick_started_at, pick_allowance_ms, pick_deadline,
    paused_at, paused_by, pause_time_remaining_ms,
    started_at, completed_at, created_at, updated_at`

const (
	insertSessionSQL = `
INSERT INTO draft_sessions (id, league_id, status, current_pick, settings, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertTeamSQL = `
INSERT INTO fantasy_teams (id, session_id, league_id, owner_id, name, draft_order, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getSessionByLeagueSQL = `SELECT ` + sessionColumns + ` FROM draft_sessions WHERE league_id = $1`

	lockSessionSQL = getSessionByLeagueSQL + ` FOR UPDATE`

	updateSessionSQL = `
UPDATE draft_sessions SET
    status = $2,
    current_pick = $3,
    pick_started_at = $4,
    pick_allowance_ms = $5,
    pick_deadline = $6,
    paused_at = $7,
    paused_by = $8,
    pause_time_remaining_ms = $9,
    started_at = $10,
    completed_at = $11,
    updated_at = $12
WHERE id = $1`

	listTeamsSQL = `
SELECT id, session_id, league_id, owner_id, name, draft_order, created_at
FROM fantasy_teams
WHERE session_id = $1
ORDER BY draft_order, created_at, id`

	updateDraftOrderSQL = `UPDATE fantasy_teams SET draft_order = $2 WHERE id = $1`

	listPicksSQL = `
SELECT id, session_id, pick_number, round, team_id, player_id, auto_pick, created_at
FROM draft_picks
WHERE session_id = $1
ORDER BY pick_number`

	insertPickSQL = `
INSERT INTO draft_picks (id, session_id, pick_number, round, team_id, player_id, auto_pick, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertRosterEntrySQL = `
INSERT INTO roster_entries (team_id, player_id, session_id, pick_number, acquired_at)
VALUES ($1, $2, $3, $4, $5)`

	rosterCountsSQL = `
SELECT team_id, count(*) FROM roster_entries WHERE session_id = $1 GROUP BY team_id`

	isDraftedSQL = `
SELECT EXISTS (SELECT 1 FROM draft_picks WHERE session_id = $1 AND player_id = $2)`

	listActionsSQL = `
SELECT id, session_id, action_type, user_id, team_id, player_id, pick_number, round_number, details, created_at
FROM draft_actions
WHERE session_id = $1
ORDER BY seq
LIMIT $2 OFFSET $3`

	insertActionSQL = `
INSERT INTO draft_actions (id, session_id, action_type, user_id, team_id, player_id, pick_number, round_number, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	listDueLeaguesSQL = `
SELECT league_id
FROM draft_sessions
WHERE status = 'IN_PROGRESS' AND pick_deadline <= $1
ORDER BY pick_deadline
LIMIT $2`

	// Unique constraint names from schema.sql.
	constraintPickNumber   = "draft_picks_session_pick_number_key"
	constraintPickPlayer   = "draft_picks_session_player_key"
	constraintRosterPlayer = "roster_entries_session_player_key"
	constraintLeague       = "draft_sessions_league_id_key"
)

var (
	rosterSQL = `
SELECT ` + player.Columns() + `
FROM roster_entries r
JOIN players p ON p.id = r.player_id
WHERE r.session_id = $1 AND r.team_id = $2
ORDER BY r.pick_number`

	getPlayerSQL = `SELECT ` + player.Columns() + ` FROM players p WHERE p.id = $1`

	availablePlayersSQL = `
SELECT ` + player.Columns() + `
FROM players p
WHERE NOT EXISTS (
    SELECT 1 FROM draft_picks dp WHERE dp.session_id = $1 AND dp.player_id = p.id
)`
)

// PostgresRepository is the Repository backed by database/sql and lib/pq.
type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PostgresRepository) CreateSession(ctx context.Context, session models.DraftSession, teams []models.FantasyTeam) error {
	settings, err := json.Marshal(session.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal draft settings: %w", err)
	}

	return sqlutil.Run(ctx, r.db, newPgTx, func(q *pgTx) error {
		_, err := q.tx.ExecContext(ctx, insertSessionSQL,
			session.ID, session.LeagueID, string(session.Status), session.CurrentPick,
			settings, session.CreatedAt, session.UpdatedAt,
		)
		if err != nil {
			if constraint, ok := sqlutil.UniqueViolation(err); ok && constraint == constraintLeague {
				return ErrSessionExists
			}
			return fmt.Errorf("failed to insert draft session: %w", err)
		}
		for _, t := range teams {
			if _, err := q.tx.ExecContext(ctx, insertTeamSQL,
				t.ID, t.SessionID, t.LeagueID, t.OwnerID, t.Name, t.DraftOrder, t.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert fantasy team: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresRepository) GetSessionByLeague(ctx context.Context, leagueID uuid.UUID) (*models.DraftSession, error) {
	return getSession(ctx, r.db, getSessionByLeagueSQL, leagueID)
}

func (r *PostgresRepository) ListTeams(ctx context.Context, sessionID uuid.UUID) ([]models.FantasyTeam, error) {
	return listTeams(ctx, r.db, sessionID)
}

func (r *PostgresRepository) ListPicks(ctx context.Context, sessionID uuid.UUID) ([]models.DraftPick, error) {
	rows, err := r.db.QueryContext(ctx, listPicksSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft picks: %w", err)
	}
	defer rows.Close()

	var picks []models.DraftPick
	for rows.Next() {
		var p models.DraftPick
		if err := rows.Scan(&p.ID, &p.SessionID, &p.PickNumber, &p.Round, &p.TeamID, &p.PlayerID, &p.AutoPick, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draft pick: %w", err)
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

func (r *PostgresRepository) ListActions(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]models.DraftAction, error) {
	rows, err := r.db.QueryContext(ctx, listActionsSQL, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft actions: %w", err)
	}
	defer rows.Close()

	actions := []models.DraftAction{}
	for rows.Next() {
		var (
			a          models.DraftAction
			actionType string
			userID     uuid.NullUUID
			teamID     uuid.NullUUID
			playerID   uuid.NullUUID
			pickNumber sql.NullInt32
			round      sql.NullInt32
			details    pqtype.NullRawMessage
		)
		if err := rows.Scan(&a.ID, &a.SessionID, &actionType, &userID, &teamID, &playerID, &pickNumber, &round, &details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draft action: %w", err)
		}
		a.ActionType = models.DraftActionType(actionType)
		a.UserID = sqlutil.FromNullUUID(userID)
		a.TeamID = sqlutil.FromNullUUID(teamID)
		a.PlayerID = sqlutil.FromNullUUID(playerID)
		a.PickNumber = sqlutil.FromSqlInt32(pickNumber)
		a.RoundNumber = sqlutil.FromSqlInt32(round)
		if details.Valid {
			a.Details = details.RawMessage
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (r *PostgresRepository) ListDueLeagues(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, listDueLeaguesSQL, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due leagues: %w", err)
	}
	defer rows.Close()

	var leagues []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan league id: %w", err)
		}
		leagues = append(leagues, id)
	}
	return leagues, rows.Err()
}

// WithLeagueLock holds the session row lock for the duration of fn.
func (r *PostgresRepository) WithLeagueLock(ctx context.Context, leagueID uuid.UUID, fn func(tx Tx) error) error {
	return sqlutil.Run(ctx, r.db, newPgTx, func(q *pgTx) error {
		session, err := getSession(ctx, q.tx, lockSessionSQL, leagueID)
		if err != nil {
			return err
		}
		q.session = session
		return fn(q)
	})
}

// pgTx is the Tx bound to one *sql.Tx.
type pgTx struct {
	tx      *sql.Tx
	session *models.DraftSession
}

func newPgTx(tx *sql.Tx) *pgTx {
	return &pgTx{tx: tx}
}

func (q *pgTx) Session() *models.DraftSession {
	return q.session
}

func (q *pgTx) SaveSession(ctx context.Context, s *models.DraftSession) error {
	_, err := q.tx.ExecContext(ctx, updateSessionSQL,
		s.ID,
		string(s.Status),
		s.CurrentPick,
		sqlutil.ToSqlTime(s.PickStartedAt),
		s.PickAllowanceMs,
		sqlutil.ToSqlTime(s.PickDeadline),
		sqlutil.ToSqlTime(s.PausedAt),
		sqlutil.ToNullUUID(s.PausedBy),
		sqlutil.ToSqlInt64(s.PauseTimeRemainingMs),
		sqlutil.ToSqlTime(s.StartedAt),
		sqlutil.ToSqlTime(s.CompletedAt),
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update draft session: %w", err)
	}
	return nil
}

func (q *pgTx) Teams(ctx context.Context) ([]models.FantasyTeam, error) {
	return listTeams(ctx, q.tx, q.session.ID)
}

func (q *pgTx) SaveDraftOrder(ctx context.Context, teams []models.FantasyTeam) error {
	for _, t := range teams {
		if _, err := q.tx.ExecContext(ctx, updateDraftOrderSQL, t.ID, t.DraftOrder); err != nil {
			return fmt.Errorf("failed to update draft order: %w", err)
		}
	}
	return nil
}

func (q *pgTx) RosterCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := q.tx.QueryContext(ctx, rosterCountsSQL, q.session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count rosters: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			teamID uuid.UUID
			n      int
		)
		if err := rows.Scan(&teamID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan roster count: %w", err)
		}
		counts[teamID] = n
	}
	return counts, rows.Err()
}

func (q *pgTx) Roster(ctx context.Context, teamID uuid.UUID) ([]models.Player, error) {
	rows, err := q.tx.QueryContext(ctx, rosterSQL, q.session.ID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	defer rows.Close()
	return player.ScanPlayers(rows)
}

func (q *pgTx) Player(ctx context.Context, playerID uuid.UUID) (*models.Player, error) {
	p, err := player.ScanPlayer(q.tx.QueryRowContext(ctx, getPlayerSQL, playerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

func (q *pgTx) IsDrafted(ctx context.Context, playerID uuid.UUID) (bool, error) {
	var drafted bool
	if err := q.tx.QueryRowContext(ctx, isDraftedSQL, q.session.ID, playerID).Scan(&drafted); err != nil {
		return false, fmt.Errorf("failed to check drafted player: %w", err)
	}
	return drafted, nil
}

func (q *pgTx) AvailablePlayers(ctx context.Context) ([]models.Player, error) {
	rows, err := q.tx.QueryContext(ctx, availablePlayersSQL, q.session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", err)
	}
	defer rows.Close()
	return player.ScanPlayers(rows)
}

// InsertPick maps the draft_picks unique constraints onto domain errors.
func (q *pgTx) InsertPick(ctx context.Context, pick models.DraftPick) error {
	_, err := q.tx.ExecContext(ctx, insertPickSQL,
		pick.ID, pick.SessionID, pick.PickNumber, pick.Round,
		pick.TeamID, pick.PlayerID, pick.AutoPick, pick.CreatedAt,
	)
	if err == nil {
		return nil
	}
	if constraint, ok := sqlutil.UniqueViolation(err); ok {
		switch constraint {
		case constraintPickNumber:
			return fmt.Errorf("%w: pick %d already made", ErrNotYourTurn, pick.PickNumber)
		case constraintPickPlayer:
			return ErrPlayerAlreadyDrafted
		}
	}
	return fmt.Errorf("failed to insert draft pick: %w", err)
}

func (q *pgTx) AddRosterEntry(ctx context.Context, e models.RosterEntry) error {
	_, err := q.tx.ExecContext(ctx, insertRosterEntrySQL, e.TeamID, e.PlayerID, e.SessionID, e.PickNumber, e.AcquiredAt)
	if err != nil {
		if constraint, ok := sqlutil.UniqueViolation(err); ok && constraint == constraintRosterPlayer {
			return ErrPlayerAlreadyDrafted
		}
		return fmt.Errorf("failed to insert roster entry: %w", err)
	}
	return nil
}

func (q *pgTx) AppendAction(ctx context.Context, a models.DraftAction) error {
	_, err := q.tx.ExecContext(ctx, insertActionSQL,
		a.ID,
		a.SessionID,
		string(a.ActionType),
		sqlutil.ToNullUUID(a.UserID),
		sqlutil.ToNullUUID(a.TeamID),
		sqlutil.ToNullUUID(a.PlayerID),
		sqlutil.ToSqlInt32(a.PickNumber),
		sqlutil.ToSqlInt32(a.RoundNumber),
		pqtype.NullRawMessage{RawMessage: a.Details, Valid: len(a.Details) > 0},
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert draft action: %w", err)
	}
	return nil
}

func getSession(ctx context.Context, q queryer, query string, leagueID uuid.UUID) (*models.DraftSession, error) {
	var (
		s             models.DraftSession
		status        string
		settings      []byte
		pickStartedAt sql.NullTime
		pickDeadline  sql.NullTime
		pausedAt      sql.NullTime
		pausedBy      uuid.NullUUID
		pauseLeft     sql.NullInt64
		startedAt     sql.NullTime
		completedAt   sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, leagueID).Scan(
		&s.ID, &s.LeagueID, &status, &s.CurrentPick, &settings,
		&pickStartedAt, &s.PickAllowanceMs, &pickDeadline,
		&pausedAt, &pausedBy, &pauseLeft,
		&startedAt, &completedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get draft session: %w", err)
	}
	if err := json.Unmarshal(settings, &s.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft settings: %w", err)
	}

	s.Status = models.DraftStatus(status)
	s.PickStartedAt = sqlutil.FromSqlTime(pickStartedAt)
	s.PickDeadline = sqlutil.FromSqlTime(pickDeadline)
	s.PausedAt = sqlutil.FromSqlTime(pausedAt)
	s.PausedBy = sqlutil.FromNullUUID(pausedBy)
	s.PauseTimeRemainingMs = sqlutil.FromSqlInt64(pauseLeft)
	s.StartedAt = sqlutil.FromSqlTime(startedAt)
	s.CompletedAt = sqlutil.FromSqlTime(completedAt)
	return &s, nil
}

func listTeams(ctx context.Context, q queryer, sessionID uuid.UUID) ([]models.FantasyTeam, error) {
	rows, err := q.QueryContext(ctx, listTeamsSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fantasy teams: %w", err)
	}
	defer rows.Close()

	var teams []models.FantasyTeam
	for rows.Next() {
		var t models.FantasyTeam
		if err := rows.Scan(&t.ID, &t.SessionID, &t.LeagueID, &t.OwnerID, &t.Name, &t.DraftOrder, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fantasy team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}
