package draft

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/models"
)

// MemoryStore is an in-process Repository. Each league has its own mutex, and
// writes made inside WithLeagueLock are staged and applied only when the
// callback succeeds.
type MemoryStore struct {
	mu       sync.RWMutex
	locks    map[uuid.UUID]*sync.Mutex
	sessions map[uuid.UUID]*models.DraftSession // by league id
	teams    map[uuid.UUID][]models.FantasyTeam // by session id
	picks    map[uuid.UUID][]models.DraftPick
	rosters  map[uuid.UUID][]models.RosterEntry
	actions  map[uuid.UUID][]models.DraftAction
	players  map[uuid.UUID]models.Player
}

var _ Repository = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:    make(map[uuid.UUID]*sync.Mutex),
		sessions: make(map[uuid.UUID]*models.DraftSession),
		teams:    make(map[uuid.UUID][]models.FantasyTeam),
		picks:    make(map[uuid.UUID][]models.DraftPick),
		rosters:  make(map[uuid.UUID][]models.RosterEntry),
		actions:  make(map[uuid.UUID][]models.DraftAction),
		players:  make(map[uuid.UUID]models.Player),
	}
}

// AddPlayers loads players into the pool.
func (m *MemoryStore) AddPlayers(players ...models.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range players {
		m.players[p.ID] = p
	}
}

func (m *MemoryStore) CreateSession(_ context.Context, session models.DraftSession, teams []models.FantasyTeam) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.LeagueID]; ok {
		return ErrSessionExists
	}
	s := session
	m.sessions[session.LeagueID] = &s
	m.teams[session.ID] = append([]models.FantasyTeam(nil), teams...)
	return nil
}

func (m *MemoryStore) GetSessionByLeague(_ context.Context, leagueID uuid.UUID) (*models.DraftSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[leagueID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := *s
	return &out, nil
}

func (m *MemoryStore) ListTeams(_ context.Context, sessionID uuid.UUID) ([]models.FantasyTeam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.FantasyTeam(nil), m.teams[sessionID]...), nil
}

func (m *MemoryStore) ListPicks(_ context.Context, sessionID uuid.UUID) ([]models.DraftPick, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	picks := append([]models.DraftPick(nil), m.picks[sessionID]...)
	sort.Slice(picks, func(i, j int) bool { return picks[i].PickNumber < picks[j].PickNumber })
	return picks, nil
}

func (m *MemoryStore) ListActions(_ context.Context, sessionID uuid.UUID, limit, offset int) ([]models.DraftAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.actions[sessionID]
	if offset >= len(all) {
		return []models.DraftAction{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]models.DraftAction(nil), all[offset:end]...), nil
}

func (m *MemoryStore) ListDueLeagues(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []*models.DraftSession
	for _, s := range m.sessions {
		if s.Status == models.DraftStatusInProgress && s.PickDeadline != nil && !s.PickDeadline.After(now) {
			due = append(due, s)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].PickDeadline.Before(*due[j].PickDeadline) })

	leagues := make([]uuid.UUID, 0, len(due))
	for _, s := range due {
		if limit > 0 && len(leagues) == limit {
			break
		}
		leagues = append(leagues, s.LeagueID)
	}
	return leagues, nil
}

// ListAvailable serves the player cache.
func (m *MemoryStore) ListAvailable(_ context.Context, sessionID uuid.UUID) ([]models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.availableLocked(sessionID, nil), nil
}

func (m *MemoryStore) WithLeagueLock(ctx context.Context, leagueID uuid.UUID, fn func(tx Tx) error) error {
	lock := m.leagueLock(leagueID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	session, err := m.GetSessionByLeague(ctx, leagueID)
	if err != nil {
		return err
	}

	tx := &memoryTx{store: m, session: session}
	if err := fn(tx); err != nil {
		return err
	}
	m.apply(tx)
	return nil
}

func (m *MemoryStore) leagueLock(leagueID uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[leagueID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[leagueID] = l
	}
	return l
}

func (m *MemoryStore) apply(tx *memoryTx) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sid := tx.session.ID
	if tx.savedSession != nil {
		s := *tx.savedSession
		m.sessions[s.LeagueID] = &s
	}
	if tx.draftOrder != nil {
		m.teams[sid] = tx.draftOrder
	}
	m.picks[sid] = append(m.picks[sid], tx.picks...)
	m.rosters[sid] = append(m.rosters[sid], tx.roster...)
	m.actions[sid] = append(m.actions[sid], tx.actions...)
}

// availableLocked lists undrafted players by price then id. Caller holds mu.
func (m *MemoryStore) availableLocked(sessionID uuid.UUID, staged []models.DraftPick) []models.Player {
	drafted := make(map[uuid.UUID]bool)
	for _, p := range m.picks[sessionID] {
		drafted[p.PlayerID] = true
	}
	for _, p := range staged {
		drafted[p.PlayerID] = true
	}

	out := make([]models.Player, 0, len(m.players))
	for id, p := range m.players {
		if !drafted[id] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price > out[j].Price
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

type memoryTx struct {
	store   *MemoryStore
	session *models.DraftSession

	savedSession *models.DraftSession
	draftOrder   []models.FantasyTeam
	picks        []models.DraftPick
	roster       []models.RosterEntry
	actions      []models.DraftAction
}

func (t *memoryTx) Session() *models.DraftSession {
	return t.session
}

func (t *memoryTx) SaveSession(_ context.Context, session *models.DraftSession) error {
	s := *session
	t.savedSession = &s
	return nil
}

func (t *memoryTx) Teams(ctx context.Context) ([]models.FantasyTeam, error) {
	if t.draftOrder != nil {
		return append([]models.FantasyTeam(nil), t.draftOrder...), nil
	}
	return t.store.ListTeams(ctx, t.session.ID)
}

func (t *memoryTx) SaveDraftOrder(_ context.Context, teams []models.FantasyTeam) error {
	t.draftOrder = append([]models.FantasyTeam(nil), teams...)
	return nil
}

func (t *memoryTx) RosterCounts(_ context.Context) (map[uuid.UUID]int, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	counts := make(map[uuid.UUID]int)
	for _, e := range t.store.rosters[t.session.ID] {
		counts[e.TeamID]++
	}
	for _, e := range t.roster {
		counts[e.TeamID]++
	}
	return counts, nil
}

func (t *memoryTx) Roster(_ context.Context, teamID uuid.UUID) ([]models.Player, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	var players []models.Player
	for _, entries := range [][]models.RosterEntry{t.store.rosters[t.session.ID], t.roster} {
		for _, e := range entries {
			if e.TeamID == teamID {
				players = append(players, t.store.players[e.PlayerID])
			}
		}
	}
	return players, nil
}

func (t *memoryTx) Player(_ context.Context, playerID uuid.UUID) (*models.Player, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	p, ok := t.store.players[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	return &p, nil
}

func (t *memoryTx) IsDrafted(_ context.Context, playerID uuid.UUID) (bool, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.draftedLocked(playerID), nil
}

func (t *memoryTx) AvailablePlayers(_ context.Context) ([]models.Player, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.availableLocked(t.session.ID, t.picks), nil
}

// InsertPick enforces the same uniqueness as the draft_picks constraints.
func (t *memoryTx) InsertPick(_ context.Context, pick models.DraftPick) error {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	for _, picks := range [][]models.DraftPick{t.store.picks[t.session.ID], t.picks} {
		for _, p := range picks {
			if p.PickNumber == pick.PickNumber {
				return fmt.Errorf("%w: pick %d already made", ErrNotYourTurn, pick.PickNumber)
			}
		}
	}
	if t.draftedLocked(pick.PlayerID) {
		return ErrPlayerAlreadyDrafted
	}
	t.picks = append(t.picks, pick)
	return nil
}

func (t *memoryTx) AddRosterEntry(_ context.Context, entry models.RosterEntry) error {
	t.roster = append(t.roster, entry)
	return nil
}

func (t *memoryTx) AppendAction(_ context.Context, action models.DraftAction) error {
	t.actions = append(t.actions, action)
	return nil
}

func (t *memoryTx) draftedLocked(playerID uuid.UUID) bool {
	for _, picks := range [][]models.DraftPick{t.store.picks[t.session.ID], t.picks} {
		for _, p := range picks {
			if p.PlayerID == playerID {
				return true
			}
		}
	}
	return false
}
