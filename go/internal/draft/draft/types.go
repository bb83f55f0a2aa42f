package draft

import (
	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/draft/clock"
	"github.com/mcdev12/courtside/go/internal/models"
)

// TeamSeat is a team registered when the session is created.
type TeamSeat struct {
	ID         uuid.UUID `json:"id,omitempty"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Name       string    `json:"name"`
	DraftOrder int       `json:"draft_order,omitempty"` // honoured with CONFIGURED seat order
}

// CreateSessionRequest represents a request to configure a league's draft
type CreateSessionRequest struct {
	LeagueID uuid.UUID            `json:"league_id"`
	Settings models.DraftSettings `json:"settings"`
	Teams    []TeamSeat           `json:"teams"`
}

// MakePickRequest represents a manual pick. ExpectedPick, when set, must match
// the pick on the clock so a stale client cannot land on the next turn. The RPC
// and Client always set it; in-process callers may leave it nil.
type MakePickRequest struct {
	LeagueID     uuid.UUID `json:"league_id"`
	TeamID       uuid.UUID `json:"team_id"`
	PlayerID     uuid.UUID `json:"player_id"`
	ExpectedPick *int      `json:"expected_pick,omitempty"`
}

// SessionView is a read model of a session with its derived turn state.
type SessionView struct {
	Session     models.DraftSession  `json:"session"`
	Teams       []models.FantasyTeam `json:"teams"`
	TeamOnClock *models.FantasyTeam  `json:"team_on_clock,omitempty"`
	Round       int                  `json:"round"`
	PickInRound int                  `json:"pick_in_round"`
	TotalPicks  int                  `json:"total_picks"`
	Clock       clock.View           `json:"clock"`
}

// TransitionResult is returned by Start, Pause and Resume. Notified is false
// when the state change committed but its broadcast did not go out.
type TransitionResult struct {
	State    *SessionView `json:"state"`
	Notified bool         `json:"notified"`
}

// PickResult describes a committed pick.
type PickResult struct {
	Pick        models.DraftPick   `json:"pick"`
	Player      models.Player      `json:"player"`
	Team        models.FantasyTeam `json:"team"`
	CurrentPick int                `json:"current_pick"`
	TeamOnClock *uuid.UUID         `json:"team_on_clock,omitempty"`
	Completed   bool               `json:"completed"`
	Clock       clock.View         `json:"clock"`
	Notified    bool               `json:"notified"`
}

// ExpiryResult reports whether an expiry check auto-picked.
type ExpiryResult struct {
	Applied bool        `json:"applied"`
	Pick    *PickResult `json:"pick,omitempty"`
}
