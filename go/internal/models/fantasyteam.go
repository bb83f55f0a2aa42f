package models

import (
	"github.com/google/uuid"
	"time"
)

// FantasyTeam is a seat in a draft session.
type FantasyTeam struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	LeagueID   uuid.UUID `json:"league_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Name       string    `json:"name"`
	DraftOrder int       `json:"draft_order"` // 1..N once the draft has started, 0 before
	CreatedAt  time.Time `json:"created_at"`
}
