package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftPick is an immutable player-to-team assignment.
type DraftPick struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	PickNumber int       `json:"pick_number"` // global, 1-based
	Round      int       `json:"round"`
	TeamID     uuid.UUID `json:"team_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	AutoPick   bool      `json:"auto_pick"`
	CreatedAt  time.Time `json:"created_at"`
}
