package models

import (
	"time"

	"github.com/google/uuid"
)

// RosterEntry is a player owned by a fantasy team, acquired through a draft pick.
type RosterEntry struct {
	TeamID     uuid.UUID `json:"team_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	SessionID  uuid.UUID `json:"session_id"`
	PickNumber int       `json:"pick_number"`
	AcquiredAt time.Time `json:"acquired_at"`
}
