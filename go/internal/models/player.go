package models

import (
	"time"

	"github.com/google/uuid"
)

// Basketball positions.
const (
	PositionPointGuard    = "PG"
	PositionShootingGuard = "SG"
	PositionSmallForward  = "SF"
	PositionPowerForward  = "PF"
	PositionCenter        = "C"
)

// Player represents a draftable basketball player
type Player struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Position  string    `json:"position"`
	NBATeam   string    `json:"nba_team"`
	Price     float64   `json:"price"`
	Rank      int       `json:"rank"` // 1 is best, 0 is unranked
	CreatedAt time.Time `json:"created_at"`
}
