package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus defines the status of a draft session.
type DraftStatus string

const (
	DraftStatusPending    DraftStatus = "PENDING"
	DraftStatusInProgress DraftStatus = "IN_PROGRESS"
	DraftStatusPaused     DraftStatus = "PAUSED"
	DraftStatusCompleted  DraftStatus = "COMPLETED"
)

// AutoPickMetric selects how the auto-picker ranks available players.
type AutoPickMetric string

const (
	AutoPickMetricPrice AutoPickMetric = "price"
	AutoPickMetricRank  AutoPickMetric = "rank"
)

// SeatOrder controls how draft_order is seeded when the draft starts.
type SeatOrder string

const (
	SeatOrderRandom     SeatOrder = "RANDOM"
	SeatOrderConfigured SeatOrder = "CONFIGURED"
)

// PositionLimit bounds how many players of one position a roster may hold.
// Max of 0 means unbounded.
type PositionLimit struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DraftSettings holds JSONB configuration for a draft session.
type DraftSettings struct {
	PickTimeLimitSec int                      `json:"pick_time_limit_sec"`
	TeamSize         int                      `json:"team_size"`
	AutoPickMetric   AutoPickMetric           `json:"auto_pick_metric"`
	PositionLimits   map[string]PositionLimit `json:"position_limits,omitempty"`
	SeatOrder        SeatOrder                `json:"seat_order"`
}

// PickTimeLimit returns the configured per-pick limit as a duration.
func (s DraftSettings) PickTimeLimit() time.Duration {
	return time.Duration(s.PickTimeLimitSec) * time.Second
}

// DraftSession is the live draft of one fantasy league.
type DraftSession struct {
	ID          uuid.UUID     `json:"id"`
	LeagueID    uuid.UUID     `json:"league_id"`
	Status      DraftStatus   `json:"status"`
	CurrentPick int           `json:"current_pick"`
	Settings    DraftSettings `json:"settings"`

	// Clock state. PickStartedAt is nil while paused.
	PickStartedAt   *time.Time `json:"pick_started_at,omitempty"`
	PickAllowanceMs int64      `json:"pick_allowance_ms"`
	PickDeadline    *time.Time `json:"pick_deadline,omitempty"`

	PausedAt             *time.Time `json:"paused_at,omitempty"`
	PausedBy             *uuid.UUID `json:"paused_by,omitempty"`
	PauseTimeRemainingMs *int64     `json:"pause_time_remaining_ms,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsPaused reports whether the session clock is frozen.
func (s *DraftSession) IsPaused() bool {
	return s.Status == DraftStatusPaused
}
