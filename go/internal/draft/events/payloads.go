package events

import (
	"time"

	"github.com/google/uuid"
)

// Event payload types shared by the draft state machine, the broadcast gateway
// and the websocket gateway. Every payload that carries a timer reference has
// both end_time and server_time so clients can correct for clock skew.

// PickInfo describes a committed pick.
type PickInfo struct {
	PickID     uuid.UUID `json:"pick_id"`
	PickNumber int       `json:"pick_number"`
	Round      int       `json:"round"`
	TeamID     uuid.UUID `json:"team_id"`
	TeamName   string    `json:"team_name"`
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Position   string    `json:"position"`
	AutoPick   bool      `json:"auto_pick"`
	MadeAt     time.Time `json:"made_at"`
}

// DraftStartedPayload is the payload for a draft-started event
type DraftStartedPayload struct {
	SessionID   uuid.UUID  `json:"session_id"`
	CurrentPick int        `json:"current_pick"`
	TeamOnClock *uuid.UUID `json:"team_on_clock,omitempty"`
	TotalPicks  int        `json:"total_picks"`
	EndTime     time.Time  `json:"end_time"`
	ServerTime  time.Time  `json:"server_time"`
}

// PickMadePayload is the payload for a pick-made event. EndTime is nil when the
// pick completed the draft.
type PickMadePayload struct {
	Pick        PickInfo   `json:"pick"`
	CurrentPick int        `json:"current_pick"`
	TeamOnClock *uuid.UUID `json:"team_on_clock,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	ServerTime  time.Time  `json:"server_time"`
}

// DraftPausedPayload is the payload for a draft-paused event
type DraftPausedPayload struct {
	PausedBy        uuid.UUID `json:"paused_by"`
	TimeRemainingMs int64     `json:"time_remaining"`
	PausedAt        time.Time `json:"paused_at"`
}

// DraftResumedPayload is the payload for a draft-resumed event. Clients restart
// their countdown from PickStartedAt rather than continuing a local timer.
type DraftResumedPayload struct {
	ResumedBy     uuid.UUID `json:"resumed_by"`
	PickStartedAt time.Time `json:"pick_started_at"`
	EndTime       time.Time `json:"end_time"`
	ServerTime    time.Time `json:"server_time"`
}

// DraftCompletedPayload is the payload for a draft-completed event
type DraftCompletedPayload struct {
	CompletedAt time.Time `json:"completed_at"`
	TotalPicks  int       `json:"total_picks"`
}

// ChatMessagePayload is an informational league chat message.
type ChatMessagePayload struct {
	UserID  uuid.UUID `json:"user_id"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}
