package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DraftActionType enumerates audit log entries.
type DraftActionType string

const (
	DraftActionStart    DraftActionType = "start"
	DraftActionPick     DraftActionType = "pick"
	DraftActionAutoPick DraftActionType = "auto_pick"
	DraftActionPause    DraftActionType = "pause"
	DraftActionResume   DraftActionType = "resume"
	DraftActionComplete DraftActionType = "complete"
)

// DraftAction is an append-only audit record.
type DraftAction struct {
	ID          uuid.UUID       `json:"id"`
	SessionID   uuid.UUID       `json:"session_id"`
	ActionType  DraftActionType `json:"action_type"`
	UserID      *uuid.UUID      `json:"user_id,omitempty"`
	TeamID      *uuid.UUID      `json:"team_id,omitempty"`
	PlayerID    *uuid.UUID      `json:"player_id,omitempty"`
	PickNumber  *int            `json:"pick_number,omitempty"`
	RoundNumber *int            `json:"round_number,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
