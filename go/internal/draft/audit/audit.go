// Package audit records the append-only history of a draft session.
//
// Entries are written through the same transaction as the state change they
// describe, so the log never claims something the session tables do not hold.
// The log is for display and dispute resolution only; session state is never
// rebuilt from it.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/courtside/go/internal/models"
)

// Appender is the only write path into the log.
type Appender interface {
	AppendAction(ctx context.Context, action models.DraftAction) error
}

// Action is an entry before it is stamped.
type Action struct {
	Type        models.DraftActionType
	UserID      *uuid.UUID
	TeamID      *uuid.UUID
	PlayerID    *uuid.UUID
	PickNumber  int
	RoundNumber int
	Details     map[string]any
}

// Recorder stamps and appends actions.
type Recorder struct {
	clock clockwork.Clock
}

func NewRecorder(clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{clock: clock}
}

// Record validates the action, stamps id and time, and appends it.
func (r *Recorder) Record(ctx context.Context, sessionID uuid.UUID, appender Appender, action Action) (models.DraftAction, error) {
	if err := validate(action); err != nil {
		return models.DraftAction{}, err
	}

	entry := models.DraftAction{
		ID:         uuid.New(),
		SessionID:  sessionID,
		ActionType: action.Type,
		UserID:     action.UserID,
		TeamID:     action.TeamID,
		PlayerID:   action.PlayerID,
		CreatedAt:  r.clock.Now().UTC(),
	}
	if action.PickNumber > 0 {
		n := action.PickNumber
		entry.PickNumber = &n
	}
	if action.RoundNumber > 0 {
		n := action.RoundNumber
		entry.RoundNumber = &n
	}
	if len(action.Details) > 0 {
		details, err := json.Marshal(action.Details)
		if err != nil {
			return models.DraftAction{}, fmt.Errorf("marshal %s details: %w", action.Type, err)
		}
		entry.Details = details
	}

	if err := appender.AppendAction(ctx, entry); err != nil {
		return models.DraftAction{}, fmt.Errorf("append %s action: %w", action.Type, err)
	}
	return entry, nil
}

func validate(action Action) error {
	switch action.Type {
	case models.DraftActionStart, models.DraftActionPause, models.DraftActionResume,
		models.DraftActionPick, models.DraftActionComplete:
	case models.DraftActionAutoPick:
		if action.UserID != nil {
			return fmt.Errorf("auto_pick actions have no acting user")
		}
	default:
		return fmt.Errorf("invalid action type: %q", action.Type)
	}

	switch action.Type {
	case models.DraftActionPick, models.DraftActionAutoPick:
		if action.TeamID == nil || action.PlayerID == nil || action.PickNumber <= 0 {
			return fmt.Errorf("%s actions require team, player and pick number", action.Type)
		}
	}
	return nil
}
