package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceAppender struct {
	entries []models.DraftAction
}

func (s *sliceAppender) AppendAction(_ context.Context, a models.DraftAction) error {
	s.entries = append(s.entries, a)
	return nil
}

func TestRecordPick(t *testing.T) {
	now := time.Date(2025, 10, 1, 19, 0, 0, 0, time.UTC)
	r := NewRecorder(clockwork.NewFakeClockAt(now))
	app := &sliceAppender{}
	session, user, team, player := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	entry, err := r.Record(context.Background(), session, app, Action{
		Type:        models.DraftActionPick,
		UserID:      &user,
		TeamID:      &team,
		PlayerID:    &player,
		PickNumber:  5,
		RoundNumber: 2,
		Details:     map[string]any{"player_name": "Center"},
	})
	require.NoError(t, err)
	require.Len(t, app.entries, 1)

	assert.Equal(t, session, entry.SessionID)
	assert.Equal(t, now, entry.CreatedAt)
	require.NotNil(t, entry.PickNumber)
	assert.Equal(t, 5, *entry.PickNumber)
	assert.Equal(t, 2, *entry.RoundNumber)

	var details map[string]string
	require.NoError(t, json.Unmarshal(entry.Details, &details))
	assert.Equal(t, "Center", details["player_name"])
}

func TestRecordRejectsInvalidActions(t *testing.T) {
	r := NewRecorder(clockwork.NewFakeClock())
	app := &sliceAppender{}
	user := uuid.New()
	team, player := uuid.New(), uuid.New()

	tests := []struct {
		name   string
		action Action
	}{
		{"unknown type", Action{Type: "trade"}},
		{"auto pick with user", Action{Type: models.DraftActionAutoPick, UserID: &user, TeamID: &team, PlayerID: &player, PickNumber: 1}},
		{"pick without player", Action{Type: models.DraftActionPick, TeamID: &team, PickNumber: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Record(context.Background(), uuid.New(), app, tt.action)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, app.entries)
}

func TestRecordStartWithoutDetails(t *testing.T) {
	r := NewRecorder(nil)
	app := &sliceAppender{}
	entry, err := r.Record(context.Background(), uuid.New(), app, Action{Type: models.DraftActionStart})
	require.NoError(t, err)
	assert.Nil(t, entry.Details)
	assert.Nil(t, entry.PickNumber)
}
