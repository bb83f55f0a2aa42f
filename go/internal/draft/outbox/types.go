package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/draft/events"
)

// Entry is a broadcast that failed its first publish and waits for the relay.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	LeagueID   uuid.UUID       `json:"league_id"`
	EventType  events.Type     `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedAt  time.Time       `json:"created_at"`
	SentAt     *time.Time      `json:"sent_at,omitempty"`
	Attempts   int             `json:"attempts"`
}

// EntryFromEvent keeps the event id so the republished message deduplicates
// against the original publish.
func EntryFromEvent(e events.Event) Entry {
	return Entry{
		ID:         e.ID,
		LeagueID:   e.LeagueID,
		EventType:  e.Type,
		Payload:    e.Payload,
		OccurredAt: e.Timestamp,
	}
}

func (e Entry) Event() events.Event {
	return events.Event{
		ID:        e.ID,
		Type:      e.EventType,
		LeagueID:  e.LeagueID,
		Timestamp: e.OccurredAt,
		Payload:   e.Payload,
	}
}
