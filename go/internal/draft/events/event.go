package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type names a broadcast event.
type Type string

const (
	TypeDraftStarted   Type = "draft-started"
	TypePickMade       Type = "pick-made"
	TypeDraftPaused    Type = "draft-paused"
	TypeDraftResumed   Type = "draft-resumed"
	TypeDraftCompleted Type = "draft-completed"
	TypeChatMessage    Type = "chat-message"
	// TypeStateSync is sent only by the websocket gateway to newly connected clients.
	TypeStateSync Type = "state-sync"
)

// Topic prefixes. Each league gets its own subtree.
const (
	DraftTopicPrefix = "draft.events"
	ChatTopicPrefix  = "league.chat"
)

// Event is the envelope published on a league topic.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      Type            `json:"type"`
	LeagueID  uuid.UUID       `json:"league_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// New marshals payload into an envelope.
func New(leagueID uuid.UUID, eventType Type, payload any, at time.Time) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		LeagueID:  leagueID,
		Timestamp: at.UTC(),
		Payload:   data,
	}, nil
}

// Subject returns the pub/sub subject the event is published on.
func (e Event) Subject() string {
	if e.Type == TypeChatMessage {
		return fmt.Sprintf("%s.%s", ChatTopicPrefix, e.LeagueID)
	}
	return fmt.Sprintf("%s.%s.%s", DraftTopicPrefix, e.LeagueID, e.Type)
}

// Decode unmarshals the payload into the struct matching the event type.
func (e Event) Decode() (any, error) {
	var target any
	switch e.Type {
	case TypeDraftStarted:
		target = &DraftStartedPayload{}
	case TypePickMade:
		target = &PickMadePayload{}
	case TypeDraftPaused:
		target = &DraftPausedPayload{}
	case TypeDraftResumed:
		target = &DraftResumedPayload{}
	case TypeDraftCompleted:
		target = &DraftCompletedPayload{}
	case TypeChatMessage:
		target = &ChatMessagePayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", e.Type)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", e.Type, err)
	}
	return target, nil
}
