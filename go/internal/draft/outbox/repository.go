package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/draft/events"
	"github.com/mcdev12/courtside/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

var ErrEntryNotFound = errors.New("outbox entry not found or already sent")

const (
	insertOutboxSQL = `
INSERT INTO draft_broadcast_outbox (id, league_id, event_type, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`

	fetchUnsentSQL = `
SELECT id, league_id, event_type, payload, occurred_at, created_at, sent_at, attempts
FROM draft_broadcast_outbox
WHERE sent_at IS NULL
ORDER BY created_at
LIMIT $1`

	fetchByIDSQL = `
SELECT id, league_id, event_type, payload, occurred_at, created_at, sent_at, attempts
FROM draft_broadcast_outbox
WHERE id = $1 AND sent_at IS NULL`

	markSentSQL = `
UPDATE draft_broadcast_outbox
SET sent_at = $2, attempts = attempts + 1
WHERE id = $1`

	markAttemptSQL = `
UPDATE draft_broadcast_outbox
SET attempts = attempts + 1
WHERE id = $1`

	countUnsentSQL = `SELECT count(*) FROM draft_broadcast_outbox WHERE sent_at IS NULL`
)

// Repository is the Postgres store behind the relay.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Enqueue stores a failed broadcast. The insert fires the notify trigger.
func (r *Repository) Enqueue(ctx context.Context, event events.Event) error {
	entry := EntryFromEvent(event)
	_, err := r.db.ExecContext(ctx, insertOutboxSQL,
		entry.ID,
		entry.LeagueID,
		string(entry.EventType),
		pqtype.NullRawMessage{RawMessage: entry.Payload, Valid: len(entry.Payload) > 0},
		entry.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox entry: %w", err)
	}
	return nil
}

func (r *Repository) FetchUnsent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, fetchUnsentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox entries: %w", err)
	}
	return entries, nil
}

func (r *Repository) FetchByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	entry, err := scanEntry(r.db.QueryRowContext(ctx, fetchByIDSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, markSentSQL, id, at); err != nil {
		return fmt.Errorf("failed to mark outbox entry as sent: %w", err)
	}
	return nil
}

func (r *Repository) MarkAttempt(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, markAttemptSQL, id); err != nil {
		return fmt.Errorf("failed to record outbox attempt: %w", err)
	}
	return nil
}

func (r *Repository) CountUnsent(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countUnsentSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unsent outbox entries: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		entry     Entry
		eventType string
		payload   pqtype.NullRawMessage
		sentAt    sql.NullTime
	)
	err := s.Scan(
		&entry.ID,
		&entry.LeagueID,
		&eventType,
		&payload,
		&entry.OccurredAt,
		&entry.CreatedAt,
		&sentAt,
		&entry.Attempts,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("failed to scan outbox entry: %w", err)
	}
	entry.EventType = events.Type(eventType)
	if payload.Valid {
		entry.Payload = payload.RawMessage
	}
	entry.SentAt = sqlutil.FromSqlTime(sentAt)
	return entry, nil
}
