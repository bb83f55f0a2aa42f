package player

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/models"
)

const (
	playerColumns = `p.id, p.full_name, p.position, p.nba_team, p.price, p.rank, p.created_at`

	// Undrafted players in the session, in the default auto-pick order.
	listAvailableSQL = `
SELECT ` + playerColumns + `
FROM players p
WHERE NOT EXISTS (
    SELECT 1 FROM draft_picks dp
    WHERE dp.session_id = $1 AND dp.player_id = p.id
)
ORDER BY p.price DESC, p.id`
)

// Repository reads the player pool from Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

// ListAvailable returns every player not yet drafted in the session.
func (r *Repository) ListAvailable(ctx context.Context, sessionID uuid.UUID) ([]models.Player, error) {
	rows, err := r.db.QueryContext(ctx, listAvailableSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", err)
	}
	defer rows.Close()
	return ScanPlayers(rows)
}

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanPlayer reads one row selected with the players column list.
func ScanPlayer(s RowScanner) (*models.Player, error) {
	var p models.Player
	if err := s.Scan(&p.ID, &p.FullName, &p.Position, &p.NBATeam, &p.Price, &p.Rank, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func ScanPlayers(rows *sql.Rows) ([]models.Player, error) {
	var players []models.Player
	for rows.Next() {
		p, err := ScanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players: %w", err)
	}
	return players, nil
}

// Columns is the select list ScanPlayer expects, for queries aliasing players as p.
func Columns() string {
	return playerColumns
}
