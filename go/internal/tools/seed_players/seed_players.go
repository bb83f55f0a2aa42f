package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mcdev12/courtside/go/internal/dbconfig"
	"github.com/mcdev12/courtside/go/internal/models"
)

//go:embed players.json
var defaultPlayers []byte

// playerNamespace keeps seeded IDs stable across runs, so re-seeding skips
// existing rows instead of duplicating them.
var playerNamespace = uuid.MustParse("5b0f6a7e-3c1d-4f0e-9a53-6c1f2f7d9e41")

var validPositions = map[string]bool{
	models.PositionPointGuard:    true,
	models.PositionShootingGuard: true,
	models.PositionSmallForward:  true,
	models.PositionPowerForward:  true,
	models.PositionCenter:        true,
}

type seedPlayer struct {
	FullName string  `json:"full_name"`
	Position string  `json:"position"`
	NBATeam  string  `json:"nba_team"`
	Price    float64 `json:"price"`
	Rank     int     `json:"rank"`
}

func main() {
	file := flag.String("file", "", "players JSON file (defaults to the bundled pool)")
	skipSchema := flag.Bool("skip-schema", false, "do not apply the schema before seeding")
	flag.Parse()

	_ = godotenv.Load()
	ctx := context.Background()

	// 1) Load players
	data := defaultPlayers
	if *file != "" {
		var err error
		if data, err = os.ReadFile(*file); err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", *file, err)
			os.Exit(1)
		}
	}
	players, err := loadPlayers(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load players: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect to DB
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Schema
	if !*skipSchema {
		if _, err := pool.Exec(ctx, dbconfig.Schema); err != nil {
			fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
			os.Exit(1)
		}
	}

	// 4) Seed players in one batch
	batch := &pgx.Batch{}
	for _, p := range players {
		batch.Queue(`
            INSERT INTO players (id, full_name, position, nba_team, price, rank)
            VALUES ($1,$2,$3,$4,$5,$6)
            ON CONFLICT (id) DO NOTHING
        `, p.ID, p.FullName, p.Position, p.NBATeam, p.Price, p.Rank)
	}

	results := pool.SendBatch(ctx, batch)
	total, inserted, skipped, errs := len(players), 0, 0, 0
	for _, p := range players {
		tag, err := results.Exec()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting player %s: %v\n", p.FullName, err)
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	if err := results.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close batch: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf(
		"Players seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}

func loadPlayers(data []byte) ([]models.Player, error) {
	var raw []seedPlayer
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal players: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(raw))
	players := make([]models.Player, 0, len(raw))
	for i, p := range raw {
		name := strings.TrimSpace(p.FullName)
		if name == "" {
			return nil, fmt.Errorf("player %d: full_name is required", i)
		}
		pos := strings.ToUpper(strings.TrimSpace(p.Position))
		if !validPositions[pos] {
			return nil, fmt.Errorf("player %s: unknown position %q", name, p.Position)
		}
		if p.Price < 0 || p.Rank < 0 {
			return nil, fmt.Errorf("player %s: price and rank must not be negative", name)
		}

		id := uuid.NewSHA1(playerNamespace, []byte(name+"|"+pos))
		if seen[id] {
			return nil, fmt.Errorf("player %s listed twice", name)
		}
		seen[id] = true

		players = append(players, models.Player{
			ID:       id,
			FullName: name,
			Position: pos,
			NBATeam:  p.NBATeam,
			Price:    p.Price,
			Rank:     p.Rank,
		})
	}
	return players, nil
}
