package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mcdev12/courtside/go/internal/config"
	"github.com/mcdev12/courtside/go/internal/draft/draft"
	"github.com/mcdev12/courtside/go/internal/models"
)

var teamNames = []string{
	"Splash Brothers", "Twin Towers", "Showtime", "Bad Boys", "Lob City",
	"Seven Seconds", "Grit n Grind", "Big Three", "Run TMC", "Process Trusters",
	"Bench Mob", "Pace and Space",
}

func main() {
	teams := flag.Int("teams", 8, "number of fantasy teams")
	teamSize := flag.Int("team-size", 13, "roster size per team")
	pickSeconds := flag.Int("pick-seconds", 60, "per-pick time limit")
	league := flag.String("league", "", "league id (random when empty)")
	start := flag.Bool("start", false, "start the draft after creating it")
	flag.Parse()

	_ = godotenv.Load()

	req, err := buildSession(*league, *teams, *teamSize, *pickSeconds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	apiURL := config.GetEnv("DRAFT_API_URL", "http://localhost:8080")
	client := draft.NewClient(&http.Client{Timeout: 15 * time.Second}, apiURL)

	view, err := client.CreateSession(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create draft session: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Draft seeded: league=%s session=%s teams=%d picks=%d\n",
		view.Session.LeagueID, view.Session.ID, len(view.Teams), view.TotalPicks)
	for _, t := range view.Teams {
		fmt.Printf("  %s  owner=%s  team=%s\n", t.Name, t.OwnerID, t.ID)
	}

	if *start {
		res, err := client.Start(ctx, req.LeagueID, req.Teams[0].OwnerID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "start draft: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Draft started: pick %d, deadline %s\n",
			res.State.Session.CurrentPick, res.State.Clock.EndTime.Format(time.RFC3339))
	}
}

func buildSession(league string, teams, teamSize, pickSeconds int) (draft.CreateSessionRequest, error) {
	if teams < 1 || teams > len(teamNames) {
		return draft.CreateSessionRequest{}, fmt.Errorf("teams must be between 1 and %d", len(teamNames))
	}

	leagueID := uuid.New()
	if league != "" {
		parsed, err := uuid.Parse(league)
		if err != nil {
			return draft.CreateSessionRequest{}, fmt.Errorf("invalid league id: %w", err)
		}
		leagueID = parsed
	}

	seats := make([]draft.TeamSeat, teams)
	for i := range seats {
		seats[i] = draft.TeamSeat{OwnerID: uuid.New(), Name: teamNames[i]}
	}
	return draft.CreateSessionRequest{
		LeagueID: leagueID,
		Settings: models.DraftSettings{
			PickTimeLimitSec: pickSeconds,
			TeamSize:         teamSize,
			AutoPickMetric:   models.AutoPickMetricPrice,
			SeatOrder:        models.SeatOrderRandom,
		},
		Teams: seats,
	}, nil
}
