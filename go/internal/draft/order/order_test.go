package order

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamAtPick(t *testing.T) {
	tests := []struct {
		name      string
		pick      int
		teams     int
		wantRound int
		wantTeam  int
	}{
		{"first pick", 1, 4, 1, 1},
		{"end of round one", 4, 4, 1, 4},
		{"turn at round two", 5, 4, 2, 4},
		{"end of round two", 8, 4, 2, 1},
		{"round three restarts", 9, 4, 3, 1},
		{"single team", 3, 1, 3, 1},
		{"twelve team wrap", 13, 12, 2, 12},
		{"zero pick", 0, 4, 0, 0},
		{"zero teams", 1, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRound, RoundOf(tt.pick, tt.teams))
			assert.Equal(t, tt.wantTeam, TeamAtPick(tt.pick, tt.teams))
		})
	}
}

func TestRoundOrderReversesEveryRound(t *testing.T) {
	for teams := 1; teams <= 14; teams++ {
		for round := 1; round <= 10; round++ {
			current := RoundOrder(round, teams)
			next := slices.Clone(RoundOrder(round+1, teams))
			slices.Reverse(next)
			require.Equal(t, current, next, "teams=%d round=%d", teams, round)
		}
	}
}

func TestRoundOrderCoversEverySeatOnce(t *testing.T) {
	for teams := 1; teams <= 14; teams++ {
		got := slices.Clone(RoundOrder(3, teams))
		slices.Sort(got)
		for i, pos := range got {
			require.Equal(t, i+1, pos)
		}
	}
}

func TestFourTeamsTwoRounds(t *testing.T) {
	assert.Equal(t, 8, TotalPicks(4, 2))
	assert.Equal(t, []int{1, 2, 3, 4}, RoundOrder(1, 4))
	assert.Equal(t, []int{4, 3, 2, 1}, RoundOrder(2, 4))

	var seq []int
	for p := 1; p <= TotalPicks(4, 2); p++ {
		seq = append(seq, TeamAtPick(p, 4))
	}
	assert.Equal(t, []int{1, 2, 3, 4, 4, 3, 2, 1}, seq)
}

func TestPickInRound(t *testing.T) {
	assert.Equal(t, 1, PickInRound(5, 4))
	assert.Equal(t, 4, PickInRound(8, 4))
	assert.Equal(t, 0, PickInRound(0, 4))
}
