// Package order maps global pick numbers onto seats in a snake draft.
package order

// RoundOf returns the 1-based round containing pickNumber, or 0 for invalid input.
func RoundOf(pickNumber, teamCount int) int {
	if pickNumber < 1 || teamCount < 1 {
		return 0
	}
	return (pickNumber + teamCount - 1) / teamCount
}

// TeamAtPick returns the draft_order position on the clock for pickNumber.
// Odd rounds run 1..N, even rounds run N..1. Returns 0 for invalid input.
func TeamAtPick(pickNumber, teamCount int) int {
	round := RoundOf(pickNumber, teamCount)
	if round == 0 {
		return 0
	}
	offset := (pickNumber - 1) % teamCount
	if round%2 == 1 {
		return offset + 1
	}
	return teamCount - offset
}

// PickInRound returns the 1-based index of pickNumber within its round.
func PickInRound(pickNumber, teamCount int) int {
	if pickNumber < 1 || teamCount < 1 {
		return 0
	}
	return (pickNumber-1)%teamCount + 1
}

// RoundOrder lists the draft_order positions picking in round, in pick order.
func RoundOrder(round, teamCount int) []int {
	if round < 1 || teamCount < 1 {
		return nil
	}
	positions := make([]int, teamCount)
	first := (round-1)*teamCount + 1
	for i := range positions {
		positions[i] = TeamAtPick(first+i, teamCount)
	}
	return positions
}

// TotalPicks is the number of picks needed to fill every roster.
func TotalPicks(teamCount, teamSize int) int {
	if teamCount < 1 || teamSize < 1 {
		return 0
	}
	return teamCount * teamSize
}
