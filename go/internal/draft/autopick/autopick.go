package autopick

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/models"
)

// ErrNoEligiblePlayer means no available player can legally join the roster.
var ErrNoEligiblePlayer = errors.New("no eligible player available")

// Strategy chooses a player for a team that ran out of time.
type Strategy interface {
	SelectFor(roster []models.Player, available []models.Player) (models.Player, error)
}

// Policy configures ranking and roster composition bounds.
type Policy struct {
	Metric         models.AutoPickMetric
	TeamSize       int
	PositionLimits map[string]models.PositionLimit
}

// PolicyFromSettings builds the policy stored on a draft session.
func PolicyFromSettings(s models.DraftSettings) Policy {
	return Policy{
		Metric:         s.AutoPickMetric,
		TeamSize:       s.TeamSize,
		PositionLimits: s.PositionLimits,
	}
}

// Selector is the deterministic best-available Strategy.
type Selector struct {
	policy Policy
}

// NewSelector creates a selector; an empty metric ranks by price.
func NewSelector(policy Policy) *Selector {
	if policy.Metric == "" {
		policy.Metric = models.AutoPickMetricPrice
	}
	return &Selector{policy: policy}
}

var _ Strategy = (*Selector)(nil)

// SelectFor returns the top-ranked available player that keeps the roster valid.
// Candidates that would also leave every position minimum reachable are
// preferred; otherwise any candidate within the position maximums is taken.
func (s *Selector) SelectFor(roster []models.Player, available []models.Player) (models.Player, error) {
	if len(available) == 0 {
		return models.Player{}, fmt.Errorf("%w: player pool exhausted", ErrNoEligiblePlayer)
	}

	owned := make(map[uuid.UUID]bool, len(roster))
	counts := make(map[string]int)
	for _, p := range roster {
		owned[p.ID] = true
		counts[p.Position]++
	}

	ranked := make([]models.Player, 0, len(available))
	for _, p := range available {
		if !owned[p.ID] {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return s.less(ranked[i], ranked[j])
	})

	var fallback *models.Player
	for i := range ranked {
		p := ranked[i]
		if !s.withinMax(counts, p.Position) {
			continue
		}
		if s.minimumsReachable(counts, len(roster), p.Position) {
			return p, nil
		}
		if fallback == nil {
			fallback = &ranked[i]
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return models.Player{}, fmt.Errorf("%w: %d available, none fit position limits", ErrNoEligiblePlayer, len(ranked))
}

func (s *Selector) less(a, b models.Player) bool {
	switch s.policy.Metric {
	case models.AutoPickMetricRank:
		if c := compareRank(a.Rank, b.Rank); c != 0 {
			return c < 0
		}
		if a.Price != b.Price {
			return a.Price > b.Price
		}
	default:
		if a.Price != b.Price {
			return a.Price > b.Price
		}
		if c := compareRank(a.Rank, b.Rank); c != 0 {
			return c < 0
		}
	}
	return a.ID.String() < b.ID.String()
}

// compareRank orders positive ranks ascending with unranked players last.
func compareRank(a, b int) int {
	switch {
	case a == b:
		return 0
	case a <= 0:
		return 1
	case b <= 0:
		return -1
	case a < b:
		return -1
	default:
		return 1
	}
}

func (s *Selector) withinMax(counts map[string]int, position string) bool {
	limit, ok := s.policy.PositionLimits[position]
	if !ok || limit.Max <= 0 {
		return true
	}
	return counts[position]+1 <= limit.Max
}

func (s *Selector) minimumsReachable(counts map[string]int, rosterSize int, position string) bool {
	if len(s.policy.PositionLimits) == 0 || s.policy.TeamSize <= 0 {
		return true
	}
	slotsLeft := s.policy.TeamSize - rosterSize - 1
	deficit := 0
	for pos, limit := range s.policy.PositionLimits {
		have := counts[pos]
		if pos == position {
			have++
		}
		if limit.Min > have {
			deficit += limit.Min - have
		}
	}
	return deficit <= slotsLeft
}
