package reward

import (
	"math"
)

// RatingConfig tunes the Elo-like trophy update.
type RatingConfig struct {
	// K is the largest swing one match can cause.
	K float64 `yaml:"k" json:"k"`
	// EloRange excludes opponents whose rating differs by more than this.
	// Zero disables the window.
	EloRange int64 `yaml:"elo_range" json:"elo_range"`
	// Divisor is the rating gap at which the favourite is expected to score
	// ten times as often. Defaults to 400.
	Divisor float64 `yaml:"divisor" json:"divisor"`
}

func (c RatingConfig) divisor() float64 {
	if c.Divisor <= 0 {
		return 400
	}
	return c.Divisor
}

// RatingDelta computes the trophy change for local against the other
// participants of a match. Teammates and opponents outside the EloRange
// window are left out. The result never takes the rating below zero.
//
// Each pairwise term is computed from one fixed side and negated for the
// other, so in a two-player match the two deltas always sum to zero.
func RatingDelta(local Participant, participants []Participant, cfg RatingConfig) int64 {
	var (
		sum float64
		n   int
	)
	for _, p := range participants {
		if p.PlayerID == local.PlayerID || sameTeam(local, p) {
			continue
		}
		if cfg.EloRange > 0 && absInt64(p.TrophiesBefore-local.TrophiesBefore) > cfg.EloRange {
			continue
		}
		sum += pairTerm(local.TrophiesBefore, p.TrophiesBefore, actualScore(local, p), cfg.divisor())
		n++
	}
	if n == 0 {
		return 0
	}

	delta := int64(math.Round(cfg.K * sum / float64(n)))
	if local.TrophiesBefore+delta < 0 {
		delta = -local.TrophiesBefore
	}
	return delta
}

// actualScore is 1 for a better placement, 0.5 for a tie and 0 otherwise.
// Quitting always loses.
func actualScore(me, other Participant) float64 {
	switch {
	case me.Quit && other.Quit:
		return 0.5
	case me.Quit:
		return 0
	case other.Quit:
		return 1
	case me.Rank < other.Rank:
		return 1
	case me.Rank == other.Rank:
		return 0.5
	default:
		return 0
	}
}

// pairTerm is actual − expected for a player rated r against rOther.
func pairTerm(r, rOther int64, actual, divisor float64) float64 {
	if r < rOther || (r == rOther && actual < 0.5) {
		return -pairTerm(rOther, r, 1-actual, divisor)
	}
	return actual - expectedScore(r, rOther, divisor)
}

// expectedScore is the logistic win expectancy of r against rOther.
func expectedScore(r, rOther int64, divisor float64) float64 {
	return 1 / (1 + math.Pow(10, float64(rOther-r)/divisor))
}

func sameTeam(a, b Participant) bool {
	return a.TeamID != "" && a.TeamID == b.TeamID
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
