// Package battlepass implements the seasonal points-to-level ladder.
//
// Points accumulate unclaimed; levels only move when a claim is committed
// with SetLevelAndPoints. After a commit, Points is always below the cost of
// the next level.
package battlepass

import (
	"math"

	"github.com/MJE43/econ-engine/internal/errs"
)

// PassType selects a reward track.
type PassType string

const (
	Free    PassType = "free"
	Premium PassType = "premium"
)

// Reward is one configured reward for a level on a track.
type Reward struct {
	Level    uint32   `yaml:"level" json:"level"`
	PassType PassType `yaml:"pass_type" json:"pass_type"`
	Currency string   `yaml:"currency" json:"currency"`
	Amount   int64    `yaml:"amount" json:"amount"`
}

// Config is one season's ladder.
type Config struct {
	Season                uint32            `yaml:"season" json:"season"`
	MaxLevel              uint32            `yaml:"max_level" json:"max_level"`
	DefaultPointsPerLevel uint32            `yaml:"default_points_per_level" json:"default_points_per_level"`
	LevelPoints           map[uint32]uint32 `yaml:"level_points" json:"level_points,omitempty"`
	Rewards               []Reward          `yaml:"rewards" json:"rewards,omitempty"`

	PremiumCurrency string `yaml:"premium_currency" json:"premium_currency,omitempty"`
	PremiumPrice    int64  `yaml:"premium_price" json:"premium_price,omitempty"`
}

// State is a player's position on the ladder.
type State struct {
	Level   uint32 `json:"level"`
	Points  uint32 `json:"points"`
	Premium bool   `json:"premium"`
}

// PointsForLevel is the cost of reaching level from level-1.
func (c Config) PointsForLevel(level uint32) uint32 {
	if p, ok := c.LevelPoints[level]; ok {
		return p
	}
	return c.DefaultPointsPerLevel
}

// pointsToMax is what it costs to go from the current level to MaxLevel.
func (c Config) pointsToMax(level uint32) uint64 {
	var total uint64
	for l := level + 1; l <= c.MaxLevel; l++ {
		total += uint64(c.PointsForLevel(l))
	}
	return total
}

// MaxLadderPoints is the largest total a ladder may cost, since unclaimed
// points are held in a uint32.
const MaxLadderPoints = math.MaxUint32

// AddPoints adds amount unclaimed points, saturating at what is needed to
// reach MaxLevel and at MaxLadderPoints. Excess is discarded.
func AddPoints(c Config, s State, amount uint32) State {
	limit := min(c.pointsToMax(s.Level), MaxLadderPoints)
	total := uint64(s.Points) + uint64(amount)
	if total > limit {
		total = limit
	}
	s.Points = uint32(total)
	return s
}

// TotalPoints is the cost of the whole ladder from level 0.
func (c Config) TotalPoints() uint64 { return c.pointsToMax(0) }

// ClaimableLevels walks the ladder with a working copy of Points and returns
// every newly reachable level in order, plus the points left over. Level
// costs are the same on every track; passType only matters for rewards.
func ClaimableLevels(c Config, s State, _ PassType) ([]uint32, uint32) {
	var levels []uint32
	remaining := s.Points
	for next := s.Level + 1; next <= c.MaxLevel; next++ {
		cost := c.PointsForLevel(next)
		if remaining < cost {
			break
		}
		remaining -= cost
		levels = append(levels, next)
	}
	return levels, remaining
}

// SetLevelAndPoints commits a previously computed claim.
func SetLevelAndPoints(c Config, s State, level, points uint32) (State, error) {
	if level > c.MaxLevel {
		return s, errs.E(errs.KindInvalidStateTransition, "battlepass.SetLevelAndPoints",
			"level %d beyond max level %d", level, c.MaxLevel)
	}
	if level < s.Level {
		return s, errs.E(errs.KindInvalidStateTransition, "battlepass.SetLevelAndPoints",
			"level %d below current level %d", level, s.Level)
	}
	s.Level = level
	s.Points = points
	return s, nil
}

// RewardForLevel returns the rewards configured for a level on a track.
func RewardForLevel(c Config, level uint32, passType PassType) []Reward {
	var out []Reward
	for _, r := range c.Rewards {
		if r.Level == level && r.PassType == passType {
			out = append(out, r)
		}
	}
	return out
}

// RewardConfigs returns the rewards for every level in levels, in order.
func RewardConfigs(c Config, levels []uint32, passType PassType) []Reward {
	var out []Reward
	for _, l := range levels {
		out = append(out, RewardForLevel(c, l, passType)...)
	}
	return out
}

// UnlockPremium marks the premium track owned and returns the premium rewards
// of every level already reached, which become claimable retroactively.
func UnlockPremium(c Config, s State) (State, []Reward, error) {
	if s.Premium {
		return s, nil, errs.E(errs.KindAlreadyExists, "battlepass.UnlockPremium", "premium pass already owned")
	}
	s.Premium = true
	var levels []uint32
	for l := uint32(1); l <= s.Level; l++ {
		levels = append(levels, l)
	}
	return s, RewardConfigs(c, levels, Premium), nil
}

// Claim is the outcome of claiming every reachable level.
type Claim struct {
	Levels  []uint32 `json:"levels"`
	Rewards []Reward `json:"rewards"`
	State   State    `json:"state"`
}

// ClaimAll claims every reachable level. Free rewards are always granted;
// premium rewards are added when the pass is owned.
func ClaimAll(c Config, s State) (Claim, error) {
	levels, remaining := ClaimableLevels(c, s, Free)
	if len(levels) == 0 {
		if s.Level >= c.MaxLevel {
			return Claim{}, errs.E(errs.KindInvalidStateTransition, "battlepass.Claim", "already at max level %d", c.MaxLevel)
		}
		return Claim{}, errs.E(errs.KindInvalidStateTransition, "battlepass.Claim",
			"%d points, next level costs %d", s.Points, c.PointsForLevel(s.Level+1))
	}

	rewards := RewardConfigs(c, levels, Free)
	if s.Premium {
		rewards = append(rewards, RewardConfigs(c, levels, Premium)...)
	}

	next, err := SetLevelAndPoints(c, s, levels[len(levels)-1], remaining)
	if err != nil {
		return Claim{}, err
	}
	return Claim{Levels: levels, Rewards: rewards, State: next}, nil
}
