package pool

import (
	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places kept on pool amounts.
const Precision = 6

// QualifyingItem is the slice of an equipped item the capacity curve looks at.
type QualifyingItem struct {
	Rarity    string
	Grade     string
	Adjective string
}

// Context is the live game context a pool's capacity depends on.
type Context struct {
	Items           []QualifyingItem
	AggregateRating int64
}

// ItemModifier adds Modifier to the capacity multiplier for every equipped
// item whose attributes match. Empty fields match anything.
type ItemModifier struct {
	Rarity    string  `yaml:"rarity" json:"rarity,omitempty"`
	Grade     string  `yaml:"grade" json:"grade,omitempty"`
	Adjective string  `yaml:"adjective" json:"adjective,omitempty"`
	Modifier  float64 `yaml:"modifier" json:"modifier"`
}

func (m ItemModifier) matches(it QualifyingItem) bool {
	if m.Rarity != "" && m.Rarity != it.Rarity {
		return false
	}
	if m.Grade != "" && m.Grade != it.Grade {
		return false
	}
	if m.Adjective != "" && m.Adjective != it.Adjective {
		return false
	}
	return true
}

// RatingTier adds Modifier once the aggregate rating reaches MinRating.
type RatingTier struct {
	MinRating int64   `yaml:"min_rating" json:"min_rating"`
	Modifier  float64 `yaml:"modifier" json:"modifier"`
}

// CapacityModifier returns the multiplier applied to BaseCapacity.
//
// Item modifiers only count while at least MinQualifyingCount items match.
// Each item contributes the first matching modifier. The highest rating tier
// reached contributes once.
func CapacityModifier(cfg Config, ctx Context) float64 {
	modifier := 1.0

	var itemSum float64
	qualifying := 0
	for _, it := range ctx.Items {
		for _, m := range cfg.ItemModifiers {
			if m.matches(it) {
				itemSum += m.Modifier
				qualifying++
				break
			}
		}
	}
	if qualifying > 0 && qualifying >= cfg.MinQualifyingCount {
		modifier += itemSum
	}

	best := -1
	for i, tier := range cfg.RatingTiers {
		if ctx.AggregateRating < tier.MinRating {
			continue
		}
		if best < 0 || tier.MinRating > cfg.RatingTiers[best].MinRating {
			best = i
		}
	}
	if best >= 0 {
		modifier += cfg.RatingTiers[best].Modifier
	}

	return modifier
}

// Capacity is BaseCapacity scaled by the context modifier, never negative.
func Capacity(cfg Config, ctx Context) decimal.Decimal {
	c := decimal.NewFromFloat(cfg.BaseCapacity).
		Mul(decimal.NewFromFloat(CapacityModifier(cfg, ctx))).
		Round(Precision)
	if c.IsNegative() {
		return decimal.Zero
	}
	return c
}
