// Package pool models a shared currency reservoir that restocks linearly over
// time and throttles how much a single withdrawal can take.
//
// All functions are pure: they take a State by value and return the new one.
package pool

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJE43/econ-engine/internal/errs"
)

// Config is a pool's tuning row from the config tables.
type Config struct {
	ID       string `yaml:"id" json:"id"`
	Currency string `yaml:"currency" json:"currency"`

	BaseCapacity float64 `yaml:"base_capacity" json:"base_capacity"`

	// RestockTick quantizes restocking: only whole ticks of elapsed time are
	// consumed. Zero restocks continuously.
	RestockTick time.Duration `yaml:"restock_tick" json:"restock_tick"`
	// TotalRestockInterval is the time to refill an empty pool.
	TotalRestockInterval time.Duration `yaml:"total_restock_interval" json:"total_restock_interval"`

	BaseMaxTake     float64 `yaml:"base_max_take" json:"base_max_take"`
	ScaleMultiplier float64 `yaml:"scale_multiplier" json:"scale_multiplier"`
	ShapeExponent   float64 `yaml:"shape_exponent" json:"shape_exponent"`

	MinQualifyingCount int            `yaml:"min_qualifying_count" json:"min_qualifying_count"`
	ItemModifiers      []ItemModifier `yaml:"item_modifiers" json:"item_modifiers,omitempty"`
	RatingTiers        []RatingTier   `yaml:"rating_tiers" json:"rating_tiers,omitempty"`
}

// State is one pool's persisted state.
type State struct {
	ID              string          `json:"id"`
	CurrentAmount   decimal.Decimal `json:"current_amount"`
	LastRestockTime time.Time       `json:"last_restock_time"`
}

// New returns a full pool stamped at now.
func New(id string, capacity decimal.Decimal, now time.Time) State {
	return State{ID: id, CurrentAmount: capacity, LastRestockTime: now}
}

// Restock credits the time elapsed since the last restock.
//
// The timestamp advances by the consumed time only, so partial ticks carry
// over. Once the pool is full the timestamp snaps to now and surplus time is
// dropped.
func Restock(s State, cfg Config, capacity decimal.Decimal, now time.Time) State {
	if s.CurrentAmount.GreaterThan(capacity) {
		s.CurrentAmount = capacity
	}
	if s.CurrentAmount.IsNegative() {
		s.CurrentAmount = decimal.Zero
	}
	if !now.After(s.LastRestockTime) {
		return s
	}

	elapsed := now.Sub(s.LastRestockTime)
	consumed := elapsed
	if cfg.RestockTick > 0 {
		consumed = (elapsed / cfg.RestockTick) * cfg.RestockTick
	}

	if cfg.TotalRestockInterval <= 0 {
		s.CurrentAmount = capacity
		s.LastRestockTime = now
		return s
	}
	if consumed <= 0 {
		return s
	}

	ratio := decimal.NewFromInt(int64(consumed)).Div(decimal.NewFromInt(int64(cfg.TotalRestockInterval)))
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		ratio = decimal.NewFromInt(1)
	}

	s.CurrentAmount = decimal.Min(capacity, s.CurrentAmount.Add(ratio.Mul(capacity))).Round(Precision)
	s.LastRestockTime = s.LastRestockTime.Add(consumed)
	if !s.CurrentAmount.LessThan(capacity) {
		s.CurrentAmount = capacity
		s.LastRestockTime = now
	}
	return s
}

// MaxSingleWithdraw is the most one withdrawal may take at the current fill
// level: baseMaxTake × (amount/capacity)^shape × scale, never negative.
func MaxSingleWithdraw(amount, capacity decimal.Decimal, baseMaxTake, scale, shape float64) decimal.Decimal {
	if !capacity.IsPositive() || !amount.IsPositive() {
		return decimal.Zero
	}
	fill := amount.Div(capacity).InexactFloat64()
	take := baseMaxTake * math.Pow(fill, shape) * scale
	if take <= 0 || math.IsNaN(take) {
		return decimal.Zero
	}
	if math.IsInf(take, 1) {
		return amount
	}
	return decimal.NewFromFloat(take).Round(Precision)
}

// Withdraw restocks the pool and takes up to requested from it.
func Withdraw(s State, cfg Config, ctx Context, requested decimal.Decimal, now time.Time) (State, decimal.Decimal, error) {
	if requested.IsNegative() {
		return s, decimal.Zero, errs.E(errs.KindInvalidAmount, "pool.Withdraw", "negative request %s", requested)
	}

	capacity := Capacity(cfg, ctx)
	s = Restock(s, cfg, capacity, now)
	if !s.CurrentAmount.IsPositive() || requested.IsZero() {
		return s, decimal.Zero, nil
	}

	limit := MaxSingleWithdraw(s.CurrentAmount, capacity, cfg.BaseMaxTake, cfg.ScaleMultiplier, cfg.ShapeExponent)
	take := decimal.Min(requested, limit, s.CurrentAmount)

	s.CurrentAmount = s.CurrentAmount.Sub(take)
	return s, take, nil
}

// FillRatio reports amount/capacity in [0, 1] for display.
func FillRatio(s State, capacity decimal.Decimal) float64 {
	if !capacity.IsPositive() {
		return 0
	}
	return s.CurrentAmount.Div(capacity).InexactFloat64()
}
