// Package reward turns a finished match into reward items: placement rewards
// (some drawn from resource pools), collected currencies, modifiers and the
// trophy delta.
package reward

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJE43/econ-engine/internal/errs"
	"github.com/MJE43/econ-engine/internal/pool"
)

// Well-known reward types. Any other type is a currency id.
const (
	TypeTrophies         = "trophies"
	TypeBattlePassPoints = "battle_pass_points"
)

// Participant is one row of a match result.
type Participant struct {
	PlayerID       string `json:"player_id"`
	Rank           int    `json:"rank"`
	TrophiesBefore int64  `json:"trophies_before"`
	IsLocal        bool   `json:"is_local,omitempty"`
	TeamID         string `json:"team_id,omitempty"`
	IsBot          bool   `json:"is_bot,omitempty"`
	Quit           bool   `json:"quit,omitempty"`
	AFK            bool   `json:"afk,omitempty"`
}

// Modifier multiplies one reward type. With CollectedInsideGame it scales the
// currency collected during the match instead of the placement reward.
type Modifier struct {
	Type                string  `yaml:"type" json:"type"`
	Multiplier          float64 `yaml:"multiplier" json:"multiplier"`
	CollectedInsideGame bool    `yaml:"collected_inside_game" json:"collected_inside_game,omitempty"`
}

// MatchResult is produced once per finished match and never changed.
type MatchResult struct {
	MatchID             string           `json:"match_id,omitempty"`
	MatchConfigID       string           `json:"match_config_id"`
	Players             []Participant    `json:"players"`
	CollectedCurrencies map[string]int64 `json:"collected_currencies,omitempty"`
	RewardModifiers     []Modifier       `json:"reward_modifiers,omitempty"`
}

// Participant returns the row for playerID.
func (m MatchResult) Participant(playerID string) (Participant, bool) {
	for _, p := range m.Players {
		if p.PlayerID == playerID {
			return p, true
		}
	}
	return Participant{}, false
}

// Local returns the participant flagged as local.
func (m MatchResult) Local() (Participant, bool) {
	for _, p := range m.Players {
		if p.IsLocal {
			return p, true
		}
	}
	return Participant{}, false
}

// MatchConfig describes a match mode.
type MatchConfig struct {
	ID             string     `yaml:"id" json:"id"`
	Mode           string     `yaml:"mode" json:"mode"`
	PlacementTable string     `yaml:"placement_table" json:"placement_table"`
	Modifiers      []Modifier `yaml:"modifiers" json:"modifiers,omitempty"`
}

// Qualifies reports whether matches of this mode earn rewards at all.
func (c MatchConfig) Qualifies() bool {
	switch c.Mode {
	case "private", "custom":
		return false
	}
	return true
}

// PlacementReward is one reward type in a placement row. It is pool-backed
// when Pool is set: the amount is Flat, or Percent of the pool's capacity,
// withdrawn from that pool. Otherwise Flat is granted as is.
type PlacementReward struct {
	Type    string  `yaml:"type" json:"type"`
	Pool    string  `yaml:"pool,omitempty" json:"pool,omitempty"`
	Flat    int64   `yaml:"flat,omitempty" json:"flat,omitempty"`
	Percent float64 `yaml:"percent,omitempty" json:"percent,omitempty"`
}

// PlacementRow is the reward set for one (rank, team size).
type PlacementRow struct {
	Rank     int               `yaml:"rank" json:"rank"`
	TeamSize int               `yaml:"team_size" json:"team_size"`
	Rewards  []PlacementReward `yaml:"rewards" json:"rewards"`
}

// PlacementTable holds every row for a match mode.
type PlacementTable struct {
	ID   string         `yaml:"id" json:"id"`
	Rows []PlacementRow `yaml:"rows" json:"rows"`
}

// Row finds the row for rank and teamSize.
func (t PlacementTable) Row(rank, teamSize int) (PlacementRow, bool) {
	for _, r := range t.Rows {
		if r.Rank == rank && r.TeamSize == teamSize {
			return r, true
		}
	}
	return PlacementRow{}, false
}

// Item is one granted reward.
type Item struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
}

// PoolSlot is a pool the calculation may withdraw from.
type PoolSlot struct {
	Config pool.Config
	State  pool.State
}

// Source is everything CalculateMatchRewards reads.
type Source struct {
	Match     MatchResult
	PlayerID  string // empty selects the local participant
	Config    MatchConfig
	Placement PlacementTable
	Rating    RatingConfig

	Pools       map[string]PoolSlot
	PoolContext pool.Context
	Now         time.Time
}

// Result is the reward list plus the pools after withdrawals.
type Result struct {
	Items []Item                `json:"items"`
	Pools map[string]pool.State `json:"pools,omitempty"`
}

// Amount returns the granted amount of one type.
func (r Result) Amount(typ string) int64 {
	for _, it := range r.Items {
		if it.Type == typ {
			return it.Amount
		}
	}
	return 0
}

// CalculateMatchRewards computes the rewards one player earns from a match.
func CalculateMatchRewards(src Source) (Result, error) {
	const op = "reward.CalculateMatchRewards"
	if len(src.Match.Players) == 0 {
		return Result{}, errs.E(errs.KindEmptyInput, op, "match has no players")
	}

	var (
		me Participant
		ok bool
	)
	if src.PlayerID != "" {
		me, ok = src.Match.Participant(src.PlayerID)
	} else {
		me, ok = src.Match.Local()
	}
	if !ok {
		return Result{}, errs.E(errs.KindNotFound, op, "player %q not in match", src.PlayerID)
	}

	if !src.Config.Qualifies() || me.AFK || me.IsBot {
		return Result{}, nil
	}

	delta := RatingDelta(me, src.Match.Players, src.Rating)
	if me.Quit {
		// Rating only, but the mode's trophy modifiers still apply to it.
		items := []Item{{Type: TypeTrophies, Amount: delta}}
		for _, m := range modifiers(src) {
			if !m.CollectedInsideGame {
				scale(items, m)
			}
		}
		clampTrophies(items, me)
		return Result{Items: items}, nil
	}

	var (
		items []Item
		pools = make(map[string]pool.State)
	)

	if row, ok := src.Placement.Row(me.Rank, teamSize(src.Match, me)); ok {
		for _, pr := range row.Rewards {
			amount, err := placementAmount(src, pr, pools)
			if err != nil {
				return Result{}, err
			}
			items = append(items, Item{Type: pr.Type, Amount: amount})
		}
	}
	items = append(items, Item{Type: TypeTrophies, Amount: delta})

	collected := make([]Item, 0, len(src.Match.CollectedCurrencies))
	for currency, amount := range src.Match.CollectedCurrencies {
		collected = append(collected, Item{Type: currency, Amount: amount})
	}

	for _, m := range modifiers(src) {
		if m.CollectedInsideGame {
			scale(collected, m)
			continue
		}
		scale(items, m)
	}

	items = merge(append(items, collected...))
	clampTrophies(items, me)

	res := Result{Items: items}
	if len(pools) > 0 {
		res.Pools = pools
	}
	return res, nil
}

// placementAmount resolves one placement reward, withdrawing from its pool
// when pool-backed. The updated pool is recorded in pools.
func placementAmount(src Source, pr PlacementReward, pools map[string]pool.State) (int64, error) {
	if pr.Pool == "" {
		return pr.Flat, nil
	}

	slot, ok := src.Pools[pr.Pool]
	if !ok {
		return 0, errs.E(errs.KindNotFound, "reward.placementAmount", "pool %q", pr.Pool)
	}
	state := slot.State
	if s, ok := pools[pr.Pool]; ok {
		state = s
	}

	requested := decimal.NewFromInt(pr.Flat)
	if pr.Flat == 0 && pr.Percent > 0 {
		capacity := pool.Capacity(slot.Config, src.PoolContext)
		requested = capacity.Mul(decimal.NewFromFloat(pr.Percent))
	}

	next, got, err := pool.Withdraw(state, slot.Config, src.PoolContext, requested, src.Now)
	if err != nil {
		return 0, err
	}
	pools[pr.Pool] = next
	return got.Floor().IntPart(), nil
}

// modifiers returns the match mode's configured modifiers followed by the
// ones attached to this match.
func modifiers(src Source) []Modifier {
	out := make([]Modifier, 0, len(src.Config.Modifiers)+len(src.Match.RewardModifiers))
	out = append(out, src.Config.Modifiers...)
	return append(out, src.Match.RewardModifiers...)
}

func scale(items []Item, m Modifier) {
	for i := range items {
		if items[i].Type != m.Type {
			continue
		}
		items[i].Amount = decimal.NewFromInt(items[i].Amount).
			Mul(decimal.NewFromFloat(m.Multiplier)).
			Floor().IntPart()
	}
}

// clampTrophies keeps the trophy item from taking me below zero.
func clampTrophies(items []Item, me Participant) {
	for i := range items {
		if items[i].Type == TypeTrophies && me.TrophiesBefore+items[i].Amount < 0 {
			items[i].Amount = -me.TrophiesBefore
		}
	}
}

// merge sums items of the same type and sorts by type.
func merge(items []Item) []Item {
	totals := make(map[string]int64, len(items))
	for _, it := range items {
		totals[it.Type] += it.Amount
	}
	out := make([]Item, 0, len(totals))
	for typ, amount := range totals {
		out = append(out, Item{Type: typ, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func teamSize(m MatchResult, me Participant) int {
	if me.TeamID == "" {
		return 1
	}
	n := 0
	for _, p := range m.Players {
		if p.TeamID == me.TeamID {
			n++
		}
	}
	return n
}
