// Package player holds the per-player economy aggregate that the command gate
// loads, mutates and saves as one unit.
package player

import (
	"encoding/json"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJE43/econ-engine/internal/battlepass"
	"github.com/MJE43/econ-engine/internal/engine"
	"github.com/MJE43/econ-engine/internal/errs"
	"github.com/MJE43/econ-engine/internal/pool"
)

// Item is an owned piece of equipment.
type Item struct {
	ID        string `json:"id"`
	Slot      string `json:"slot"`
	Rarity    string `json:"rarity,omitempty"`
	Grade     string `json:"grade,omitempty"`
	Adjective string `json:"adjective,omitempty"`
}

// State is everything the engine owns for one player.
type State struct {
	PlayerID  string    `json:"player_id"`
	Version   uint64    `json:"version"`
	Season    uint32    `json:"season"`
	UpdatedAt time.Time `json:"updated_at"`

	Balances   map[string]decimal.Decimal `json:"balances"`
	Trophies   int64                      `json:"trophies"`
	Pools      map[string]pool.State      `json:"pools"`
	BattlePass battlepass.State           `json:"battle_pass"`
	RNG        engine.State               `json:"rng"`
	Inventory  map[string]Item            `json:"inventory"`
	Equipped   map[string]string          `json:"equipped"` // slot -> item id

	// RecentMatches remembers settled match ids, newest last.
	RecentMatches []string `json:"recent_matches,omitempty"`

	// extra carries blob fields this version does not understand so they
	// survive a load/save cycle untouched.
	extra map[string]json.RawMessage
}

// New creates the state a player gets on first access.
func New(playerID string, season uint32, seed int32) State {
	return State{
		PlayerID:  playerID,
		Season:    season,
		Balances:  make(map[string]decimal.Decimal),
		Pools:     make(map[string]pool.State),
		RNG:       engine.Seed(seed),
		Inventory: make(map[string]Item),
		Equipped:  make(map[string]string),
	}
}

// Clone returns a deep copy. Handlers always work on a clone so the loaded
// snapshot is never touched on failure.
func (s State) Clone() State {
	c := s
	c.Balances = maps.Clone(s.Balances)
	c.Pools = maps.Clone(s.Pools)
	c.Inventory = maps.Clone(s.Inventory)
	c.Equipped = maps.Clone(s.Equipped)
	c.extra = maps.Clone(s.extra)
	c.RecentMatches = slices.Clone(s.RecentMatches)
	if c.Balances == nil {
		c.Balances = make(map[string]decimal.Decimal)
	}
	if c.Pools == nil {
		c.Pools = make(map[string]pool.State)
	}
	if c.Inventory == nil {
		c.Inventory = make(map[string]Item)
	}
	if c.Equipped == nil {
		c.Equipped = make(map[string]string)
	}
	return c
}

// Balance returns the player's balance in currency, zero when absent.
func (s State) Balance(currency string) decimal.Decimal {
	return s.Balances[currency]
}

// Credit adds a non-negative amount to a balance.
func (s *State) Credit(currency string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errs.E(errs.KindInvalidAmount, "player.Credit", "negative amount %s", amount)
	}
	if currency == "" {
		return errs.E(errs.KindInvalidAmount, "player.Credit", "currency is required")
	}
	s.Balances[currency] = s.Balances[currency].Add(amount)
	return nil
}

// Debit removes a non-negative amount, failing if the balance would go negative.
func (s *State) Debit(currency string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errs.E(errs.KindInvalidAmount, "player.Debit", "negative amount %s", amount)
	}
	have := s.Balances[currency]
	if have.LessThan(amount) {
		return errs.E(errs.KindInvalidAmount, "player.Debit", "insufficient %s: have %s, need %s", currency, have, amount)
	}
	s.Balances[currency] = have.Sub(amount)
	return nil
}

// AdjustTrophies applies a rating delta, flooring the result at zero.
func (s *State) AdjustTrophies(delta int64) {
	s.Trophies += delta
	if s.Trophies < 0 {
		s.Trophies = 0
	}
}

// AddItem adds a new item to the inventory.
func (s *State) AddItem(it Item) error {
	if it.ID == "" || it.Slot == "" {
		return errs.E(errs.KindInvalidStateTransition, "player.AddItem", "item id and slot are required")
	}
	if _, ok := s.Inventory[it.ID]; ok {
		return errs.E(errs.KindAlreadyExists, "player.AddItem", "item %q already owned", it.ID)
	}
	s.Inventory[it.ID] = it
	return nil
}

// Equip places an owned item into its slot, replacing whatever was there.
func (s *State) Equip(itemID string) error {
	it, ok := s.Inventory[itemID]
	if !ok {
		return errs.E(errs.KindNotFound, "player.Equip", "item %q not owned", itemID)
	}
	if s.Equipped[it.Slot] == itemID {
		return errs.E(errs.KindInvalidStateTransition, "player.Equip", "item %q already equipped", itemID)
	}
	s.Equipped[it.Slot] = itemID
	return nil
}

// Unequip empties a slot.
func (s *State) Unequip(slot string) error {
	if _, ok := s.Equipped[slot]; !ok {
		return errs.E(errs.KindInvalidStateTransition, "player.Unequip", "slot %q is empty", slot)
	}
	delete(s.Equipped, slot)
	return nil
}

// PoolContext derives the capacity context from equipped items and rating.
// Items are listed in slot order so the result does not depend on map order.
func (s State) PoolContext() pool.Context {
	slots := make([]string, 0, len(s.Equipped))
	for slot := range s.Equipped {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	ctx := pool.Context{AggregateRating: s.Trophies}
	for _, slot := range slots {
		it, ok := s.Inventory[s.Equipped[slot]]
		if !ok {
			continue
		}
		ctx.Items = append(ctx.Items, pool.QualifyingItem{Rarity: it.Rarity, Grade: it.Grade, Adjective: it.Adjective})
	}
	return ctx
}

// Pool returns the player's view of a pool, creating a full one on first use.
func (s State) Pool(cfg pool.Config, now time.Time) pool.State {
	if p, ok := s.Pools[cfg.ID]; ok {
		return p
	}
	return pool.New(cfg.ID, pool.Capacity(cfg, s.PoolContext()), now)
}

// MaxRecentMatches bounds RecentMatches.
const MaxRecentMatches = 32

// SettledMatch reports whether matchID was already applied.
func (s State) SettledMatch(matchID string) bool {
	return matchID != "" && slices.Contains(s.RecentMatches, matchID)
}

// RecordMatch remembers matchID, forgetting the oldest beyond MaxRecentMatches.
func (s *State) RecordMatch(matchID string) {
	if matchID == "" {
		return
	}
	s.RecentMatches = append(s.RecentMatches, matchID)
	if n := len(s.RecentMatches); n > MaxRecentMatches {
		s.RecentMatches = slices.Clone(s.RecentMatches[n-MaxRecentMatches:])
	}
}

// ResetSeason soft-resets seasonal progress. Balances, inventory and rating
// are kept.
func (s *State) ResetSeason(season uint32, seed int32) {
	s.Season = season
	s.BattlePass = battlepass.State{}
	s.Pools = make(map[string]pool.State)
	s.RNG = engine.Seed(seed)
}
