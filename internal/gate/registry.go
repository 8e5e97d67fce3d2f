package gate

import (
	"encoding/json"
	"maps"
	"slices"
	"time"

	"github.com/MJE43/econ-engine/internal/config"
	"github.com/MJE43/econ-engine/internal/errs"
	"github.com/MJE43/econ-engine/internal/player"
)

// Command is the wire form of one state-mutating request.
type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Env is what a handler may read besides the player state.
type Env struct {
	Config     config.Provider
	Now        time.Time
	ServerSeed string
}

// HandlerFunc applies one decoded command to s. s is a private copy; on
// error it is discarded, so handlers may fail halfway without cleanup.
type HandlerFunc func(env Env, s *player.State, payload json.RawMessage) (any, error)

// Registry maps a command type to its handler.
type Registry map[string]HandlerFunc

// serverOnly commands depend on the server secret. Clients wait for the
// server's state instead of predicting them.
var serverOnly = map[string]bool{
	"reset_season": true,
}

// ServerOnly reports whether typ can only run on the server.
func ServerOnly(typ string) bool { return serverOnly[typ] }

// DefaultRegistry returns every built-in command.
func DefaultRegistry() Registry {
	return Registry{
		"grant_currency":         grantCurrency,
		"spend_currency":         spendCurrency,
		"withdraw_pool":          withdrawPool,
		"add_battle_pass_points": addBattlePassPoints,
		"claim_battle_pass":      claimBattlePass,
		"unlock_premium_pass":    unlockPremiumPass,
		"apply_match_result":     applyMatchResult,
		"open_loot_box":          openLootBox,
		"add_item":               addItem,
		"equip_item":             equipItem,
		"unequip_item":           unequipItem,
		"reset_season":           resetSeason,
	}
}

// Lookup resolves a command type.
func (r Registry) Lookup(typ string) (HandlerFunc, error) {
	h, ok := r[typ]
	if !ok {
		return nil, errs.E(errs.KindUnknownCommand, "gate.Lookup", "unknown command type %q", typ)
	}
	return h, nil
}

// Types lists the registered command types in order.
func (r Registry) Types() []string {
	return slices.Sorted(maps.Keys(r))
}

// decode unmarshals a required payload.
func decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, errs.E(errs.KindInvalidPayload, "gate.decode", "payload is required")
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, errs.Wrap(errs.KindInvalidPayload, "gate.decode", err)
	}
	return v, nil
}
