package player

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"

	"github.com/MJE43/econ-engine/internal/errs"
)

// BlobVersion is the current state blob layout.
const BlobVersion = 1

// blob is the stored shape: a version and one JSON document per field so a
// reader can pick out the parts it knows about.
type blob struct {
	V      int                        `json:"v"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// Field names inside a blob.
const (
	fieldProfile    = "profile"
	fieldBalances   = "balances"
	fieldTrophies   = "trophies"
	fieldPools      = "pools"
	fieldBattlePass = "battle_pass"
	fieldRNG        = "rng"
	fieldInventory  = "inventory"
	fieldEquipped   = "equipped"
	fieldMatches    = "matches"
)

type profile struct {
	PlayerID  string `json:"player_id"`
	Version   uint64 `json:"version"`
	Season    uint32 `json:"season"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Encode serializes a state into a compressed blob.
func Encode(s State) ([]byte, error) {
	b := blob{V: BlobVersion, Fields: make(map[string]json.RawMessage, 9+len(s.extra))}
	for k, v := range s.extra {
		b.Fields[k] = v
	}

	p := profile{PlayerID: s.PlayerID, Version: s.Version, Season: s.Season}
	if !s.UpdatedAt.IsZero() {
		p.UpdatedAt = s.UpdatedAt.UTC().Format(timeLayout)
	}

	parts := map[string]any{
		fieldProfile:    p,
		fieldBalances:   s.Balances,
		fieldTrophies:   s.Trophies,
		fieldPools:      s.Pools,
		fieldBattlePass: s.BattlePass,
		fieldRNG:        s.RNG,
		fieldInventory:  s.Inventory,
		fieldEquipped:   s.Equipped,
		fieldMatches:    s.RecentMatches,
	}
	for name, v := range parts {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "player.Encode", fmt.Errorf("field %s: %w", name, err))
		}
		b.Fields[name] = raw
	}

	data, err := json.Marshal(b)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "player.Encode", err)
	}
	return snappy.Encode(nil, data), nil
}

// Decode parses a blob written by Encode. Unknown fields are kept and written
// back on the next Encode.
func Decode(data []byte) (State, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return State{}, errs.Wrap(errs.KindInternal, "player.Decode", err)
	}

	var b blob
	if err := json.Unmarshal(raw, &b); err != nil {
		return State{}, errs.Wrap(errs.KindInternal, "player.Decode", err)
	}
	if b.V != BlobVersion {
		return State{}, errs.E(errs.KindInternal, "player.Decode", "unsupported blob version %d", b.V)
	}

	s := New("", 0, 0)
	var p profile
	targets := map[string]any{
		fieldProfile:    &p,
		fieldBalances:   &s.Balances,
		fieldTrophies:   &s.Trophies,
		fieldPools:      &s.Pools,
		fieldBattlePass: &s.BattlePass,
		fieldRNG:        &s.RNG,
		fieldInventory:  &s.Inventory,
		fieldEquipped:   &s.Equipped,
		fieldMatches:    &s.RecentMatches,
	}
	for name, msg := range b.Fields {
		dst, ok := targets[name]
		if !ok {
			if s.extra == nil {
				s.extra = make(map[string]json.RawMessage)
			}
			s.extra[name] = msg
			continue
		}
		if err := json.Unmarshal(msg, dst); err != nil {
			return State{}, errs.Wrap(errs.KindInternal, "player.Decode", fmt.Errorf("field %s: %w", name, err))
		}
	}

	s.PlayerID = p.PlayerID
	s.Version = p.Version
	s.Season = p.Season
	if p.UpdatedAt != "" {
		t, err := parseTime(p.UpdatedAt)
		if err != nil {
			return State{}, errs.Wrap(errs.KindInternal, "player.Decode", err)
		}
		s.UpdatedAt = t
	}
	return s.Clone(), nil
}
