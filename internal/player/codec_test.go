package player

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/shopspring/decimal"

	"github.com/MJE43/econ-engine/internal/pool"
)

func TestEncodeDecodePreservesState(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	s := New("p1", 3, 1234)
	s.Version = 7
	s.UpdatedAt = now
	_ = s.Credit("coins", decimal.RequireFromString("12.345678"))
	s.Trophies = 1450
	s.Pools["coins"] = pool.State{ID: "coins", CurrentAmount: decimal.RequireFromString("44.6"), LastRestockTime: now}
	s.BattlePass.Points = 8
	_ = s.AddItem(Item{ID: "sword", Slot: "weapon", Rarity: "legendary"})
	_ = s.Equip("sword")
	s.RNG.Next()
	s.RNG.Next()

	data, err := Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	if got.PlayerID != "p1" || got.Version != 7 || got.Season != 3 || !got.UpdatedAt.Equal(now) {
		t.Errorf("profile = %+v", got)
	}
	if !got.Balance("coins").Equal(s.Balance("coins")) || got.Trophies != 1450 {
		t.Errorf("wallet = %v / %d", got.Balances, got.Trophies)
	}
	if !got.Pools["coins"].CurrentAmount.Equal(decimal.RequireFromString("44.6")) {
		t.Errorf("pool = %+v", got.Pools["coins"])
	}
	if got.Equipped["weapon"] != "sword" || got.BattlePass.Points != 8 {
		t.Errorf("equipment/battle pass lost: %+v", got)
	}

	// The decoded generator continues the original sequence.
	if a, b := s.RNG.Next(), got.RNG.Next(); a != b {
		t.Errorf("rng diverged after decode: %d vs %d", a, b)
	}
}

func TestDecodeKeepsUnknownFields(t *testing.T) {
	raw, _ := json.Marshal(blob{V: BlobVersion, Fields: map[string]json.RawMessage{
		fieldProfile: json.RawMessage(`{"player_id":"p9","version":2,"season":1}`),
		"cosmetics":  json.RawMessage(`{"hat":"red"}`),
	}})

	s, err := Decode(snappy.Encode(nil, raw))
	if err != nil {
		t.Fatal(err)
	}
	if s.PlayerID != "p9" || s.Balances == nil {
		t.Errorf("decoded = %+v", s)
	}

	out, err := Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	plain, _ := snappy.Decode(nil, out)
	var b blob
	if err := json.Unmarshal(plain, &b); err != nil {
		t.Fatal(err)
	}
	if string(b.Fields["cosmetics"]) != `{"hat":"red"}` {
		t.Errorf("unknown field not preserved: %s", b.Fields["cosmetics"])
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not snappy")); err == nil {
		t.Error("expected error for corrupt blob")
	}

	raw, _ := json.Marshal(blob{V: 99})
	if _, err := Decode(snappy.Encode(nil, raw)); err == nil {
		t.Error("expected error for unknown version")
	}
}
