package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/MJE43/econ-engine/internal/battlepass"
	"github.com/MJE43/econ-engine/internal/errs"
	"github.com/MJE43/econ-engine/internal/reward"
)

func TestBattlePassCommands(t *testing.T) {
	g, _, _ := newTestGate(t, Options{})
	ctx := context.Background()

	if _, err := g.Execute(ctx, "p1", cmd(t, "claim_battle_pass", nil)); !errors.Is(err, errs.ErrInvalidStateTransition) {
		t.Fatalf("claim with no points: error = %v", err)
	}

	if _, err := g.Execute(ctx, "p1", cmd(t, "add_battle_pass_points", map[string]uint32{"points": 230})); err != nil {
		t.Fatal(err)
	}
	res, err := g.Execute(ctx, "p1", cmd(t, "claim_battle_pass", nil))
	if err != nil {
		t.Fatal(err)
	}
	bp := res.State.BattlePass
	if bp.Level != 2 || bp.Points != 30 {
		t.Errorf("battle pass = %+v, want level 2 with 30 points", bp)
	}
	if !res.State.Balance("coins").Equal(decimal.NewFromInt(100)) {
		t.Errorf("coins = %s, want level 1 free reward of 100", res.State.Balance("coins"))
	}

	// Premium needs 950 gems.
	if _, err := g.Execute(ctx, "p1", cmd(t, "unlock_premium_pass", nil)); !errors.Is(err, errs.ErrInvalidAmount) {
		t.Fatalf("unlock without gems: error = %v", err)
	}
	if _, err := g.Execute(ctx, "p1", grant(t, "gems", 1000)); err != nil {
		t.Fatal(err)
	}
	res, err = g.Execute(ctx, "p1", cmd(t, "unlock_premium_pass", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.State.BattlePass.Premium {
		t.Error("premium not unlocked")
	}
	// 1000 - 950 + 5 retroactive gems for level 1.
	if !res.State.Balance("gems").Equal(decimal.NewFromInt(55)) {
		t.Errorf("gems = %s, want 55", res.State.Balance("gems"))
	}
	if _, err := g.Execute(ctx, "p1", cmd(t, "unlock_premium_pass", nil)); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Errorf("second unlock: error = %v", err)
	}
}

func TestApplyMatchResult(t *testing.T) {
	g, _, _ := newTestGate(t, Options{})
	ctx := context.Background()

	match := reward.MatchResult{
		MatchID:       "m-1",
		MatchConfigID: "ranked_solo",
		Players: []reward.Participant{
			{PlayerID: "p1", Rank: 1, TrophiesBefore: 0},
			{PlayerID: "p2", Rank: 2, TrophiesBefore: 0},
		},
	}
	res, err := g.Execute(ctx, "p1", cmd(t, "apply_match_result", map[string]any{"match": match}))
	if err != nil {
		t.Fatal(err)
	}
	s := res.State
	if s.Trophies != 16 {
		t.Errorf("trophies = %d, want 16", s.Trophies)
	}
	if s.BattlePass.Points != 40 {
		t.Errorf("battle pass points = %d, want 40", s.BattlePass.Points)
	}
	if !s.Balance("coins").IsPositive() {
		t.Error("no coins drawn from the pool")
	}
	if _, ok := s.Pools["coins"]; !ok {
		t.Error("coins pool state not stored")
	}

	_, err = g.Execute(ctx, "p1", cmd(t, "apply_match_result", map[string]any{"match": match}))
	if !errors.Is(err, errs.ErrAlreadyExists) {
		t.Errorf("replayed match: error = %v, want already exists", err)
	}

	loser, err := g.Execute(ctx, "p2", cmd(t, "apply_match_result", map[string]any{"match": match}))
	if err != nil {
		t.Fatal(err)
	}
	if loser.State.Trophies != 0 {
		t.Errorf("loser trophies = %d, want clamp at 0", loser.State.Trophies)
	}
}

func TestApplyMatchResultRequiresMatchID(t *testing.T) {
	g, st, _ := newTestGate(t, Options{})
	ctx := context.Background()

	match := reward.MatchResult{
		MatchConfigID: "ranked_solo",
		Players: []reward.Participant{
			{PlayerID: "p1", Rank: 1},
			{PlayerID: "p2", Rank: 2},
		},
	}
	for i := 0; i < 3; i++ {
		_, err := g.Execute(ctx, "p1", cmd(t, "apply_match_result", map[string]any{"match": match}))
		if !errors.Is(err, errs.ErrInvalidPayload) {
			t.Fatalf("attempt %d: error = %v, want invalid payload", i, err)
		}
	}
	if n := st.saves.Load(); n != 0 {
		t.Errorf("saves = %d, want 0", n)
	}
	s, err := g.State(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Trophies != 0 || s.BattlePass.Points != 0 {
		t.Errorf("match without id granted rewards: trophies=%d points=%d", s.Trophies, s.BattlePass.Points)
	}
}

func TestApplyMatchResultPrivateLobby(t *testing.T) {
	g, _, _ := newTestGate(t, Options{})
	match := reward.MatchResult{
		MatchID:       "m-2",
		MatchConfigID: "private_lobby",
		Players:       []reward.Participant{{PlayerID: "p1", Rank: 1}, {PlayerID: "p2", Rank: 2}},
	}
	res, err := g.Execute(context.Background(), "p1", cmd(t, "apply_match_result", map[string]any{"match": match}))
	if err != nil {
		t.Fatal(err)
	}
	if res.State.Trophies != 0 || len(res.State.Balances) != 0 {
		t.Errorf("private lobby granted rewards: %+v", res.State)
	}
}

func TestEquipmentCommands(t *testing.T) {
	g, _, _ := newTestGate(t, Options{})
	ctx := context.Background()

	if _, err := g.Execute(ctx, "p1", cmd(t, "unequip_item", map[string]string{"slot": "head"})); !errors.Is(err, errs.ErrInvalidStateTransition) {
		t.Errorf("unequip empty slot: error = %v", err)
	}
	item := map[string]string{"id": "crown", "slot": "head", "rarity": "legendary"}
	if _, err := g.Execute(ctx, "p1", cmd(t, "add_item", item)); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Execute(ctx, "p1", cmd(t, "add_item", item)); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Errorf("duplicate item: error = %v", err)
	}
	res, err := g.Execute(ctx, "p1", cmd(t, "equip_item", map[string]string{"item_id": "crown"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.State.Equipped["head"] != "crown" {
		t.Errorf("equipped = %v", res.State.Equipped)
	}
	if _, err := g.Execute(ctx, "p1", cmd(t, "equip_item", map[string]string{"item_id": "crown"})); !errors.Is(err, errs.ErrInvalidStateTransition) {
		t.Errorf("double equip: error = %v", err)
	}
}

func TestResetSeason(t *testing.T) {
	g, _, _ := newTestGate(t, Options{})
	ctx := context.Background()

	if _, err := g.Execute(ctx, "p1", grant(t, "coins", 40)); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Execute(ctx, "p1", cmd(t, "add_battle_pass_points", map[string]uint32{"points": 50})); err != nil {
		t.Fatal(err)
	}
	before, _ := g.State(ctx, "p1")

	res, err := g.Execute(ctx, "p1", cmd(t, "reset_season", map[string]uint32{"season": 2}))
	if err != nil {
		t.Fatal(err)
	}
	s := res.State
	if s.Season != 2 || s.BattlePass != (battlepass.State{}) {
		t.Errorf("season state = %d %+v", s.Season, s.BattlePass)
	}
	if s.RNG.Seed == before.RNG.Seed {
		t.Error("rng not reseeded for the new season")
	}
	if !s.Balance("coins").Equal(decimal.NewFromInt(40)) {
		t.Error("balances lost on season reset")
	}

	if _, err := g.Execute(ctx, "p1", cmd(t, "reset_season", map[string]uint32{"season": 2})); !errors.Is(err, errs.ErrInvalidStateTransition) {
		t.Errorf("same season: error = %v", err)
	}
}

func TestBadPayload(t *testing.T) {
	g, _, _ := newTestGate(t, Options{})
	_, err := g.Execute(context.Background(), "p1", Command{Type: "grant_currency", Payload: []byte(`{"amount":`)})
	if !errors.Is(err, errs.ErrInvalidPayload) {
		t.Errorf("error = %v, want invalid payload", err)
	}
	if _, err := g.Execute(context.Background(), "p1", Command{Type: "grant_currency"}); !errors.Is(err, errs.ErrInvalidPayload) {
		t.Errorf("missing payload: error = %v", err)
	}
}

func TestWithdrawPoolUnknownPool(t *testing.T) {
	g, _, _ := newTestGate(t, Options{})
	_, err := g.Execute(context.Background(), "p1", cmd(t, "withdraw_pool", map[string]any{"pool": "nope", "amount": "1"}))
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}
