package gate

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/MJE43/econ-engine/internal/battlepass"
	"github.com/MJE43/econ-engine/internal/config"
	"github.com/MJE43/econ-engine/internal/engine"
	"github.com/MJE43/econ-engine/internal/errs"
	"github.com/MJE43/econ-engine/internal/player"
	"github.com/MJE43/econ-engine/internal/pool"
	"github.com/MJE43/econ-engine/internal/reward"
)

type currencyPayload struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

type balanceOutput struct {
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

func grantCurrency(_ Env, s *player.State, payload json.RawMessage) (any, error) {
	p, err := decode[currencyPayload](payload)
	if err != nil {
		return nil, err
	}
	if err := s.Credit(p.Currency, p.Amount); err != nil {
		return nil, err
	}
	return balanceOutput{Currency: p.Currency, Balance: s.Balance(p.Currency)}, nil
}

func spendCurrency(_ Env, s *player.State, payload json.RawMessage) (any, error) {
	p, err := decode[currencyPayload](payload)
	if err != nil {
		return nil, err
	}
	if err := s.Debit(p.Currency, p.Amount); err != nil {
		return nil, err
	}
	return balanceOutput{Currency: p.Currency, Balance: s.Balance(p.Currency)}, nil
}

type withdrawPayload struct {
	Pool   string          `json:"pool"`
	Amount decimal.Decimal `json:"amount"`
}

type withdrawOutput struct {
	Pool      string          `json:"pool"`
	Withdrawn int64           `json:"withdrawn"`
	Remaining decimal.Decimal `json:"remaining"`
	Capacity  decimal.Decimal `json:"capacity"`
}

// withdrawPool draws from a pool and credits the whole units taken.
func withdrawPool(env Env, s *player.State, payload json.RawMessage) (any, error) {
	p, err := decode[withdrawPayload](payload)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Get[pool.Config](env.Config, config.PoolKey(p.Pool))
	if err != nil {
		return nil, err
	}

	ctx := s.PoolContext()
	next, got, err := pool.Withdraw(s.Pool(cfg, env.Now), cfg, ctx, p.Amount, env.Now)
	if err != nil {
		return nil, err
	}
	s.Pools[cfg.ID] = next

	whole := got.Floor()
	if err := s.Credit(cfg.Currency, whole); err != nil {
		return nil, err
	}
	return withdrawOutput{
		Pool:      cfg.ID,
		Withdrawn: whole.IntPart(),
		Remaining: next.CurrentAmount,
		Capacity:  pool.Capacity(cfg, ctx),
	}, nil
}

type pointsPayload struct {
	Points uint32 `json:"points"`
}

func addBattlePassPoints(env Env, s *player.State, payload json.RawMessage) (any, error) {
	p, err := decode[pointsPayload](payload)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Get[battlepass.Config](env.Config, config.BattlePassKey(s.Season))
	if err != nil {
		return nil, err
	}
	s.BattlePass = battlepass.AddPoints(cfg, s.BattlePass, p.Points)
	levels, remaining := battlepass.ClaimableLevels(cfg, s.BattlePass, battlepass.Free)
	return map[string]any{
		"points":           s.BattlePass.Points,
		"claimable_levels": levels,
		"remaining_points": remaining,
	}, nil
}

func claimBattlePass(env Env, s *player.State, _ json.RawMessage) (any, error) {
	cfg, err := config.Get[battlepass.Config](env.Config, config.BattlePassKey(s.Season))
	if err != nil {
		return nil, err
	}
	claim, err := battlepass.ClaimAll(cfg, s.BattlePass)
	if err != nil {
		return nil, err
	}
	if err := creditRewards(s, claim.Rewards); err != nil {
		return nil, err
	}
	s.BattlePass = claim.State
	return claim, nil
}

func unlockPremiumPass(env Env, s *player.State, _ json.RawMessage) (any, error) {
	cfg, err := config.Get[battlepass.Config](env.Config, config.BattlePassKey(s.Season))
	if err != nil {
		return nil, err
	}
	next, rewards, err := battlepass.UnlockPremium(cfg, s.BattlePass)
	if err != nil {
		return nil, err
	}
	if cfg.PremiumPrice > 0 {
		if err := s.Debit(cfg.PremiumCurrency, decimal.NewFromInt(cfg.PremiumPrice)); err != nil {
			return nil, err
		}
	}
	if err := creditRewards(s, rewards); err != nil {
		return nil, err
	}
	s.BattlePass = next
	return map[string]any{"rewards": rewards}, nil
}

func creditRewards(s *player.State, rewards []battlepass.Reward) error {
	for _, r := range rewards {
		if err := s.Credit(r.Currency, decimal.NewFromInt(r.Amount)); err != nil {
			return err
		}
	}
	return nil
}

type matchPayload struct {
	Match reward.MatchResult `json:"match"`
}

// applyMatchResult settles one match for the acting player. The match id is
// what makes a replay detectable, so it is required.
func applyMatchResult(env Env, s *player.State, payload json.RawMessage) (any, error) {
	p, err := decode[matchPayload](payload)
	if err != nil {
		return nil, err
	}
	if p.Match.MatchID == "" {
		return nil, errs.E(errs.KindInvalidPayload, "gate.applyMatchResult", "match_id is required")
	}
	if s.SettledMatch(p.Match.MatchID) {
		return nil, errs.E(errs.KindAlreadyExists, "gate.applyMatchResult", "match %q already settled", p.Match.MatchID)
	}

	src, err := matchSource(env, s, p.Match)
	if err != nil {
		return nil, err
	}
	res, err := reward.CalculateMatchRewards(src)
	if err != nil {
		return nil, err
	}

	bpCfg, bpErr := config.Get[battlepass.Config](env.Config, config.BattlePassKey(s.Season))
	for _, it := range res.Items {
		switch it.Type {
		case reward.TypeTrophies:
			s.AdjustTrophies(it.Amount)
		case reward.TypeBattlePassPoints:
			if bpErr != nil {
				return nil, bpErr
			}
			if it.Amount > 0 {
				s.BattlePass = battlepass.AddPoints(bpCfg, s.BattlePass, uint32(min(it.Amount, int64(^uint32(0)))))
			}
		default:
			if it.Amount > 0 {
				if err := s.Credit(it.Type, decimal.NewFromInt(it.Amount)); err != nil {
					return nil, err
				}
			}
		}
	}
	for id, ps := range res.Pools {
		s.Pools[id] = ps
	}
	s.RecordMatch(p.Match.MatchID)
	return res, nil
}

func matchSource(env Env, s *player.State, m reward.MatchResult) (reward.Source, error) {
	mc, err := config.Get[reward.MatchConfig](env.Config, config.MatchKey(m.MatchConfigID))
	if err != nil {
		return reward.Source{}, err
	}
	src := reward.Source{
		Match:       m,
		PlayerID:    s.PlayerID,
		Config:      mc,
		PoolContext: s.PoolContext(),
		Pools:       make(map[string]reward.PoolSlot),
		Now:         env.Now,
	}
	if !mc.Qualifies() {
		return src, nil
	}

	if src.Placement, err = config.Get[reward.PlacementTable](env.Config, config.PlacementKey(mc.PlacementTable)); err != nil {
		return reward.Source{}, err
	}
	if src.Rating, err = config.Get[reward.RatingConfig](env.Config, config.RatingKey); err != nil {
		return reward.Source{}, err
	}
	for _, row := range src.Placement.Rows {
		for _, pr := range row.Rewards {
			if pr.Pool == "" {
				continue
			}
			if _, ok := src.Pools[pr.Pool]; ok {
				continue
			}
			cfg, err := config.Get[pool.Config](env.Config, config.PoolKey(pr.Pool))
			if err != nil {
				return reward.Source{}, err
			}
			src.Pools[pr.Pool] = reward.PoolSlot{Config: cfg, State: s.Pool(cfg, env.Now)}
		}
	}
	return src, nil
}

type lootPayload struct {
	Box string `json:"box"`
}

type lootOutput struct {
	Drops      []reward.LootEntry `json:"drops"`
	Duplicates []string           `json:"duplicates,omitempty"`
}

// openLootBox charges the box cost and rolls its table with the player's RNG.
// Items the player already owns are reported as duplicates and not granted.
func openLootBox(env Env, s *player.State, payload json.RawMessage) (any, error) {
	p, err := decode[lootPayload](payload)
	if err != nil {
		return nil, err
	}
	box, err := config.Get[reward.LootBox](env.Config, config.LootBoxKey(p.Box))
	if err != nil {
		return nil, err
	}
	if box.CostAmount > 0 {
		if err := s.Debit(box.CostCurrency, decimal.NewFromInt(box.CostAmount)); err != nil {
			return nil, err
		}
	}

	drops, err := reward.Open(box, &s.RNG)
	if err != nil {
		return nil, err
	}
	out := lootOutput{Drops: drops}
	for _, d := range drops {
		if d.ItemID == "" {
			if err := s.Credit(d.Currency, decimal.NewFromInt(d.Amount)); err != nil {
				return nil, err
			}
			continue
		}
		if _, owned := s.Inventory[d.ItemID]; owned {
			out.Duplicates = append(out.Duplicates, d.ItemID)
			continue
		}
		err := s.AddItem(player.Item{ID: d.ItemID, Slot: d.Slot, Rarity: d.Rarity, Grade: d.Grade, Adjective: d.Adjective})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func addItem(_ Env, s *player.State, payload json.RawMessage) (any, error) {
	it, err := decode[player.Item](payload)
	if err != nil {
		return nil, err
	}
	if err := s.AddItem(it); err != nil {
		return nil, err
	}
	return it, nil
}

type equipPayload struct {
	ItemID string `json:"item_id"`
	Slot   string `json:"slot"`
}

func equipItem(_ Env, s *player.State, payload json.RawMessage) (any, error) {
	p, err := decode[equipPayload](payload)
	if err != nil {
		return nil, err
	}
	if err := s.Equip(p.ItemID); err != nil {
		return nil, err
	}
	return s.Equipped, nil
}

func unequipItem(_ Env, s *player.State, payload json.RawMessage) (any, error) {
	p, err := decode[equipPayload](payload)
	if err != nil {
		return nil, err
	}
	if err := s.Unequip(p.Slot); err != nil {
		return nil, err
	}
	return s.Equipped, nil
}

type seasonPayload struct {
	Season uint32 `json:"season"`
}

// resetSeason moves the player to a later season and reseeds their RNG.
func resetSeason(env Env, s *player.State, payload json.RawMessage) (any, error) {
	p, err := decode[seasonPayload](payload)
	if err != nil {
		return nil, err
	}
	if p.Season <= s.Season {
		return nil, errs.E(errs.KindInvalidStateTransition, "gate.resetSeason",
			"season %d is not after current season %d", p.Season, s.Season)
	}
	s.ResetSeason(p.Season, engine.DeriveSeed(env.ServerSeed, s.PlayerID, p.Season))
	return seasonPayload{Season: s.Season}, nil
}
