package reward

import (
	"github.com/MJE43/econ-engine/internal/engine"
	"github.com/MJE43/econ-engine/internal/errs"
)

// LootEntry is one weighted outcome of a loot box. It grants either a
// currency amount or an item.
type LootEntry struct {
	Weight   int64  `yaml:"weight" json:"weight"`
	Currency string `yaml:"currency,omitempty" json:"currency,omitempty"`
	Amount   int64  `yaml:"amount,omitempty" json:"amount,omitempty"`

	ItemID    string `yaml:"item_id,omitempty" json:"item_id,omitempty"`
	Slot      string `yaml:"slot,omitempty" json:"slot,omitempty"`
	Rarity    string `yaml:"rarity,omitempty" json:"rarity,omitempty"`
	Grade     string `yaml:"grade,omitempty" json:"grade,omitempty"`
	Adjective string `yaml:"adjective,omitempty" json:"adjective,omitempty"`
}

// LootBox is a purchasable weighted table.
type LootBox struct {
	ID           string      `yaml:"id" json:"id"`
	CostCurrency string      `yaml:"cost_currency" json:"cost_currency"`
	CostAmount   int64       `yaml:"cost_amount" json:"cost_amount"`
	Rolls        int         `yaml:"rolls" json:"rolls"`
	Entries      []LootEntry `yaml:"entries" json:"entries"`
}

// Open draws box.Rolls entries (at least one) from rng.
func Open(box LootBox, rng *engine.State) ([]LootEntry, error) {
	if len(box.Entries) == 0 {
		return nil, errs.E(errs.KindEmptyInput, "reward.Open", "loot box %q has no entries", box.ID)
	}
	weights := make([]int64, len(box.Entries))
	for i, e := range box.Entries {
		weights[i] = e.Weight
	}

	rolls := max(box.Rolls, 1)
	out := make([]LootEntry, 0, rolls)
	for range rolls {
		idx, err := rng.PickWeighted(weights)
		if err != nil {
			return nil, err
		}
		out = append(out, box.Entries[idx])
	}
	return out, nil
}
