package config

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/MJE43/econ-engine/internal/battlepass"
	"github.com/MJE43/econ-engine/internal/pool"
	"github.com/MJE43/econ-engine/internal/reward"
)

// Tables is the YAML document holding every tunable table.
type Tables struct {
	// ItemModifiers apply to pools that do not list their own.
	ItemModifiers []pool.ItemModifier `yaml:"item_modifiers"`

	Pools        map[string]pool.Config           `yaml:"pools"`
	BattlePasses map[uint32]battlepass.Config     `yaml:"battle_passes"`
	Placement    map[string]reward.PlacementTable `yaml:"placement"`
	Matches      map[string]reward.MatchConfig    `yaml:"matches"`
	Rating       reward.RatingConfig              `yaml:"rating"`
	LootBoxes    map[string]reward.LootBox        `yaml:"loot_boxes"`
}

// PoolKey is the Get key for a pool row.
func PoolKey(id string) string { return "pool/" + id }

// BattlePassKey is the Get key for a season's ladder.
func BattlePassKey(season uint32) string {
	return "battlepass/" + strconv.FormatUint(uint64(season), 10)
}

func PlacementKey(table string) string { return "placement/" + table }
func MatchKey(id string) string        { return "match/" + id }
func LootBoxKey(id string) string      { return "lootbox/" + id }

const (
	RatingKey        = "rating"
	ItemModifiersKey = "item_modifiers"
)

// ReadTables reads and validates a tables file.
func ReadTables(path string) (Tables, error) {
	t, _, err := ReadTablesFile(path)
	return t, err
}

// ReadTablesFile is ReadTables that also reports the file's modification
// time, taken before the read. A Watcher started with Since(mtime) then picks
// up any write that lands after the file was read.
func ReadTablesFile(path string) (Tables, time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Tables{}, time.Time{}, fmt.Errorf("read tables: %w", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, time.Time{}, fmt.Errorf("read tables: %w", err)
	}
	t, err := ParseTables(b)
	if err != nil {
		return Tables{}, time.Time{}, err
	}
	return t, fi.ModTime(), nil
}

// ParseTables decodes and validates a tables document.
func ParseTables(b []byte) (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(b, &t); err != nil {
		return Tables{}, fmt.Errorf("decode tables: %w", err)
	}
	t.normalize()
	if err := t.Validate(); err != nil {
		return Tables{}, err
	}
	return t, nil
}

// Clone returns a copy of t that shares no maps or slices with it.
func (t Tables) Clone() Tables {
	c := Tables{
		ItemModifiers: slices.Clone(t.ItemModifiers),
		Rating:        t.Rating,
	}
	if t.Pools != nil {
		c.Pools = make(map[string]pool.Config, len(t.Pools))
		for id, p := range t.Pools {
			p.ItemModifiers = slices.Clone(p.ItemModifiers)
			p.RatingTiers = slices.Clone(p.RatingTiers)
			c.Pools[id] = p
		}
	}
	if t.BattlePasses != nil {
		c.BattlePasses = make(map[uint32]battlepass.Config, len(t.BattlePasses))
		for season, bp := range t.BattlePasses {
			bp.LevelPoints = maps.Clone(bp.LevelPoints)
			bp.Rewards = slices.Clone(bp.Rewards)
			c.BattlePasses[season] = bp
		}
	}
	if t.Placement != nil {
		c.Placement = make(map[string]reward.PlacementTable, len(t.Placement))
		for id, pt := range t.Placement {
			rows := make([]reward.PlacementRow, len(pt.Rows))
			for i, r := range pt.Rows {
				r.Rewards = slices.Clone(r.Rewards)
				rows[i] = r
			}
			if pt.Rows == nil {
				rows = nil
			}
			pt.Rows = rows
			c.Placement[id] = pt
		}
	}
	if t.Matches != nil {
		c.Matches = make(map[string]reward.MatchConfig, len(t.Matches))
		for id, m := range t.Matches {
			m.Modifiers = slices.Clone(m.Modifiers)
			c.Matches[id] = m
		}
	}
	if t.LootBoxes != nil {
		c.LootBoxes = make(map[string]reward.LootBox, len(t.LootBoxes))
		for id, lb := range t.LootBoxes {
			lb.Entries = slices.Clone(lb.Entries)
			c.LootBoxes[id] = lb
		}
	}
	return c
}

// normalize fills ids from map keys and merges table-wide defaults into each
// pool.
func (t *Tables) normalize() {
	for id, p := range t.Pools {
		if p.ID == "" {
			p.ID = id
		}
		if p.Currency == "" {
			p.Currency = id
		}
		if len(p.ItemModifiers) == 0 && len(t.ItemModifiers) > 0 {
			p.ItemModifiers = append([]pool.ItemModifier(nil), t.ItemModifiers...)
		}
		t.Pools[id] = p
	}
	for season, bp := range t.BattlePasses {
		if bp.Season == 0 {
			bp.Season = season
		}
		t.BattlePasses[season] = bp
	}
	for id, pt := range t.Placement {
		if pt.ID == "" {
			pt.ID = id
		}
		t.Placement[id] = pt
	}
	for id, m := range t.Matches {
		if m.ID == "" {
			m.ID = id
		}
		t.Matches[id] = m
	}
	for id, lb := range t.LootBoxes {
		if lb.ID == "" {
			lb.ID = id
		}
		t.LootBoxes[id] = lb
	}
}

// Validate reports every problem in the tables at once.
func (t Tables) Validate() error {
	var err error
	for _, id := range sortedKeys(t.Pools) {
		p := t.Pools[id]
		if p.BaseCapacity < 0 {
			err = multierr.Append(err, fmt.Errorf("pool %s: negative base_capacity", id))
		}
		if p.TotalRestockInterval < 0 || p.RestockTick < 0 {
			err = multierr.Append(err, fmt.Errorf("pool %s: negative restock interval", id))
		}
		if p.BaseMaxTake < 0 {
			err = multierr.Append(err, fmt.Errorf("pool %s: negative base_max_take", id))
		}
	}
	for _, season := range sortedKeys(t.BattlePasses) {
		bp := t.BattlePasses[season]
		if bp.MaxLevel == 0 {
			err = multierr.Append(err, fmt.Errorf("battle pass %d: max_level must be positive", season))
		}
		if bp.DefaultPointsPerLevel == 0 {
			err = multierr.Append(err, fmt.Errorf("battle pass %d: default_points_per_level must be positive", season))
		}
		if total := bp.TotalPoints(); total > battlepass.MaxLadderPoints {
			err = multierr.Append(err, fmt.Errorf("battle pass %d: ladder costs %d points, more than %d", season, total, uint64(battlepass.MaxLadderPoints)))
		}
		for _, r := range bp.Rewards {
			if r.Level == 0 || r.Level > bp.MaxLevel {
				err = multierr.Append(err, fmt.Errorf("battle pass %d: reward level %d out of range", season, r.Level))
			}
			if r.PassType != battlepass.Free && r.PassType != battlepass.Premium {
				err = multierr.Append(err, fmt.Errorf("battle pass %d: unknown pass type %q", season, r.PassType))
			}
		}
	}
	for _, id := range sortedKeys(t.Placement) {
		for _, row := range t.Placement[id].Rows {
			for _, r := range row.Rewards {
				if r.Pool == "" {
					continue
				}
				if _, ok := t.Pools[r.Pool]; !ok {
					err = multierr.Append(err, fmt.Errorf("placement %s: rank %d references unknown pool %q", id, row.Rank, r.Pool))
				}
			}
		}
	}
	for _, id := range sortedKeys(t.Matches) {
		m := t.Matches[id]
		if _, ok := t.Placement[m.PlacementTable]; !ok && m.Qualifies() {
			err = multierr.Append(err, fmt.Errorf("match %s: unknown placement table %q", id, m.PlacementTable))
		}
	}
	for _, id := range sortedKeys(t.LootBoxes) {
		lb := t.LootBoxes[id]
		if len(lb.Entries) == 0 {
			err = multierr.Append(err, fmt.Errorf("loot box %s: no entries", id))
		}
		for _, e := range lb.Entries {
			if e.Weight < 0 {
				err = multierr.Append(err, fmt.Errorf("loot box %s: negative weight", id))
			}
		}
	}
	if t.Rating.K < 0 {
		err = multierr.Append(err, errors.New("rating: negative k"))
	}
	return err
}

// values flattens the tables into the key space served by Get.
func (t Tables) values() map[string]any {
	out := map[string]any{
		RatingKey:        t.Rating,
		ItemModifiersKey: t.ItemModifiers,
	}
	for id, v := range t.Pools {
		out[PoolKey(id)] = v
	}
	for season, v := range t.BattlePasses {
		out[BattlePassKey(season)] = v
	}
	for id, v := range t.Placement {
		out[PlacementKey(id)] = v
	}
	for id, v := range t.Matches {
		out[MatchKey(id)] = v
	}
	for id, v := range t.LootBoxes {
		out[LootBoxKey(id)] = v
	}
	return out
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
