package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/MJE43/econ-engine/internal/battlepass"
	"github.com/MJE43/econ-engine/internal/errs"
	"github.com/MJE43/econ-engine/internal/pool"
	"github.com/MJE43/econ-engine/internal/reward"
)

func loadSample(t *testing.T) Tables {
	t.Helper()
	tables, err := ReadTables(filepath.Join("testdata", "tables.yaml"))
	if err != nil {
		t.Fatalf("ReadTables: %v", err)
	}
	return tables
}

func TestReadTablesSample(t *testing.T) {
	tables := loadSample(t)

	coins, ok := tables.Pools["coins"]
	if !ok {
		t.Fatal("coins pool missing")
	}
	if coins.ID != "coins" || coins.RestockTick != time.Hour || coins.TotalRestockInterval != 10*time.Hour {
		t.Errorf("coins pool = %+v", coins)
	}
	if len(coins.ItemModifiers) != 2 {
		t.Errorf("table-wide item modifiers not merged into pool: %+v", coins.ItemModifiers)
	}

	bp := tables.BattlePasses[1]
	if bp.Season != 1 || bp.PointsForLevel(10) != 250 || bp.PointsForLevel(11) != 100 {
		t.Errorf("battle pass = %+v", bp)
	}
	if tables.Matches["private_lobby"].Qualifies() {
		t.Error("private lobby should not qualify for rewards")
	}
}

func TestStoreGet(t *testing.T) {
	s, err := NewStore(loadSample(t))
	if err != nil {
		t.Fatal(err)
	}
	if s.Version() != 1 {
		t.Errorf("Version() = %d, want 1", s.Version())
	}

	p, err := Get[pool.Config](s, PoolKey("gems"))
	if err != nil {
		t.Fatal(err)
	}
	if p.BaseCapacity != 40 {
		t.Errorf("gems capacity = %v", p.BaseCapacity)
	}

	if _, err := Get[battlepass.Config](s, BattlePassKey(1)); err != nil {
		t.Errorf("battle pass lookup: %v", err)
	}
	if r, err := Get[reward.RatingConfig](s, RatingKey); err != nil || r.K != 32 {
		t.Errorf("rating = %+v, %v", r, err)
	}

	if _, err := Get[pool.Config](s, PoolKey("nope")); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing key: error = %v", err)
	}
	if _, err := Get[reward.LootBox](s, PoolKey("coins")); err == nil {
		t.Error("wrong type should fail")
	}
}

func TestStoreReloadBumpsVersion(t *testing.T) {
	tables := loadSample(t)
	s, err := NewStore(tables)
	if err != nil {
		t.Fatal(err)
	}

	tables.Rating.K = 48
	if err := s.Reload(tables); err != nil {
		t.Fatal(err)
	}
	if s.Version() != 2 {
		t.Errorf("Version() = %d, want 2", s.Version())
	}
	if r, _ := Get[reward.RatingConfig](s, RatingKey); r.K != 48 {
		t.Errorf("reload not visible, K = %v", r.K)
	}

	bad := tables
	bad.Rating.K = -1
	if err := s.Reload(bad); err == nil {
		t.Error("invalid tables should be rejected")
	}
	if s.Version() != 2 {
		t.Errorf("rejected reload changed version to %d", s.Version())
	}
}

func TestStoreKeepsItsOwnCopy(t *testing.T) {
	tables := loadSample(t)
	coins := tables.Pools["coins"]
	coins.ID = ""
	tables.Pools["coins"] = coins

	s, err := NewStore(tables)
	if err != nil {
		t.Fatal(err)
	}
	if got := tables.Pools["coins"].ID; got != "" {
		t.Errorf("caller's pool id = %q, want it left empty", got)
	}
	if p, _ := Get[pool.Config](s, PoolKey("coins")); p.ID != "coins" {
		t.Errorf("served pool id = %q, want coins", p.ID)
	}

	served := s.Tables()
	served.Rating.K = 99
	delete(served.Pools, "coins")
	for _, bp := range served.BattlePasses {
		for lvl := range bp.LevelPoints {
			bp.LevelPoints[lvl] = 0
		}
	}

	again := s.Tables()
	if again.Rating.K == 99 {
		t.Error("rating change leaked into the store")
	}
	if _, ok := again.Pools["coins"]; !ok {
		t.Error("deleted pool leaked into the store")
	}
	for season, bp := range again.BattlePasses {
		for lvl, pts := range bp.LevelPoints {
			if pts == 0 {
				t.Errorf("season %d level %d points zeroed through Tables()", season, lvl)
			}
		}
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	_, err := ParseTables([]byte(`
pools:
  coins: {base_capacity: -1}
battle_passes:
  1: {max_level: 0, default_points_per_level: 0}
matches:
  ranked: {mode: ranked, placement_table: missing}
`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"negative base_capacity", "max_level", "default_points_per_level", "unknown placement table"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidateRejectsOversizedLadder(t *testing.T) {
	_, err := ParseTables([]byte(`
battle_passes:
  1: {max_level: 10, default_points_per_level: 1000000000}
`))
	if err == nil || !strings.Contains(err.Error(), "ladder costs") {
		t.Errorf("error = %v, want ladder cost rejection", err)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	sample, err := os.ReadFile(filepath.Join("testdata", "tables.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, sample, 0o644); err != nil {
		t.Fatal(err)
	}

	tables, err := ReadTables(path)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewStore(tables)
	if err != nil {
		t.Fatal(err)
	}
	w := NewWatcher(path, time.Second, s, nil)
	w.check(true)

	updated := strings.Replace(string(sample), "k: 32", "k: 20", 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	if !w.check(false) {
		t.Fatal("change not detected")
	}
	if r, _ := Get[reward.RatingConfig](s, RatingKey); r.K != 20 {
		t.Errorf("K = %v after reload, want 20", r.K)
	}

	// A broken file keeps the last good tables.
	if err := os.WriteFile(path, []byte("pools: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	later := future.Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	w.check(false)
	if s.Version() != 2 {
		t.Errorf("broken file changed version to %d", s.Version())
	}
}

func TestWatcherSinceCatchesEarlyEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	sample, err := os.ReadFile(filepath.Join("testdata", "tables.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, sample, 0o644); err != nil {
		t.Fatal(err)
	}

	tables, mtime, err := ReadTablesFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewStore(tables)
	if err != nil {
		t.Fatal(err)
	}

	// Edited after the load but before the watcher first looks.
	updated := strings.Replace(string(sample), "k: 32", "k: 20", 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}
	later := mtime.Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, time.Second, s, nil).Since(mtime)
	if !w.check(false) {
		t.Fatal("edit made before the first poll was missed")
	}
	if s.Version() != 2 {
		t.Errorf("version = %d, want 2", s.Version())
	}
	if r, _ := Get[reward.RatingConfig](s, RatingKey); r.K != 20 {
		t.Errorf("K = %v after reload, want 20", r.K)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("ECON_SERVER_SEED", "s3cret")
	t.Setenv("ECON_STORE", "sqlite")
	t.Setenv("ECON_LOCK", "sqlite")
	t.Setenv("ECON_LOCK_TIMEOUT", "250ms")

	e, err := LoadEnv()
	if err != nil {
		t.Fatal(err)
	}
	if e.Addr != ":8080" || e.LockTimeout != 250*time.Millisecond || e.Season != 1 {
		t.Errorf("env = %+v", e)
	}

	t.Setenv("ECON_STORE", "memory")
	if _, err := LoadEnv(); err == nil {
		t.Error("sqlite lock without sqlite store should fail")
	}
}

func TestLoadEnvRequiresSeed(t *testing.T) {
	keyring.MockInit()
	t.Setenv("ECON_SERVER_SEED", "")
	os.Unsetenv("ECON_SERVER_SEED")
	if _, err := LoadEnv(); err == nil {
		t.Error("missing server seed should fail")
	}
}

func TestLoadEnvSeedFromKeyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv("ECON_SERVER_SEED", "")
	t.Setenv("ECON_KEYRING_SERVICE", "econ-test")
	if err := StoreServerSeed("econ-test", "from-keychain"); err != nil {
		t.Fatal(err)
	}

	e, err := LoadEnv()
	if err != nil {
		t.Fatal(err)
	}
	if e.ServerSeed != "from-keychain" {
		t.Errorf("seed = %q, want from-keychain", e.ServerSeed)
	}

	if err := StoreServerSeed("econ-test", "  "); err == nil {
		t.Error("blank seed should be rejected")
	}
}
