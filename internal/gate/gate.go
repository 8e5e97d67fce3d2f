// Package gate applies state-mutating commands to one player at a time.
//
// Execute serializes commands per player with a named lock, runs the handler
// on a private copy of the loaded state and saves the copy only when the
// handler succeeds. A failed command leaves the stored state untouched.
package gate

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/MJE43/econ-engine/internal/config"
	"github.com/MJE43/econ-engine/internal/engine"
	"github.com/MJE43/econ-engine/internal/errs"
	"github.com/MJE43/econ-engine/internal/lock"
	"github.com/MJE43/econ-engine/internal/player"
	"github.com/MJE43/econ-engine/internal/store"
)

// DefaultLockTimeout bounds how long Execute waits for a busy player.
const DefaultLockTimeout = 5 * time.Second

// ChangeFunc is told about every committed change.
type ChangeFunc func(playerID string, before, after player.State)

// Options configures a Gate. Zero values pick defaults.
type Options struct {
	ServerSeed  string
	Season      uint32
	LockTimeout time.Duration
	Registry    Registry
	OnChange    ChangeFunc
	Logger      *log.Logger
	Now         func() time.Time
}

// Result is what one successful Execute returns.
type Result struct {
	ExecutionID string       `json:"execution_id"`
	PlayerID    string       `json:"player_id"`
	Type        string       `json:"type"`
	Version     uint64       `json:"version"`
	Output      any          `json:"output,omitempty"`
	State       player.State `json:"state"`
}

// Gate is the server-side command executor.
type Gate struct {
	store    store.StateStore
	locks    lock.Provider
	config   config.Provider
	registry Registry

	serverSeed  string
	season      uint32
	lockTimeout time.Duration
	onChange    ChangeFunc
	logger      *log.Logger
	now         func() time.Time
}

func New(st store.StateStore, locks lock.Provider, cfg config.Provider, opts Options) *Gate {
	g := &Gate{
		store:       st,
		locks:       locks,
		config:      cfg,
		registry:    opts.Registry,
		serverSeed:  opts.ServerSeed,
		season:      opts.Season,
		lockTimeout: opts.LockTimeout,
		onChange:    opts.OnChange,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if g.registry == nil {
		g.registry = DefaultRegistry()
	}
	if g.season == 0 {
		g.season = 1
	}
	if g.lockTimeout <= 0 {
		g.lockTimeout = DefaultLockTimeout
	}
	if g.logger == nil {
		g.logger = log.New(os.Stdout, "[GATE] ", log.LstdFlags|log.Lshortfile)
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Registry returns the command registry in use.
func (g *Gate) Registry() Registry { return g.registry }

// Execute runs cmd for playerID.
//
// An unknown command type fails before the lock or store is touched. If ctx
// is canceled while waiting for the lock nothing happens; once the lock is
// held the command runs to completion regardless of ctx.
func (g *Gate) Execute(ctx context.Context, playerID string, cmd Command) (Result, error) {
	h, err := g.registry.Lookup(cmd.Type)
	if err != nil {
		return Result{}, err
	}
	if playerID == "" {
		return Result{}, errs.E(errs.KindInvalidPayload, "gate.Execute", "player id is required")
	}

	start := time.Now()
	execID := uuid.NewString()

	handle, err := g.locks.AcquireLock(ctx, lock.PlayerLockName(playerID), g.lockTimeout)
	if err != nil {
		g.logger.Printf("lock not acquired exec=%s player=%s type=%s err=%v", execID, playerID, cmd.Type, err)
		return Result{}, err
	}
	defer func() {
		if err := handle.Release(); err != nil {
			g.logger.Printf("lock release failed exec=%s player=%s err=%v", execID, playerID, err)
		}
	}()

	// Past this point the command is committed to running.
	ctx = context.WithoutCancel(ctx)

	before, err := g.load(ctx, playerID)
	if err != nil {
		return Result{}, err
	}

	now := g.now()
	next := before.Clone()
	out, err := h(Env{Config: g.config, Now: now, ServerSeed: g.serverSeed}, &next, cmd.Payload)
	if err != nil {
		g.logger.Printf("command rejected exec=%s player=%s type=%s kind=%s err=%v",
			execID, playerID, cmd.Type, errs.KindOf(err), err)
		return Result{}, err
	}

	next.Version = before.Version + 1
	next.UpdatedAt = now
	blob, err := player.Encode(next)
	if err != nil {
		return Result{}, err
	}
	if err := g.store.Save(ctx, playerID, blob); err != nil {
		g.logger.Printf("save failed exec=%s player=%s err=%v", execID, playerID, err)
		return Result{}, err
	}

	if g.onChange != nil {
		g.onChange(playerID, before, next)
	}
	g.logger.Printf("command applied exec=%s player=%s type=%s version=%d duration=%v",
		execID, playerID, cmd.Type, next.Version, time.Since(start))

	return Result{
		ExecutionID: execID,
		PlayerID:    playerID,
		Type:        cmd.Type,
		Version:     next.Version,
		Output:      out,
		State:       next,
	}, nil
}

// State returns the stored state without locking. A player that was never
// saved gets the state they would start with.
func (g *Gate) State(ctx context.Context, playerID string) (player.State, error) {
	return g.load(ctx, playerID)
}

func (g *Gate) load(ctx context.Context, playerID string) (player.State, error) {
	blob, err := g.store.Load(ctx, playerID)
	if errors.Is(err, errs.ErrNotFound) {
		return player.New(playerID, g.season, engine.DeriveSeed(g.serverSeed, playerID, g.season)), nil
	}
	if err != nil {
		return player.State{}, err
	}
	return player.Decode(blob)
}
