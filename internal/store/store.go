// Package store persists opaque per-player state blobs.
package store

import (
	"context"
	"sync"

	"github.com/MJE43/econ-engine/internal/errs"
)

// StateStore loads and saves one blob per player. Load returns an error of
// kind NotFound when the player has never been saved.
type StateStore interface {
	Load(ctx context.Context, playerID string) ([]byte, error)
	Save(ctx context.Context, playerID string, blob []byte) error
}

// Stats summarizes what a store holds.
type Stats struct {
	Players int64 `json:"players"`
	Bytes   int64 `json:"bytes"`
}

// Memory is an in-process StateStore.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Load(ctx context.Context, playerID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[playerID]
	if !ok {
		return nil, errs.E(errs.KindNotFound, "store.Load", "player %q", playerID)
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Save(ctx context.Context, playerID string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if playerID == "" {
		return errs.E(errs.KindNotFound, "store.Save", "player id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[playerID] = append([]byte(nil), blob...)
	return nil
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{Players: int64(len(m.blobs))}
	for _, b := range m.blobs {
		st.Bytes += int64(len(b))
	}
	return st, nil
}

func (m *Memory) Close() error { return nil }
