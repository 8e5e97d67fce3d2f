// Package config serves the game's tunable tables and the process settings.
//
// Tables are looked up by key through a Provider. A Store swaps a whole new
// set of tables in atomically and bumps the version, so a reader sees either
// the old tables or the new ones, never a mix.
package config

import (
	"sync/atomic"

	"github.com/MJE43/econ-engine/internal/errs"
)

// Provider is a read-only, versioned view of the config tables.
type Provider interface {
	Lookup(key string) (any, bool)
	Version() uint64
}

// Get fetches key from p as a T.
func Get[T any](p Provider, key string) (T, error) {
	var zero T
	v, ok := p.Lookup(key)
	if !ok {
		return zero, errs.E(errs.KindNotFound, "config.Get", "key %q", key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, errs.E(errs.KindInternal, "config.Get", "key %q holds %T", key, v)
	}
	return t, nil
}

type snapshot struct {
	version uint64
	tables  Tables
	values  map[string]any
}

// Store is an in-memory Provider whose contents can be replaced at runtime.
type Store struct {
	current atomic.Pointer[snapshot]
}

// NewStore validates t and serves it as version 1.
func NewStore(t Tables) (*Store, error) {
	s := &Store{}
	if err := s.Reload(t); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload validates t and swaps it in under the next version. The store keeps
// its own copy, so the caller may go on using t.
func (s *Store) Reload(t Tables) error {
	t = t.Clone()
	t.normalize()
	if err := t.Validate(); err != nil {
		return errs.Wrap(errs.KindInternal, "config.Reload", err)
	}
	for {
		old := s.current.Load()
		next := &snapshot{version: 1, tables: t, values: t.values()}
		if old != nil {
			next.version = old.version + 1
		}
		if s.current.CompareAndSwap(old, next) {
			return nil
		}
	}
}

// Lookup implements Provider.
func (s *Store) Lookup(key string) (any, bool) {
	snap := s.current.Load()
	if snap == nil {
		return nil, false
	}
	v, ok := snap.values[key]
	return v, ok
}

// Version implements Provider.
func (s *Store) Version() uint64 {
	if snap := s.current.Load(); snap != nil {
		return snap.version
	}
	return 0
}

// Tables returns a copy of the tables currently served.
func (s *Store) Tables() Tables {
	if snap := s.current.Load(); snap != nil {
		return snap.tables.Clone()
	}
	return Tables{}
}
