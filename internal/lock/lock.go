// Package lock provides named exclusive locks for serializing work per key.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/MJE43/econ-engine/internal/errs"
)

// Provider hands out named exclusive locks.
type Provider interface {
	// AcquireLock blocks until name is free, timeout elapses (LockTimeout)
	// or ctx is done.
	AcquireLock(ctx context.Context, name string, timeout time.Duration) (Handle, error)
	IsHeld(name string) bool
}

// Handle releases a held lock. Release is safe to call more than once.
type Handle interface {
	Release() error
}

// Local is an in-process Provider. Each name is a one-slot semaphore.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) AcquireLock(ctx context.Context, name string, timeout time.Duration) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := l.ref(name)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		return &localHandle{l: l, name: name, s: s}, nil
	case <-timer.C:
		l.unref(name, s)
		return nil, errs.E(errs.KindLockTimeout, "lock.Acquire", "%s not acquired within %s", name, timeout)
	case <-ctx.Done():
		l.unref(name, s)
		return nil, ctx.Err()
	}
}

func (l *Local) IsHeld(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[name]
	return ok && len(s.ch) == 1
}

func (l *Local) ref(name string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[name]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[name] = s
	}
	s.refs++
	return s
}

// unref drops the slot once nobody holds or waits on it.
func (l *Local) unref(name string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, name)
	}
}

type localHandle struct {
	l    *Local
	name string
	s    *slot
	once sync.Once
}

func (h *localHandle) Release() error {
	h.once.Do(func() {
		<-h.s.ch
		h.l.unref(h.name, h.s)
	})
	return nil
}

// PlayerLockName is the lock that serializes commands for one player.
func PlayerLockName(playerID string) string {
	return "player:" + playerID
}
