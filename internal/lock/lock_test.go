package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MJE43/econ-engine/internal/errs"
)

func TestLocalExclusive(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	h, err := l.AcquireLock(ctx, "player:1", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !l.IsHeld("player:1") {
		t.Error("IsHeld() = false while held")
	}
	if l.IsHeld("player:2") {
		t.Error("unrelated name reported held")
	}

	if _, err := l.AcquireLock(ctx, "player:1", 20*time.Millisecond); !errors.Is(err, errs.ErrLockTimeout) {
		t.Errorf("second acquire: error = %v, want lock timeout", err)
	}

	other, err := l.AcquireLock(ctx, "player:2", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("different names must not block each other: %v", err)
	}
	other.Release()

	h.Release()
	h.Release()
	if l.IsHeld("player:1") {
		t.Error("IsHeld() = true after release")
	}

	h, err = l.AcquireLock(ctx, "player:1", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	h.Release()
}

func TestLocalCanceledBeforeAcquire(t *testing.T) {
	l := NewLocal()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := l.AcquireLock(ctx, "player:1", time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if l.IsHeld("player:1") {
		t.Error("canceled acquire left the lock held")
	}
}

func TestLocalSerializes(t *testing.T) {
	l := NewLocal()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := l.AcquireLock(context.Background(), "shared", 5*time.Second)
			if err != nil {
				t.Error(err)
				return
			}
			defer h.Release()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if len(l.slots) != 0 {
		t.Errorf("slots not cleaned up: %d left", len(l.slots))
	}
}

func TestPlayerLockName(t *testing.T) {
	if got := PlayerLockName("abc"); got != "player:abc" {
		t.Errorf("PlayerLockName() = %q", got)
	}
}
