package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/MJE43/econ-engine/internal/errs"
)

// DefaultLeaseTTL bounds how long a crashed holder can block others.
const DefaultLeaseTTL = 30 * time.Second

var errLeaseHeld = errors.New("lease held")

// Lease is a Provider backed by rows in a shared SQL "locks" table. A lock is
// a row with an owner token and an expiry; an expired row can be taken over.
type Lease struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger *log.Logger

	// MinBackoff and MaxBackoff bound the polling interval while waiting.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// NewLease creates a lease provider on db. The locks table must exist.
func NewLease(db *sql.DB, ttl time.Duration, logger *log.Logger) *Lease {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[LOCK] ", log.LstdFlags)
	}
	return &Lease{
		db:         db,
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
		MinBackoff: 5 * time.Millisecond,
		MaxBackoff: 100 * time.Millisecond,
	}
}

func (l *Lease) AcquireLock(ctx context.Context, name string, timeout time.Duration) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	owner := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := retry.WithCappedDuration(l.MaxBackoff, retry.NewExponential(l.MinBackoff))
	err := retry.Do(waitCtx, b, func(ctx context.Context) error {
		ok, err := l.tryAcquire(ctx, name, owner)
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(errLeaseHeld)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, errLeaseHeld) || waitCtx.Err() != nil {
			return nil, errs.E(errs.KindLockTimeout, "lock.Acquire", "%s not acquired within %s", name, timeout)
		}
		return nil, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	return &leaseHandle{l: l, name: name, owner: owner}, nil
}

// tryAcquire inserts the lease row, or takes it over if it has expired.
func (l *Lease) tryAcquire(ctx context.Context, name, owner string) (bool, error) {
	now := l.now()
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO locks (name, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			owner = excluded.owner,
			expires_at = excluded.expires_at
		WHERE locks.expires_at < ?`,
		name, owner, now.Add(l.ttl).UnixNano(), now.UnixNano())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *Lease) IsHeld(name string) bool {
	var one int
	err := l.db.QueryRow(`SELECT 1 FROM locks WHERE name = ? AND expires_at >= ?`,
		name, l.now().UnixNano()).Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		l.logger.Printf("lease lookup failed name=%s err=%v", name, err)
	}
	return err == nil
}

type leaseHandle struct {
	l     *Lease
	name  string
	owner string
	once  sync.Once
	err   error
}

// Release deletes the row if this handle still owns it. A lease that already
// expired and was taken over is left alone.
func (h *leaseHandle) Release() error {
	h.once.Do(func() {
		_, err := h.l.db.Exec(`DELETE FROM locks WHERE name = ? AND owner = ?`, h.name, h.owner)
		if err != nil {
			h.err = fmt.Errorf("release lease %s: %w", h.name, err)
		}
	})
	return h.err
}
