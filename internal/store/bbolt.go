package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/MJE43/econ-engine/internal/errs"
)

const playerBucket = "player_state"

// Bolt stores blobs in a BoltDB bucket keyed by player id.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens a BoltDB-backed store at path.
func OpenBolt(path string) (*Bolt, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(playerBucket)); err != nil {
			return fmt.Errorf("create player bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *Bolt) Load(ctx context.Context, playerID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(playerBucket))
		if bucket == nil {
			return fmt.Errorf("player bucket is missing")
		}
		v := bucket.Get([]byte(playerID))
		if v == nil {
			return errs.E(errs.KindNotFound, "store.Load", "player %q", playerID)
		}
		// v is only valid inside the transaction
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Bolt) Save(ctx context.Context, playerID string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(playerID) == "" {
		return errs.E(errs.KindNotFound, "store.Save", "player id is required")
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(playerBucket))
		if bucket == nil {
			return fmt.Errorf("player bucket is missing")
		}
		return bucket.Put([]byte(playerID), blob)
	})
}

func (b *Bolt) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(playerBucket))
		if bucket == nil {
			return fmt.Errorf("player bucket is missing")
		}
		return bucket.ForEach(func(_, v []byte) error {
			st.Players++
			st.Bytes += int64(len(v))
			return nil
		})
	})
	return st, err
}
