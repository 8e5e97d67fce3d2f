package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/MJE43/econ-engine/internal/errs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLite stores blobs in a single table.
type SQLite struct {
	db     *sql.DB
	logger *log.Logger
}

// OpenSQLite opens or creates the database at path and applies migrations.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string, logger *log.Logger) (*SQLite, error) {
	if logger == nil {
		logger = log.New(os.Stdout, "[STORE] ", log.LstdFlags)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes

	s := &SQLite{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if st, err := s.Stats(ctx); err == nil {
		logger.Printf("sqlite store ready path=%s players=%d size=%s", path, st.Players, humanize.Bytes(uint64(st.Bytes)))
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, sub)
	if err != nil {
		return fmt.Errorf("migration setup failed: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	for _, r := range results {
		s.logger.Printf("applied migration version=%d file=%s took=%s", r.Source.Version, r.Source.Path, r.Duration)
	}
	return nil
}

// DB exposes the handle so the lease lock can share the database.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Load(ctx context.Context, playerID string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM player_state WHERE player_id = ?`, playerID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.E(errs.KindNotFound, "store.Load", "player %q", playerID)
	}
	if err != nil {
		return nil, fmt.Errorf("load player %s: %w", playerID, err)
	}
	return blob, nil
}

func (s *SQLite) Save(ctx context.Context, playerID string, blob []byte) error {
	if playerID == "" {
		return errs.E(errs.KindNotFound, "store.Save", "player id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO player_state (player_id, blob, saves, updated_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			blob = excluded.blob,
			saves = player_state.saves + 1,
			updated_at = excluded.updated_at`,
		playerID, blob, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save player %s: %w", playerID, err)
	}
	return nil
}

func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(blob)), 0) FROM player_state`).Scan(&st.Players, &st.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
