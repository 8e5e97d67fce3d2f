// Command econ-server serves the economy command gate over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MJE43/econ-engine/internal/api"
	"github.com/MJE43/econ-engine/internal/config"
	"github.com/MJE43/econ-engine/internal/gate"
	"github.com/MJE43/econ-engine/internal/lock"
	"github.com/MJE43/econ-engine/internal/settle"
	"github.com/MJE43/econ-engine/internal/store"
)

const shutdownTimeout = 10 * time.Second

// backend is what every state store implementation offers.
type backend interface {
	store.StateStore
	api.StatsSource
	Close() error
}

func main() {
	logger := log.New(os.Stdout, "[MAIN] ", log.LstdFlags|log.Lshortfile)
	if err := run(logger); err != nil {
		logger.Fatalf("econ-server: %v", err)
	}
}

func run(logger *log.Logger) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tables, mtime, err := config.ReadTablesFile(env.TablesPath)
	if err != nil {
		return err
	}
	cfg, err := config.NewStore(tables)
	if err != nil {
		return err
	}

	st, locks, err := openBackend(ctx, env)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Printf("close store: %v", err)
		}
	}()

	g := gate.New(st, locks, cfg, gate.Options{
		ServerSeed:  env.ServerSeed,
		Season:      env.Season,
		LockTimeout: env.LockTimeout,
	})
	srv := api.NewServer(g, settle.New(g, 0, nil), api.Options{Config: cfg, Stats: st})

	httpServer := &http.Server{
		Addr:              env.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Printf("starting addr=%s store=%s lock=%s season=%d tables=%s version=%s",
		env.Addr, env.Store, env.Lock, env.Season, env.TablesPath, api.EngineVersion)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return config.NewWatcher(env.TablesPath, env.ReloadInterval, cfg, nil).Since(mtime).Run(ctx)
	})
	eg.Go(func() error {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Printf("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func openBackend(ctx context.Context, env config.Env) (backend, lock.Provider, error) {
	switch env.Store {
	case "sqlite":
		db, err := store.OpenSQLite(ctx, env.DBPath, nil)
		if err != nil {
			return nil, nil, err
		}
		if env.Lock == "sqlite" {
			return db, lock.NewLease(db.DB(), lock.DefaultLeaseTTL, nil), nil
		}
		return db, lock.NewLocal(), nil
	case "bbolt":
		db, err := store.OpenBolt(env.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return db, lock.NewLocal(), nil
	default:
		return store.NewMemory(), lock.NewLocal(), nil
	}
}
