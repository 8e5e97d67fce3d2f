package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Env is the process configuration read from the environment.
type Env struct {
	Addr           string        `env:"ECON_ADDR" envDefault:":8080"`
	Store          string        `env:"ECON_STORE" envDefault:"memory"`
	DBPath         string        `env:"ECON_DB_PATH" envDefault:"econ.db"`
	TablesPath     string        `env:"ECON_TABLES_PATH" envDefault:"configs/tables.yaml"`
	Lock           string        `env:"ECON_LOCK" envDefault:"local"`
	LockTimeout    time.Duration `env:"ECON_LOCK_TIMEOUT" envDefault:"5s"`
	ReloadInterval time.Duration `env:"ECON_RELOAD_INTERVAL" envDefault:"10s"`
	ServerSeed     string        `env:"ECON_SERVER_SEED"`
	KeyringService string        `env:"ECON_KEYRING_SERVICE" envDefault:"econ-engine"`
	Season         uint32        `env:"ECON_SEASON" envDefault:"1"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv parses and checks Env. Without ECON_SERVER_SEED the seed is read
// from the OS keychain.
func LoadEnv() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	if e.ServerSeed == "" {
		seed, err := ServerSeedFromKeyring(e.KeyringService)
		if err != nil {
			return Env{}, fmt.Errorf("ECON_SERVER_SEED unset: %w", err)
		}
		e.ServerSeed = seed
	}
	switch e.Store {
	case "memory", "sqlite", "bbolt":
	default:
		return Env{}, fmt.Errorf("ECON_STORE: unknown store %q", e.Store)
	}
	switch e.Lock {
	case "local", "sqlite":
	default:
		return Env{}, fmt.Errorf("ECON_LOCK: unknown lock provider %q", e.Lock)
	}
	if e.Lock == "sqlite" && e.Store != "sqlite" {
		return Env{}, errors.New("ECON_LOCK=sqlite requires ECON_STORE=sqlite")
	}
	return e, nil
}
