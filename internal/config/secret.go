package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const serverSeedAccount = "server-seed"

// ServerSeedFromKeyring reads the server seed from the OS keychain.
func ServerSeedFromKeyring(service string) (string, error) {
	seed, err := keyring.Get(service, serverSeedAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("no server seed in keyring service %q", service)
	}
	if err != nil {
		return "", fmt.Errorf("keyring get: %w", err)
	}
	if strings.TrimSpace(seed) == "" {
		return "", fmt.Errorf("empty server seed in keyring service %q", service)
	}
	return seed, nil
}

// StoreServerSeed saves seed in the OS keychain under service.
func StoreServerSeed(service, seed string) error {
	if strings.TrimSpace(seed) == "" {
		return errors.New("server seed is empty")
	}
	if err := keyring.Set(service, serverSeedAccount, seed); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}
