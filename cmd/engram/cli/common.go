package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/engram/internal/secret"
	"github.com/felixgeelhaar/engram/internal/store"
)

// openStore opens the store at its home location, creating the
// directory and schema on first use.
func openStore() (store.Storage, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	return store.NewSQLiteStore(filepath.Join(home, ".engram", "memory.db"))
}

func getStore() store.Storage {
	s, err := openStore()
	if err != nil {
		fmt.Printf("Failed to init store: %v\n", err)
		os.Exit(1)
	}
	return s
}

// resolveAPIKey returns a provider key: the configuration table wins,
// unsealed when it was stored encrypted, with the environment as the
// fallback.
func resolveAPIKey(s store.Storage, envVar, configKey string) string {
	val, _ := s.GetConfig(configKey)
	if val == "" {
		return os.Getenv(envVar)
	}
	if keeper, err := secret.NewKeeper(); err == nil {
		if plain, err := keeper.Decrypt(val); err == nil {
			return plain
		}
	}
	return val
}
