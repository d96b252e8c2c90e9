package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists catalog entries keyed by executable path.
type Store interface {
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, key string) (Entry, bool, error)
	Upsert(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Supported store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

const defaultStoreDir = ".mcpserve"

// DefaultStorePath returns ~/.mcpserve/<catalog.json|catalog.db> for a driver.
func DefaultStorePath(driver string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("catalog: resolve user home: %w", err)
	}
	name := "catalog.db"
	if driver == DriverFile {
		name = "catalog.json"
	}
	return filepath.Join(home, defaultStoreDir, name), nil
}

// OpenStore opens a store for driver at path. An empty path selects the
// driver's default location.
func OpenStore(driver, path string) (Store, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		driver = DriverSQLite
	}
	if strings.TrimSpace(path) == "" {
		defaultPath, err := DefaultStorePath(driver)
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	switch driver {
	case DriverFile:
		return NewFileStore(path), nil
	case DriverSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("catalog: unknown store driver %q (want %s or %s)", driver, DriverFile, DriverSQLite)
	}
}

// FindByName returns stored entries whose tool name or executable file name
// matches name.
func FindByName(ctx context.Context, store Store, name string) ([]Entry, error) {
	entries, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	var matches []Entry
	for _, entry := range entries {
		if entry.Name == name || filepath.Base(entry.ExecutablePath) == name {
			matches = append(matches, entry)
		}
	}
	return matches, nil
}
