package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	fileStoreVersionV1 = "1"
	lockRetryDelay     = 25 * time.Millisecond
)

var errEmptyStorePath = errors.New("catalog: file store path is empty")

type fileStoreDocument struct {
	Version string  `json:"version"`
	Entries []Entry `json:"entries"`
}

// FileStore persists entries in a local JSON file. A sibling ".lock" file
// serializes access between processes.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates a file-backed store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// List returns all entries sorted by name.
func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("catalog: file store is nil")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	unlock, err := s.lock(ctx, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	return cloneEntries(entries), nil
}

// Get returns an entry by key.
func (s *FileStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	for _, entry := range entries {
		if entry.Key() == key {
			return entry, true, nil
		}
	}
	return Entry{}, false, nil
}

// Upsert inserts or replaces an entry by key.
func (s *FileStore) Upsert(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return errors.New("catalog: file store is nil")
	}
	if strings.TrimSpace(entry.Key()) == "" {
		return errors.New("catalog: entry executable path is required")
	}

	return s.update(ctx, func(entries []Entry) []Entry {
		if entry.UpdatedAt.IsZero() {
			entry.UpdatedAt = time.Now().UTC()
		}
		for i := range entries {
			if entries[i].Key() == entry.Key() {
				entries[i] = cloneEntry(entry)
				return entries
			}
		}
		return append(entries, cloneEntry(entry))
	})
}

// Delete removes an entry by key. Deleting a missing key is a no-op.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return errors.New("catalog: file store is nil")
	}

	return s.update(ctx, func(entries []Entry) []Entry {
		filtered := make([]Entry, 0, len(entries))
		for _, entry := range entries {
			if entry.Key() != key {
				filtered = append(filtered, entry)
			}
		}
		return filtered
	})
}

// Close is a no-op; the file is only open during operations.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) update(ctx context.Context, mutate func([]Entry) []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	return s.save(mutate(entries))
}

func (s *FileStore) lock(ctx context.Context, exclusive bool) (func(), error) {
	if strings.TrimSpace(s.path) == "" {
		return nil, errEmptyStorePath
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return nil, fmt.Errorf("catalog: create store dir: %w", err)
	}

	fileLock := flock.New(s.path + ".lock")
	var locked bool
	var err error
	if exclusive {
		locked, err = fileLock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = fileLock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: lock store file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("catalog: lock store file: %s is busy", s.path)
	}
	return func() { _ = fileLock.Unlock() }, nil
}

func (s *FileStore) load() ([]Entry, error) {
	// #nosec G304 -- path is configured by caller and constrained to local filesystem usage.
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("catalog: read entries: %w", err)
	}
	if len(data) == 0 {
		return []Entry{}, nil
	}

	var doc fileStoreDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode entries: %w", err)
	}
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	sortEntries(doc.Entries)
	return doc.Entries, nil
}

func (s *FileStore) save(entries []Entry) error {
	entries = cloneEntries(entries)
	sortEntries(entries)

	doc := fileStoreDocument{
		Version: fileStoreVersionV1,
		Entries: entries,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: encode entries: %w", err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("catalog: write temp store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("catalog: replace store file: %w", err)
	}
	return nil
}
