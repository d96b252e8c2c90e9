package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var sqliteStoreSchema = []string{`
CREATE TABLE IF NOT EXISTS catalog_entries (
	entry_key TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	directory TEXT NOT NULL,
	status TEXT NOT NULL,
	payload BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS catalog_entries_name ON catalog_entries (name)`,
}

// SQLiteStore persists entries in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite-backed store. dsn is a file
// path or a "file:" URI.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("catalog: sqlite store dsn is required")
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = filepath.Clean(dsn)
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
			return nil, fmt.Errorf("catalog: create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: sqlite store open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: sqlite store set WAL mode: %w", err)
	}
	for _, stmt := range sqliteStoreSchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("catalog: sqlite store create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// List returns all entries sorted by name.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, errors.New("catalog: sqlite store is nil")
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT payload
FROM catalog_entries
ORDER BY name ASC, entry_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("catalog: sqlite list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("catalog: sqlite scan entry: %w", err)
		}
		entry, err := decodeEntry(payload)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: sqlite entry rows: %w", err)
	}
	return entries, nil
}

// Get returns an entry by key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	if s == nil || s.db == nil {
		return Entry{}, false, errors.New("catalog: sqlite store is nil")
	}

	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM catalog_entries WHERE entry_key = ?`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("catalog: sqlite get entry: %w", err)
	}
	entry, err := decodeEntry(payload)
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// Upsert inserts or replaces an entry by key.
func (s *SQLiteStore) Upsert(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return errors.New("catalog: sqlite store is nil")
	}
	if strings.TrimSpace(entry.Key()) == "" {
		return errors.New("catalog: entry executable path is required")
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("catalog: sqlite encode entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO catalog_entries (entry_key, name, directory, status, payload, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(entry_key) DO UPDATE SET
	name = excluded.name,
	directory = excluded.directory,
	status = excluded.status,
	payload = excluded.payload,
	updated_at = excluded.updated_at`,
		entry.Key(),
		entry.Name,
		entry.Directory,
		string(entry.Status),
		payload,
		entry.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("catalog: sqlite upsert entry: %w", err)
	}
	return nil
}

// Delete removes an entry by key. Deleting a missing key is a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return errors.New("catalog: sqlite store is nil")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM catalog_entries WHERE entry_key = ?`, key); err != nil {
		return fmt.Errorf("catalog: sqlite delete entry: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func decodeEntry(payload []byte) (Entry, error) {
	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return Entry{}, fmt.Errorf("catalog: sqlite decode entry: %w", err)
	}
	return entry, nil
}
