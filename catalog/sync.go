package catalog

import (
	"context"
	"fmt"
)

// SyncResult lists the keys touched by Sync.
type SyncResult struct {
	Added     []string `json:"added"`
	Updated   []string `json:"updated"`
	Removed   []string `json:"removed"`
	Unchanged []string `json:"unchanged"`
}

// Changed reports whether Sync wrote anything.
func (r SyncResult) Changed() bool {
	return len(r.Added)+len(r.Updated)+len(r.Removed) > 0
}

// Sync makes the store mirror the snapshot for the snapshot's directory.
// Entries stored for other directories are left alone, and entries whose
// content is unchanged keep their original timestamp.
func Sync(ctx context.Context, store Store, snapshot Snapshot) (SyncResult, error) {
	result := SyncResult{
		Added:     []string{},
		Updated:   []string{},
		Removed:   []string{},
		Unchanged: []string{},
	}

	stored, err := store.List(ctx)
	if err != nil {
		return result, fmt.Errorf("catalog: sync list: %w", err)
	}
	existing := make(map[string]Entry)
	for _, entry := range stored {
		if entry.Directory == snapshot.Directory {
			existing[entry.Key()] = entry
		}
	}

	seen := make(map[string]struct{}, len(snapshot.Entries))
	for _, entry := range snapshot.Entries {
		key := entry.Key()
		seen[key] = struct{}{}

		previous, found := existing[key]
		switch {
		case found && sameContent(previous, entry):
			result.Unchanged = append(result.Unchanged, key)
			continue
		case found:
			result.Updated = append(result.Updated, key)
		default:
			result.Added = append(result.Added, key)
		}
		if err := store.Upsert(ctx, entry); err != nil {
			return result, fmt.Errorf("catalog: sync upsert %s: %w", key, err)
		}
	}

	for _, entry := range stored {
		if entry.Directory != snapshot.Directory {
			continue
		}
		if _, ok := seen[entry.Key()]; ok {
			continue
		}
		if err := store.Delete(ctx, entry.Key()); err != nil {
			return result, fmt.Errorf("catalog: sync delete %s: %w", entry.Key(), err)
		}
		result.Removed = append(result.Removed, entry.Key())
	}
	return result, nil
}
