package catalog

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestSync(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "catalog.json"))

	keep := testEntry("/tools", "keep", StatusReady)
	change := testEntry("/tools", "change", StatusUnresolved)
	gone := testEntry("/tools", "gone", StatusUnresolved)
	other := testEntry("/elsewhere", "other", StatusUnresolved)
	for _, entry := range []Entry{keep, change, gone, other} {
		if err := store.Upsert(ctx, entry); err != nil {
			t.Fatal(err)
		}
	}

	later := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	fresh := testEntry("/tools", "fresh", StatusUnresolved)
	changed := testEntry("/tools", "change", StatusReady)
	unchanged := keep
	unchanged.UpdatedAt = later
	snapshot := Snapshot{
		ID:        "scan-1",
		Directory: "/tools",
		ScannedAt: later,
		Entries:   []Entry{unchanged, changed, fresh},
	}

	result, err := Sync(ctx, store, snapshot)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !result.Changed() {
		t.Error("Changed() = false, want true")
	}
	assertKeys(t, "Added", result.Added, fresh.Key())
	assertKeys(t, "Updated", result.Updated, changed.Key())
	assertKeys(t, "Removed", result.Removed, gone.Key())
	assertKeys(t, "Unchanged", result.Unchanged, keep.Key())

	stored, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	keys := make([]string, 0, len(stored))
	for _, entry := range stored {
		keys = append(keys, entry.Key())
	}
	slices.Sort(keys)
	want := []string{changed.Key(), fresh.Key(), keep.Key(), other.Key()}
	slices.Sort(want)
	if !slices.Equal(keys, want) {
		t.Errorf("stored keys = %v, want %v", keys, want)
	}

	got, _, _ := store.Get(ctx, keep.Key())
	if !got.UpdatedAt.Equal(keep.UpdatedAt) {
		t.Errorf("unchanged entry was rewritten: UpdatedAt = %v", got.UpdatedAt)
	}

	again, err := Sync(ctx, store, snapshot)
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if again.Changed() {
		t.Errorf("second Sync() changed = %+v, want no changes", again)
	}
	if len(again.Unchanged) != 3 {
		t.Errorf("second Sync() unchanged = %v", again.Unchanged)
	}
}

func TestSync_EmptySnapshotClearsDirectory(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "catalog.json"))
	if err := store.Upsert(ctx, testEntry("/tools", "a", StatusUnresolved)); err != nil {
		t.Fatal(err)
	}

	result, err := Sync(ctx, store, Snapshot{Directory: "/tools"})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(result.Removed) != 1 || len(result.Added) != 0 {
		t.Errorf("Sync() = %+v", result)
	}
	entries, _ := store.List(ctx)
	if len(entries) != 0 {
		t.Errorf("store not cleared: %+v", entries)
	}
}

func assertKeys(t *testing.T, label string, got []string, want ...string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("%s = %v, want %v", label, got, want)
	}
}
