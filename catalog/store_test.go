package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/petal-labs/mcpserve/scanner"
	"github.com/petal-labs/mcpserve/tool"
)

func testEntry(dir, file string, status Status) Entry {
	path := filepath.Join(dir, file)
	entry := Entry{
		Name:           file,
		Directory:      dir,
		ExecutablePath: path,
		Metadata:       scanner.Embedded(path),
		Status:         status,
		UpdatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if status == StatusReady {
		entry.Metadata = scanner.Sidecar(scanner.SidecarPath(path))
		entry.Definition = &tool.ToolDefinition{
			Name:        file,
			Description: "test tool " + file,
			Input:       tool.IOSpec{Template: "{{value}}", Schema: map[string]any{"type": "object"}},
			Output:      tool.IOSpec{Template: "(?<out>.*)", Schema: nil},
		}
	}
	return entry
}

func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		DriverFile: func(t *testing.T) Store {
			return NewFileStore(filepath.Join(t.TempDir(), "state", "catalog.json"))
		},
		DriverSQLite: func(t *testing.T) Store {
			store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state", "catalog.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore() error = %v", err)
			}
			return store
		},
	}
}

func TestStore_CRUD(t *testing.T) {
	for driver, open := range storeFactories() {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)
			t.Cleanup(func() { _ = store.Close() })

			entries, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List() on empty store error = %v", err)
			}
			if len(entries) != 0 {
				t.Fatalf("List() on empty store = %d entries", len(entries))
			}

			ready := testEntry("/tools", "zeta", StatusReady)
			unresolved := testEntry("/tools", "alpha", StatusUnresolved)
			for _, entry := range []Entry{ready, unresolved} {
				if err := store.Upsert(ctx, entry); err != nil {
					t.Fatalf("Upsert(%s) error = %v", entry.Name, err)
				}
			}

			entries, err = store.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(entries) != 2 || entries[0].Name != "alpha" || entries[1].Name != "zeta" {
				t.Fatalf("List() = %+v, want alpha then zeta", entries)
			}

			got, ok, err := store.Get(ctx, ready.Key())
			if err != nil || !ok {
				t.Fatalf("Get() = ok %v, err %v", ok, err)
			}
			if !sameContent(got, ready) {
				t.Errorf("Get() = %+v, want %+v", got, ready)
			}
			if !got.UpdatedAt.Equal(ready.UpdatedAt) {
				t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, ready.UpdatedAt)
			}

			ready.Status = StatusInvalid
			ready.Definition = nil
			if err := store.Upsert(ctx, ready); err != nil {
				t.Fatalf("Upsert() replace error = %v", err)
			}
			got, _, _ = store.Get(ctx, ready.Key())
			if got.Status != StatusInvalid || got.Definition != nil {
				t.Errorf("replaced entry = %+v", got)
			}

			if err := store.Delete(ctx, ready.Key()); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := store.Delete(ctx, ready.Key()); err != nil {
				t.Fatalf("Delete() of missing key error = %v", err)
			}
			if _, ok, _ := store.Get(ctx, ready.Key()); ok {
				t.Error("entry still present after Delete()")
			}

			found, err := FindByName(ctx, store, "alpha")
			if err != nil || len(found) != 1 || found[0].Key() != unresolved.Key() {
				t.Errorf("FindByName() = %+v, %v", found, err)
			}
			if found, _ := FindByName(ctx, store, "zeta"); len(found) != 0 {
				t.Error("FindByName() found deleted entry")
			}
		})
	}
}

func TestStore_RejectsEmptyKey(t *testing.T) {
	for driver, open := range storeFactories() {
		t.Run(driver, func(t *testing.T) {
			store := open(t)
			t.Cleanup(func() { _ = store.Close() })
			if err := store.Upsert(context.Background(), Entry{Name: "x"}); err == nil {
				t.Fatal("expected error for entry without executable path")
			}
		})
	}
}

func TestStore_CanceledContext(t *testing.T) {
	for driver, open := range storeFactories() {
		t.Run(driver, func(t *testing.T) {
			store := open(t)
			t.Cleanup(func() { _ = store.Close() })
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if _, err := store.List(ctx); err == nil {
				t.Fatal("expected List() to fail on canceled context")
			}
		})
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	ctx := context.Background()

	first := NewFileStore(path)
	if err := first.Upsert(ctx, testEntry("/tools", "calc", StatusReady)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	second := NewFileStore(path)
	entries, err := second.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Definition == nil || entries[0].Definition.Name != "calc" {
		t.Fatalf("List() = %+v", entries)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("store file mode = %o, want 600", perm)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).List(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFileStore_EmptyPath(t *testing.T) {
	if _, err := NewFileStore("").List(context.Background()); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		driver  string
		path    string
		wantErr bool
	}{
		{name: "file", driver: DriverFile, path: filepath.Join(dir, "a.json")},
		{name: "sqlite", driver: DriverSQLite, path: filepath.Join(dir, "a.db")},
		{name: "default driver", driver: "", path: filepath.Join(dir, "b.db")},
		{name: "unknown driver", driver: "postgres", path: filepath.Join(dir, "c"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := OpenStore(tt.driver, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenStore() error = %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			if _, err := store.List(context.Background()); err != nil {
				t.Fatalf("List() error = %v", err)
			}
		})
	}
}

func TestDefaultStorePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := map[string]string{
		DriverFile:   filepath.Join(home, ".mcpserve", "catalog.json"),
		DriverSQLite: filepath.Join(home, ".mcpserve", "catalog.db"),
	}
	for driver, want := range tests {
		got, err := DefaultStorePath(driver)
		if err != nil {
			t.Fatalf("DefaultStorePath(%s) error = %v", driver, err)
		}
		if got != want {
			t.Errorf("DefaultStorePath(%s) = %q, want %q", driver, got, want)
		}
	}
}
