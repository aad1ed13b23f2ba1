package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AprovanLabs/apprentice/internal/applog"
	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/extract"
	"github.com/AprovanLabs/apprentice/internal/registry"
)

func openTestStore(t *testing.T) *dbstore.Store {
	t.Helper()
	store, err := dbstore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestIndexAllContexts_WalksEnabledContextsOnly(t *testing.T) {
	store := openTestStore(t)
	reg := registry.New(store, nil)

	enabledDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(enabledDir, "note.md"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	disabledDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(disabledDir, "note.md"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.Add(context.Background(), enabledDir, registry.AddOpts{Name: "enabled"}); err != nil {
		t.Fatal(err)
	}
	disabled, err := reg.Add(context.Background(), disabledDir, registry.AddOpts{Name: "disabled"})
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.SetEnabled(context.Background(), disabled.ID, false); err != nil {
		t.Fatal(err)
	}

	s := New(store, reg, extract.NewRegistry(), nil, nil, applog.NewStderr(), Config{})
	result := s.indexAllContexts(context.Background())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Added != 1 {
		t.Fatalf("expected 1 asset added from the enabled context only, got %d", result.Added)
	}
}

func TestRunCheckpoint_NoPanicOnEmptyStore(t *testing.T) {
	store := openTestStore(t)
	reg := registry.New(store, nil)
	s := New(store, reg, extract.NewRegistry(), nil, nil, applog.NewStderr(), Config{})
	s.runCheckpoint(context.Background())
}

func TestRunChatImportCycle_NilImporterIsNoop(t *testing.T) {
	store := openTestStore(t)
	reg := registry.New(store, nil)
	s := New(store, reg, extract.NewRegistry(), nil, nil, applog.NewStderr(), Config{})
	s.runChatImportCycle(context.Background())
}
