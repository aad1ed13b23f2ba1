package version_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/version"
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

// TestSyncer_Sync covers spec §4.7's sync algorithm end to end against a
// real two-commit git repo: both refs are recorded, their file versions are
// stored, and the sync cursor advances to the newest ref.
func TestSyncer_Sync(t *testing.T) {
	dir := initRepo(t)
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", "a.txt")
	run("commit", "-q", "-m", "second")

	store := openTestStore(t)
	if err := store.PutVersionProvider(context.Background(), "ctx1", "git"); err != nil {
		t.Fatal(err)
	}
	provider := version.NewGit(0)
	syncer := version.NewSyncer(store, provider, 50)

	result, err := syncer.Sync(context.Background(), "ctx1", dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.RefsProcessed != 2 {
		t.Fatalf("expected 2 refs processed, got %d", result.RefsProcessed)
	}

	refs, err := store.ListVersionRefs(context.Background(), "ctx1", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs recorded, got %d", len(refs))
	}

	providerRow, err := store.GetVersionProvider(context.Background(), "ctx1")
	if err != nil {
		t.Fatal(err)
	}
	if providerRow == nil || providerRow.LastSyncRef != refs[0].ID {
		t.Fatalf("expected the sync cursor to point at the newest ref, got %+v", providerRow)
	}
}

// TestSyncer_Sync_ResumesFromCursor covers the cursor-resume half of spec
// §4.7: a second sync call with no new commits processes nothing further.
func TestSyncer_Sync_ResumesFromCursor(t *testing.T) {
	dir := initRepo(t)
	store := openTestStore(t)
	if err := store.PutVersionProvider(context.Background(), "ctx1", "git"); err != nil {
		t.Fatal(err)
	}
	provider := version.NewGit(0)
	syncer := version.NewSyncer(store, provider, 50)

	if _, err := syncer.Sync(context.Background(), "ctx1", dir); err != nil {
		t.Fatal(err)
	}
	result, err := syncer.Sync(context.Background(), "ctx1", dir)
	if err != nil {
		t.Fatal(err)
	}
	if result.RefsProcessed != 0 {
		t.Fatalf("expected no refs to be reprocessed, got %d", result.RefsProcessed)
	}
}
