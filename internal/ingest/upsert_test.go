package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/discover"
	"github.com/AprovanLabs/apprentice/internal/extract"
	"github.com/AprovanLabs/apprentice/internal/ingest"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestUpsertFiles_AddsNewThenSkipsUnchanged covers spec §4.6, S1: an unseen
// file is added; re-running with no content change skips it (same content hash).
func TestUpsertFiles_AddsNewThenSkipsUnchanged(t *testing.T) {
	store := openTestStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	writeFile(t, path, "---\ntitle: hi\n---\nbody")

	up := ingest.NewUpserter(store, extract.NewRegistry())
	files := []discover.File{{Key: "note.md", AbsolutePath: path, SourcePath: dir}}

	result := up.UpsertFiles(context.Background(), "ctx1", files)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Added != 1 {
		t.Fatalf("expected 1 added, got %d", result.Added)
	}

	result = up.UpsertFiles(context.Background(), "ctx1", files)
	if result.Skipped != 1 || result.Added != 0 || result.Updated != 0 {
		t.Fatalf("expected the unchanged file to be skipped, got %+v", result)
	}
}

func TestUpsertFiles_UpdatesOnContentChange(t *testing.T) {
	store := openTestStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	writeFile(t, path, "version one")

	up := ingest.NewUpserter(store, extract.NewRegistry())
	files := []discover.File{{Key: "note.md", AbsolutePath: path, SourcePath: dir}}

	if result := up.UpsertFiles(context.Background(), "ctx1", files); result.Added != 1 {
		t.Fatalf("expected 1 added, got %+v", result)
	}

	writeFile(t, path, "version two, now longer")
	result := up.UpsertFiles(context.Background(), "ctx1", files)
	if result.Updated != 1 {
		t.Fatalf("expected 1 updated after content change, got %+v", result)
	}
}

func TestUpsertFiles_ExtractsFrontmatterMetadata(t *testing.T) {
	store := openTestStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	writeFile(t, path, "---\ntitle: My Note\n---\nbody text")

	up := ingest.NewUpserter(store, extract.NewRegistry())
	files := []discover.File{{Key: "note.md", AbsolutePath: path, SourcePath: dir}}
	up.UpsertFiles(context.Background(), "ctx1", files)

	asset, err := store.GetAssetByKey(context.Background(), "ctx1", "note.md")
	if err != nil {
		t.Fatal(err)
	}
	if asset == nil {
		t.Fatal("expected the asset to have been created")
	}
	if got := asset.Metadata.GetString("frontmatter.title"); got != "My Note" {
		t.Fatalf("expected extracted frontmatter title, got %q", got)
	}
}
