package dbstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/model"
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

func TestUpsertAsset_CreatedThenUpdated(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	asset := model.Asset{
		ID: "a1", ContextID: "ctx1", Key: "notes/a.md", Extension: ".md",
		ContentHash: "hash1", IndexedAt: time.Now().UTC(), Metadata: model.Empty,
	}

	created, err := store.UpsertAsset(ctx, asset)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("expected the first upsert to report created=true")
	}

	asset.ContentHash = "hash2"
	created, err = store.UpsertAsset(ctx, asset)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("expected the second upsert for the same id to report created=false")
	}

	got, err := store.GetAsset(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ContentHash != "hash2" {
		t.Fatalf("expected the content hash to be updated, got %+v", got)
	}
}

func TestGetAsset_MissingReturnsNilNotError(t *testing.T) {
	store := openTestStore(t)
	got, err := store.GetAsset(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil for a missing asset, got %+v", got)
	}
}

func TestGetAssetByKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	asset := model.Asset{ID: "a1", ContextID: "ctx1", Key: "notes/a.md", ContentHash: "h", IndexedAt: time.Now().UTC(), Metadata: model.Empty}
	if _, err := store.UpsertAsset(ctx, asset); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetAssetByKey(ctx, "ctx1", "notes/a.md")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != "a1" {
		t.Fatalf("expected to find asset a1 by key, got %+v", got)
	}
}

// TestContentStore_PutGetRelease covers spec §4.2: put/get/release-head and
// the refcount-based eviction behaviour, including the pre-count-before-
// delete off-by-one documented in content.go.
func TestContentStore_PutGetRelease(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	hash := "deadbeef"
	content := []byte("hello world")

	if err := store.PutContent(ctx, hash, content, "ctx1"); err != nil {
		t.Fatal(err)
	}
	exists, err := store.ContentExists(ctx, hash)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected content to exist after PutContent")
	}

	blob, err := store.GetContent(ctx, hash)
	if err != nil {
		t.Fatal(err)
	}
	if blob == nil || string(blob.Content) != "hello world" {
		t.Fatalf("expected to read back the stored content, got %+v", blob)
	}

	if err := store.ReleaseHead(ctx, hash); err != nil {
		t.Fatal(err)
	}
	exists, err = store.ContentExists(ctx, hash)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("expected the blob to be evicted once its only ref is released")
	}
}

func TestContentStore_DuplicatePutIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	hash := "samehash"
	if err := store.PutContent(ctx, hash, []byte("x"), "ctx1"); err != nil {
		t.Fatal(err)
	}
	if err := store.PutContent(ctx, hash, []byte("x"), "ctx1"); err != nil {
		t.Fatal(err)
	}
	blob, err := store.GetContent(ctx, hash)
	if err != nil {
		t.Fatal(err)
	}
	if blob == nil {
		t.Fatal("expected the blob to still exist after a duplicate put")
	}
}

func TestEvictStale_SkipsHeldRefs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	dbstore.Now = func() time.Time { return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { dbstore.Now = time.Now })

	if err := store.PutContent(ctx, "held", []byte("x"), "ctx1"); err != nil {
		t.Fatal(err)
	}

	dbstore.Now = func() time.Time { return time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC) }
	result, err := store.EvictStale(ctx, 30, 100)
	if err != nil {
		t.Fatal(err)
	}
	// held has a live head ref, so it must not be evicted even though it's stale.
	if result.RowsEvicted != 0 {
		t.Fatalf("expected 0 rows evicted for content with a live head ref, got %d", result.RowsEvicted)
	}
}

func TestState_GetSetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	got, err := store.GetState(ctx, "cursor.bash")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil for an unset state key, got %v", got)
	}

	value, _ := model.Empty.Set("offset", 42)
	if err := store.SetState(ctx, "cursor.bash", value); err != nil {
		t.Fatal(err)
	}
	got, err = store.GetState(ctx, "cursor.bash")
	if err != nil {
		t.Fatal(err)
	}
	if got.GetString("offset") != "42" && got.Get("offset").Int() != 42 {
		t.Fatalf("expected offset 42, got %v", got)
	}
}

func TestCheckpoint_RunsWithoutError(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Checkpoint(context.Background(), dbstore.CheckpointPassive); err != nil {
		t.Fatal(err)
	}
}
