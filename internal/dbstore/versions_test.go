package dbstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/model"
)

func insertRef(t *testing.T, store *dbstore.Store, id string, at time.Time) {
	t.Helper()
	if err := store.InsertVersionRef(context.Background(), model.VersionRef{
		ID: id, ContextID: "ctx1", RefType: model.RefCommit, Name: id, Timestamp: at, Metadata: model.Empty,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestInsertVersionRef_IsIdempotent(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()
	insertRef(t, store, "abc123", now)
	insertRef(t, store, "abc123", now) // same id again must not error

	got, err := store.GetVersionRef(context.Background(), "ctx1", "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected to find the inserted ref")
	}
}

// TestResolveShortRef_PrefixMatch covers spec §9's short-SHA resolution:
// ambiguity is resolved by taking the earliest-timestamp match.
func TestResolveShortRef_PrefixMatch(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()
	insertRef(t, store, "abc111", now)
	insertRef(t, store, "abc222", now.Add(time.Hour))

	got, err := store.ResolveShortRef(context.Background(), "ctx1", "abc")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != "abc111" {
		t.Fatalf("expected the earliest-timestamp match abc111, got %+v", got)
	}
}

func TestListVersionRefs_NewestFirst(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()
	insertRef(t, store, "r1", now)
	insertRef(t, store, "r2", now.Add(time.Hour))

	refs, err := store.ListVersionRefs(context.Background(), "ctx1", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 || refs[0].ID != "r2" {
		t.Fatalf("expected r2 (newest) first, got %+v", refs)
	}
}

func TestVersionProvider_PutGetUpdateCursor(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if got, err := store.GetVersionProvider(ctx, "ctx1"); err != nil || got != nil {
		t.Fatalf("expected no provider row yet, got %+v, err %v", got, err)
	}

	if err := store.PutVersionProvider(ctx, "ctx1", "git"); err != nil {
		t.Fatal(err)
	}
	at := time.Now().UTC()
	if err := store.UpdateSyncCursor(ctx, "ctx1", "abc123", at); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetVersionProvider(ctx, "ctx1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.LastSyncRef != "abc123" {
		t.Fatalf("expected last_sync_ref abc123, got %+v", got)
	}
}

func TestEmbeddings_NeedingAndSet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if _, err := store.UpsertAsset(ctx, model.Asset{ID: "a1", ContextID: "ctx1", Key: "k", IndexedAt: time.Now().UTC(), Metadata: model.Empty}); err != nil {
		t.Fatal(err)
	}

	needing, err := store.NeedingAssetEmbedding(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(needing) != 1 || needing[0] != "a1" {
		t.Fatalf("expected a1 to need an embedding, got %v", needing)
	}

	if err := store.SetAssetEmbedding(ctx, "a1", []float32{1, 2, 3}, "ollama/nomic-embed-text"); err != nil {
		t.Fatal(err)
	}

	needing, err = store.NeedingAssetEmbedding(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(needing) != 0 {
		t.Fatalf("expected no assets needing embedding after SetAssetEmbedding, got %v", needing)
	}

	all, err := store.AllAssetEmbeddings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || len(all[0].Embedding) != 3 {
		t.Fatalf("expected one 3-dim embedding, got %+v", all)
	}

	exists, err := store.AnyEmbeddingsExist(ctx, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected AnyEmbeddingsExist(assets) to be true")
	}
}
