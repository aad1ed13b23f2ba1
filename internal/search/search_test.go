package search_test

import (
	"context"
	"testing"
	"time"

	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/model"
	"github.com/AprovanLabs/apprentice/internal/search"
)

func openTestStore(t *testing.T) *dbstore.Store {
	t.Helper()
	store, err := dbstore.Open(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustInsertEvent(t *testing.T, store *dbstore.Store, id, message string, at time.Time) {
	t.Helper()
	if _, err := store.InsertEventIgnore(context.Background(), model.Event{
		ID: id, Timestamp: at, Message: message, Metadata: model.Empty,
	}); err != nil {
		t.Fatalf("insert event: %v", err)
	}
}

func TestSearch_FTSFallbackWithoutEmbeddings(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()
	mustInsertEvent(t, store, "01HZ00000000000000000001", "ran npm install in the frontend directory", now)
	mustInsertEvent(t, store, "01HZ00000000000000000002", "restarted the postgres container", now.Add(time.Second))

	searcher := search.NewSearcher(store, nil)
	result, err := searcher.Search(context.Background(), "npm install", search.Options{
		Scope: search.Scope{Events: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Mode != search.ModeFTS {
		t.Fatalf("expected degrade to fts mode without a provider, got %s", result.Mode)
	}
	if len(result.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(result.Results))
	}
	if result.Results[0].ID != "01HZ00000000000000000001" {
		t.Fatalf("unexpected hit: %+v", result.Results[0])
	}
}

func TestSearch_EmptyQueryReturnsRecent(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()
	mustInsertEvent(t, store, "01HZ00000000000000000003", "first event", now)
	mustInsertEvent(t, store, "01HZ00000000000000000004", "second event", now.Add(time.Second))

	searcher := search.NewSearcher(store, nil)
	result, err := searcher.Search(context.Background(), "", search.Options{Scope: search.Scope{Events: true}})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 results for an empty query, got %d", len(result.Results))
	}
}

func TestSearch_SinceFilterExcludesOlderEvents(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()
	mustInsertEvent(t, store, "01HZ00000000000000000005", "old deploy", now.Add(-time.Hour))
	mustInsertEvent(t, store, "01HZ00000000000000000006", "new deploy", now)

	since := now.Add(-time.Minute)
	searcher := search.NewSearcher(store, nil)
	result, err := searcher.Search(context.Background(), "deploy", search.Options{
		Scope: search.Scope{Events: true},
		Since: &since,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != 1 || result.Results[0].ID != "01HZ00000000000000000006" {
		t.Fatalf("expected only the recent deploy event, got %+v", result.Results)
	}
}

func TestSearch_RelatedAttachesTemporalContext(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()
	mustInsertEvent(t, store, "01HZ00000000000000000007", "kick off build", now)
	mustInsertEvent(t, store, "01HZ00000000000000000008", "build succeeded", now.Add(10*time.Second))

	searcher := search.NewSearcher(store, nil)
	result, err := searcher.Search(context.Background(), "kick off build", search.Options{
		Scope:         search.Scope{Events: true},
		Related:       true,
		WindowSeconds: 60,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(result.Results))
	}
	rel := result.Results[0].Related
	if rel == nil {
		t.Fatal("expected related context to be attached")
	}
	if rel.StrategyUsed != "temporal" {
		t.Fatalf("expected temporal fallback strategy, got %s", rel.StrategyUsed)
	}
	if len(rel.Events) != 1 || rel.Events[0].Message != "build succeeded" {
		t.Fatalf("expected the neighbouring event, got %+v", rel.Events)
	}
}
