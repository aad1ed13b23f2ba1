package mcpserver_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/model"
	"github.com/AprovanLabs/apprentice/internal/search"
	"github.com/AprovanLabs/apprentice/mcpserver"
)

func newTestServer(t *testing.T) (*mcpserver.SearchServer, *dbstore.Store) {
	t.Helper()
	store, err := dbstore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	searcher := search.NewSearcher(store, nil) // no embedding provider: fts-only
	return mcpserver.NewSearchServer(searcher), store
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty result content")
	}
	tc, ok := r.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is not text: %T", r.Content[0])
	}
	return tc.Text
}

func insertEvent(t *testing.T, store *dbstore.Store, id, message string, at time.Time) {
	t.Helper()
	if _, err := store.InsertEventIgnore(context.Background(), model.Event{
		ID: id, Timestamp: at, Message: message, Metadata: model.Empty,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestHandleSearch_RequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	res, _, err := srv.HandleSearch(context.Background(), nil, mcpserver.SearchInput{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected an error result for an empty query")
	}
}

func TestHandleSearch_FindsInsertedEvent(t *testing.T) {
	srv, store := newTestServer(t)
	now := time.Now().UTC()
	insertEvent(t, store, "01HZEVENT0000000000000001", "deploy service to production", now)
	insertEvent(t, store, "01HZEVENT0000000000000002", "restart the database", now)

	res, _, err := srv.HandleSearch(context.Background(), nil, mcpserver.SearchInput{Query: "deploy production"})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	text := resultText(t, res)
	if !strings.Contains(text, "deploy service to production") {
		t.Fatalf("expected matching event in results, got: %s", text)
	}
}

func TestHandleSearch_NoMatches(t *testing.T) {
	srv, _ := newTestServer(t)
	res, _, err := srv.HandleSearch(context.Background(), nil, mcpserver.SearchInput{Query: "nonexistentword"})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), "No matching results") {
		t.Fatalf("expected no-match message, got: %s", resultText(t, res))
	}
}

func TestHandleRelated_RequiresEventID(t *testing.T) {
	srv, _ := newTestServer(t)
	res, _, err := srv.HandleRelated(context.Background(), nil, mcpserver.RelatedInput{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected an error result for an empty eventId")
	}
}

func TestHandleRelated_TemporalFallback(t *testing.T) {
	srv, store := newTestServer(t)
	now := time.Now().UTC()
	insertEvent(t, store, "01HZEVENT0000000000000003", "start build", now)
	insertEvent(t, store, "01HZEVENT0000000000000004", "build finished", now.Add(5*time.Second))

	res, _, err := srv.HandleRelated(context.Background(), nil, mcpserver.RelatedInput{
		EventID: "01HZEVENT0000000000000003", WindowSeconds: 60,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), "build finished") {
		t.Fatalf("expected the neighbouring event in the temporal window, got: %s", resultText(t, res))
	}
}
