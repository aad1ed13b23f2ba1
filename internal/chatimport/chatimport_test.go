package chatimport_test

import (
	"context"
	"testing"
	"time"

	"github.com/AprovanLabs/apprentice/internal/chatimport"
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

// TestParseChatTimestamp covers spec §9's open question: chat timestamps
// may arrive "c"-prefixed, as a bare number, or absent entirely.
func TestParseChatTimestamp(t *testing.T) {
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	millis := int64(1700000000000)
	want := time.UnixMilli(millis).UTC()

	cases := []struct {
		name string
		raw  any
		want time.Time
	}{
		{"c-prefixed string", "c1700000000000", want},
		{"bare numeric string", "1700000000000", want},
		{"float64 json number", float64(millis), want},
		{"nil falls back", nil, fallback},
		{"garbage falls back", "not-a-timestamp", fallback},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := chatimport.ParseChatTimestamp(c.raw, fallback)
			if !got.Equal(c.want) {
				t.Fatalf("ParseChatTimestamp(%v) = %v, want %v", c.raw, got, c.want)
			}
		})
	}
}

type fakeAdapter struct {
	sourceID string
	sessions map[string]*model.ChatSession
	mtimes   map[string]time.Time
}

func (f *fakeAdapter) SourceID() string   { return f.sourceID }
func (f *fakeAdapter) SourceName() string { return f.sourceID }
func (f *fakeAdapter) DiscoverSessions() ([]string, error) {
	var paths []string
	for p := range f.sessions {
		paths = append(paths, p)
	}
	return paths, nil
}
func (f *fakeAdapter) ImportSession(path string) (*model.ChatSession, error) {
	return f.sessions[path], nil
}
func (f *fakeAdapter) GetSessionModifiedTime(path string) (time.Time, error) {
	return f.mtimes[path], nil
}

func TestImporter_FlattensAndAppendsInTimestampOrder(t *testing.T) {
	store := openTestStore(t)
	chatLog := t.TempDir() + "/chat.log"

	createdAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		sourceID: "test-source",
		sessions: map[string]*model.ChatSession{
			"/sessions/a.json": {
				SourceID:  "test-source",
				SessionID: "session-a",
				CreatedAt: createdAt,
				Messages: []model.ChatMessage{
					{Role: "user", Text: "what's the weather"},
					{Role: "assistant", Text: "sunny"},
				},
			},
		},
		mtimes: map[string]time.Time{"/sessions/a.json": createdAt},
	}

	importer := chatimport.NewImporter(store, chatLog, chatimport.Options{MaxMessageLength: 10000}, adapter)
	result, err := importer.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.SessionsImported != 1 {
		t.Fatalf("expected 1 session imported, got %d", result.SessionsImported)
	}
	if result.EventsAppended != 2 {
		t.Fatalf("expected 2 events appended, got %d", result.EventsAppended)
	}

	// A second run should re-discover the same session but skip it since its
	// mtime hasn't advanced past the persisted cursor.
	result, err = importer.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.SessionsImported != 0 {
		t.Fatalf("expected the unmodified session to be skipped on rerun, got %d imported", result.SessionsImported)
	}
}
