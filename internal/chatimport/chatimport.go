// Package chatimport implements the chat-import adapter layer (spec §4.8
// second half, §6 ChatSourceAdapter): source-specific session discovery and
// parsing behind a fixed interface, flattened into events and appended to
// the chat event log so that "all ingest writes go through the event log".
package chatimport

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/ingest"
	"github.com/AprovanLabs/apprentice/internal/model"
)

// stateKey is the indexer_state key holding the {lastImportTime,
// importedSessions} cursor map, one entry per source id (spec §3).
const stateKey = "chat.import"

// Adapter is the ChatSourceAdapter interface (spec §6): source-specific
// session discovery and parsing, kept separate from the fixed import
// algorithm in Importer.Run.
type Adapter interface {
	SourceID() string
	SourceName() string
	DiscoverSessions() ([]string, error)
	ImportSession(path string) (*model.ChatSession, error)
	GetSessionModifiedTime(path string) (time.Time, error)
}

// Options configures the flattening step (spec §6 chatImport.* config keys).
type Options struct {
	ExtractToolCalls    bool
	ToolCallsAsEvents   bool
	MaxMessageLength    int
	MaxToolOutputLength int
}

// Importer runs the chat-import cycle across a set of adapters.
type Importer struct {
	store    *dbstore.Store
	adapters []Adapter
	chatLog  string
	opts     Options
}

// NewImporter builds an Importer appending flattened sessions to chatLogPath.
func NewImporter(store *dbstore.Store, chatLogPath string, opts Options, adapters ...Adapter) *Importer {
	return &Importer{store: store, adapters: adapters, chatLog: chatLogPath, opts: opts}
}

// Result tallies one import cycle across all adapters.
type Result struct {
	SessionsImported int
	EventsAppended   int
	Errors           []error
}

// Run executes one chat-import cycle: for every adapter, discover sessions,
// compare mtimes against the persisted cursor, import and flatten sessions
// whose mtime advanced, append the resulting events to the chat log, and
// record the new mtimes (spec §4.8).
func (im *Importer) Run(ctx context.Context) (*Result, error) {
	result := &Result{}
	cursor, err := im.loadCursor(ctx)
	if err != nil {
		return nil, err
	}
	if cursor.ImportedSessions == nil {
		cursor.ImportedSessions = map[string]time.Time{}
	}

	var allEvents []model.Event
	for _, adapter := range im.adapters {
		paths, err := adapter.DiscoverSessions()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("apprentice/chatimport: %s: discover: %w", adapter.SourceID(), err))
			continue
		}
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			mtime, err := adapter.GetSessionModifiedTime(path)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("apprentice/chatimport: %s: mtime %s: %w", adapter.SourceID(), path, err))
				continue
			}
			key := adapter.SourceID() + ":" + path
			if prior, ok := cursor.ImportedSessions[key]; ok && !mtime.After(prior) {
				continue
			}

			session, err := adapter.ImportSession(path)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("apprentice/chatimport: %s: import %s: %w", adapter.SourceID(), path, err))
				continue
			}
			if session == nil {
				continue
			}

			events := flatten(*session, im.opts)
			allEvents = append(allEvents, events...)
			result.SessionsImported++
			result.EventsAppended += len(events)
			cursor.ImportedSessions[key] = mtime
		}
	}

	sort.SliceStable(allEvents, func(i, j int) bool {
		return allEvents[i].Timestamp.Before(allEvents[j].Timestamp)
	})

	if len(allEvents) > 0 {
		if err := ingest.AppendEvents(im.chatLog, allEvents); err != nil {
			return result, err
		}
	}

	cursor.LastImportTime = time.Now().UTC()
	if err := im.saveCursor(ctx, cursor); err != nil {
		return result, err
	}
	return result, nil
}

// flatten turns a ChatSession into Events: one per message, ordered by
// session createdAt, optionally one per tool-call (spec §4.8).
func flatten(session model.ChatSession, opts Options) []model.Event {
	var events []model.Event
	for i, msg := range session.Messages {
		ts := ParseChatTimestamp(msg.Timestamp, session.CreatedAt)
		text := msg.Text
		if opts.MaxMessageLength > 0 && len(text) > opts.MaxMessageLength {
			text = text[:opts.MaxMessageLength]
		}

		md, _ := model.NewMetadata(map[string]any{
			"chat": map[string]any{
				"session_id": session.SessionID,
				"source_id":  session.SourceID,
				"role":       msg.Role,
				"index":      i,
			},
		})
		events = append(events, model.Event{
			ID:        ingest.NewEventID(ts),
			Timestamp: ts,
			Message:   text,
			Metadata:  md,
		})

		if !opts.ExtractToolCalls {
			continue
		}
		for j, call := range msg.ToolCalls {
			output := call.Output
			if opts.MaxToolOutputLength > 0 && len(output) > opts.MaxToolOutputLength {
				output = output[:opts.MaxToolOutputLength]
			}
			callTS := ParseChatTimestamp(call.Timestamp, ts)
			if !opts.ToolCallsAsEvents {
				continue
			}
			md, _ := model.NewMetadata(map[string]any{
				"chat": map[string]any{
					"session_id": session.SessionID,
					"source_id":  session.SourceID,
					"role":       "tool",
					"tool_name":  call.Name,
					"index":      i,
					"call_index": j,
				},
				"shell": map[string]any{
					"output_preview": output,
				},
			})
			events = append(events, model.Event{
				ID:        ingest.NewEventID(callTS),
				Timestamp: callTS,
				Message:   fmt.Sprintf("%s: %s", call.Name, output),
				Metadata:  md,
			})
		}
	}
	return events
}

// ParseChatTimestamp resolves the spec §9 open question: sources may encode
// a millisecond timestamp as a number or as a string carrying a leading "c"
// (seen from chat export tooling that tags client-generated ids). The "c"
// prefix is stripped before parsing; on any parse failure, or when the
// value is absent, the session's createdAt is used.
func ParseChatTimestamp(raw any, fallback time.Time) time.Time {
	millis, ok := parseChatMillis(raw)
	if !ok {
		return fallback
	}
	return time.UnixMilli(millis).UTC()
}

func parseChatMillis(raw any) (int64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		s := strings.TrimPrefix(v, "c")
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func (im *Importer) loadCursor(ctx context.Context) (model.ChatImportCursor, error) {
	var cursor model.ChatImportCursor
	raw, err := im.store.GetState(ctx, stateKey)
	if err != nil {
		return cursor, fmt.Errorf("apprentice/chatimport: load cursor: %w", err)
	}
	if raw == nil || raw.IsEmpty() {
		return cursor, nil
	}
	_ = json.Unmarshal(raw, &cursor)
	return cursor, nil
}

func (im *Importer) saveCursor(ctx context.Context, cursor model.ChatImportCursor) error {
	value, err := model.NewMetadata(cursor)
	if err != nil {
		return err
	}
	if err := im.store.SetState(ctx, stateKey, value); err != nil {
		return fmt.Errorf("apprentice/chatimport: save cursor: %w", err)
	}
	return nil
}
