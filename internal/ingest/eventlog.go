package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/AprovanLabs/apprentice/internal/applog"
	"github.com/AprovanLabs/apprentice/internal/dbstore"
	"github.com/AprovanLabs/apprentice/internal/model"
	"github.com/AprovanLabs/apprentice/internal/redact"
)

// logCursorStateKey returns the indexer_state key under which a source's
// LogCursor is persisted (spec §4.8: "keyed by source in indexer_state").
func logCursorStateKey(source string) string { return "eventlog." + source }

// LogTailer implements the event log ingester (spec C8, §4.8): tailing an
// append-only JSON-lines file with a durable {lastProcessedLine,
// lastProcessedTimestamp} cursor, redacting, and inserting events.
type LogTailer struct {
	store *dbstore.Store
	log   *applog.Logger
}

// NewLogTailer builds a LogTailer writing warnings to log.
func NewLogTailer(store *dbstore.Store, log *applog.Logger) *LogTailer {
	return &LogTailer{store: store, log: log}
}

// TailResult tallies one pass over a log source.
type TailResult struct {
	Inserted int
	Skipped  int
}

// Process runs one pass over the JSON-lines file at path, keyed by source in
// indexer_state, per spec §4.8 steps 1-6.
func (t *LogTailer) Process(ctx context.Context, source, path string) (*TailResult, error) {
	result := &TailResult{}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("apprentice/ingest: open %s: %w", source, err)
	}
	defer f.Close()

	cursor, err := t.loadCursor(ctx, source)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNum := 0
	lastTimestamp := cursor.LastProcessedTimestamp
	for scanner.Scan() {
		lineNum++
		if lineNum <= cursor.LastProcessedLine {
			continue
		}
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}

		var e model.Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			if t.log != nil {
				t.log.Warnf("apprentice/ingest: %s line %d: parse failed: %v", source, lineNum, err)
			}
			result.Skipped++
			continue
		}

		e = redactEvent(e)
		if e.ID == "" {
			e.ID = NewEventID(e.Timestamp)
		}

		inserted, err := t.store.InsertEventIgnore(ctx, e)
		if err != nil {
			return nil, fmt.Errorf("apprentice/ingest: %s line %d: insert: %w", source, lineNum, err)
		}
		if inserted {
			result.Inserted++
		}
		if e.Timestamp.After(lastTimestamp) {
			lastTimestamp = e.Timestamp
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("apprentice/ingest: %s: scan: %w", source, err)
	}

	if lineNum > cursor.LastProcessedLine {
		cursor.LastProcessedLine = lineNum
		cursor.LastProcessedTimestamp = lastTimestamp
		if err := t.saveCursor(ctx, source, cursor); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// redactEvent returns a copy of e with the message and
// metadata.shell.output_preview fields redacted (spec §4.8 step 4).
func redactEvent(e model.Event) model.Event {
	e.Message = redact.Redact(e.Message)
	if preview := e.Metadata.GetString("shell.output_preview"); preview != "" {
		if md, err := e.Metadata.Set("shell.output_preview", redact.Redact(preview)); err == nil {
			e.Metadata = md
		}
	}
	return e
}

func (t *LogTailer) loadCursor(ctx context.Context, source string) (model.LogCursor, error) {
	var cursor model.LogCursor
	raw, err := t.store.GetState(ctx, logCursorStateKey(source))
	if err != nil {
		return cursor, fmt.Errorf("apprentice/ingest: load cursor %s: %w", source, err)
	}
	if raw == nil || raw.IsEmpty() {
		return cursor, nil
	}
	_ = json.Unmarshal(raw, &cursor)
	return cursor, nil
}

func (t *LogTailer) saveCursor(ctx context.Context, source string, cursor model.LogCursor) error {
	value, err := model.NewMetadata(cursor)
	if err != nil {
		return err
	}
	if err := t.store.SetState(ctx, logCursorStateKey(source), value); err != nil {
		return fmt.Errorf("apprentice/ingest: save cursor %s: %w", source, err)
	}
	return nil
}

// AppendEvent appends a single JSON-lines event to the log file at path,
// creating it and parent directories if necessary. Used by the chat-import
// adapter layer to route imported messages through the event log (spec
// §4.8: "all ingest writes go through the event log").
func AppendEvents(path string, events []model.Event) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("apprentice/ingest: open %s for append: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("apprentice/ingest: marshal event: %w", err)
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}
