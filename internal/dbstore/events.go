package dbstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/AprovanLabs/apprentice/internal/model"
)

// InsertEventIgnore inserts an event; id collisions are no-ops (spec §3:
// "Events are append-only; existing ids are ignored on re-insert", and
// §4.8 step 5: "INSERT OR IGNORE INTO events").
func (s *Store) InsertEventIgnore(ctx context.Context, e model.Event) (inserted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO events(id, timestamp, message, metadata) VALUES (?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(time.RFC3339), e.Message, e.Metadata.String())
	if err != nil {
		return false, translateErr(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetEvent returns the event with id, or nil if not found.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, timestamp, message, metadata FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// GetEventsByIDs batch-fetches events by id.
func (s *Store) GetEventsByIDs(ctx context.Context, ids []string) ([]model.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx, `SELECT id, timestamp, message, metadata FROM events WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

// allowedEventOrderColumns whitelists the columns EventsByMetadataPath's
// orderBy may interpolate into the query (spec §4.1: "no SQL is built from
// user data except where explicitly escaped"). orderBy ultimately comes from
// the MCP apprentice_related tool's caller-supplied strategy, so it must
// never be spliced into the query unchecked.
var allowedEventOrderColumns = map[string]string{
	"timestamp": "timestamp",
	"id":        "id",
}

// EventsByMetadataPath returns events whose metadata at dotPath equals value,
// excluding excludeID, ordered by the given column/direction (spec §4.13
// grouped strategy).
func (s *Store) EventsByMetadataPath(ctx context.Context, dotPath, value, excludeID, orderBy, direction string, limit int) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orderCol := allowedEventOrderColumns[orderBy]
	if orderCol == "" {
		orderCol = "timestamp"
	}
	dir := "ASC"
	if direction == "desc" {
		dir = "DESC"
	}

	query := `SELECT id, timestamp, message, metadata FROM events
		WHERE json_extract(metadata, '$.' || ?) = ? AND id != ?
		ORDER BY ` + orderCol + ` ` + dir + ` LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, dotPath, value, excludeID, limit)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

// EventsInWindow returns events within the timestamp window [center-window,
// center+window], excluding excludeID, ordered by absolute time distance
// from center (spec §4.13 temporal fallback).
func (s *Store) EventsInWindow(ctx context.Context, center time.Time, windowSeconds int, excludeID string, limit int) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from := center.Add(-time.Duration(windowSeconds) * time.Second).UTC().Format(time.RFC3339)
	to := center.Add(time.Duration(windowSeconds) * time.Second).UTC().Format(time.RFC3339)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, message, metadata FROM events
		WHERE timestamp BETWEEN ? AND ? AND id != ?
		ORDER BY ABS(strftime('%s', timestamp) - strftime('%s', ?)) ASC
		LIMIT ?`, from, to, excludeID, center.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func scanEvent(row scanner) (*model.Event, error) {
	var e model.Event
	var timestamp, metadata string
	if err := row.Scan(&e.ID, &timestamp, &e.Message, &metadata); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translateErr(err)
	}
	e.Timestamp, _ = time.Parse(time.RFC3339, timestamp)
	e.Metadata = model.Metadata(metadata)
	return &e, nil
}
