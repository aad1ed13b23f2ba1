package dbstore

import (
	"database/sql"
	"fmt"
)

// migrate tracks applied versions in an apprentice_schema_version table,
// distinct from PRAGMA user_version, mirroring memstore's memstore_version
// bookkeeping table.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS apprentice_schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("dbstore: create version table: %w", err)
	}

	var current int
	row := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM apprentice_schema_version`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("dbstore: read schema version: %w", err)
	}

	migrations := []func(*sql.Tx) error{
		migrateV1,
	}

	for i := current; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if err := migrations[i](tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("dbstore: migration v%d: %w", i+1, err)
		}
		if _, err := tx.Exec(`INSERT INTO apprentice_schema_version(version) VALUES (?)`, i+1); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// migrateV1 creates every base table, FTS shadow, and sync trigger (spec §3).
// Vector index creation is attempted but its failure is swallowed (spec
// §4.1: "attempt to create vector indexes (soft failure permitted)") —
// modernc.org/sqlite has no native vector index type, so this is a no-op
// extension point kept for parity with the spec's described behaviour.
func migrateV1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE contexts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			path TEXT NOT NULL UNIQUE,
			mounts TEXT NOT NULL DEFAULT '[]',
			enabled INTEGER NOT NULL DEFAULT 1,
			include_patterns TEXT NOT NULL DEFAULT '[]',
			exclude_patterns TEXT NOT NULL DEFAULT '[]',
			registered_at TEXT NOT NULL,
			last_indexed_at TEXT,
			version_provider_type TEXT
		)`,

		`CREATE TABLE assets (
			id TEXT NOT NULL UNIQUE,
			context_id TEXT NOT NULL,
			key TEXT NOT NULL,
			extension TEXT,
			content_hash TEXT NOT NULL DEFAULT '',
			indexed_at TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			head_version_ref TEXT,
			UNIQUE(context_id, key)
		)`,
		`CREATE VIRTUAL TABLE assets_fts USING fts5(
			id, key, metadata,
			content='assets', content_rowid='rowid'
		)`,
		`CREATE TRIGGER assets_ai AFTER INSERT ON assets BEGIN
			INSERT INTO assets_fts(rowid, id, key, metadata) VALUES (new.rowid, new.id, new.key, new.metadata);
		END`,
		`CREATE TRIGGER assets_ad AFTER DELETE ON assets BEGIN
			INSERT INTO assets_fts(assets_fts, rowid, id, key, metadata) VALUES ('delete', old.rowid, old.id, old.key, old.metadata);
		END`,
		`CREATE TRIGGER assets_au AFTER UPDATE ON assets BEGIN
			INSERT INTO assets_fts(assets_fts, rowid, id, key, metadata) VALUES ('delete', old.rowid, old.id, old.key, old.metadata);
			INSERT INTO assets_fts(rowid, id, key, metadata) VALUES (new.rowid, new.id, new.key, new.metadata);
		END`,

		`CREATE TABLE events (
			id TEXT NOT NULL UNIQUE,
			timestamp TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX idx_events_timestamp ON events(timestamp)`,
		`CREATE VIRTUAL TABLE events_fts USING fts5(
			id, message, metadata,
			content='events', content_rowid='rowid'
		)`,
		`CREATE TRIGGER events_ai AFTER INSERT ON events BEGIN
			INSERT INTO events_fts(rowid, id, message, metadata) VALUES (new.rowid, new.id, new.message, new.metadata);
		END`,
		`CREATE TRIGGER events_ad AFTER DELETE ON events BEGIN
			INSERT INTO events_fts(events_fts, rowid, id, message, metadata) VALUES ('delete', old.rowid, old.id, old.message, old.metadata);
		END`,
		`CREATE TRIGGER events_au AFTER UPDATE ON events BEGIN
			INSERT INTO events_fts(events_fts, rowid, id, message, metadata) VALUES ('delete', old.rowid, old.id, old.message, old.metadata);
			INSERT INTO events_fts(rowid, id, message, metadata) VALUES (new.rowid, new.id, new.message, new.metadata);
		END`,

		`CREATE TABLE content_store (
			content_hash TEXT NOT NULL UNIQUE,
			content BLOB,
			size_bytes INTEGER NOT NULL,
			last_accessed_at TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE VIRTUAL TABLE content_store_fts USING fts5(
			content_hash, content,
			content='content_store', content_rowid='rowid'
		)`,
		`CREATE TRIGGER content_store_ai AFTER INSERT ON content_store BEGIN
			INSERT INTO content_store_fts(rowid, content_hash, content) VALUES (new.rowid, new.content_hash, new.content);
		END`,
		`CREATE TRIGGER content_store_ad AFTER DELETE ON content_store BEGIN
			INSERT INTO content_store_fts(content_store_fts, rowid, content_hash, content) VALUES ('delete', old.rowid, old.content_hash, old.content);
		END`,
		`CREATE TRIGGER content_store_au AFTER UPDATE ON content_store BEGIN
			INSERT INTO content_store_fts(content_store_fts, rowid, content_hash, content) VALUES ('delete', old.rowid, old.content_hash, old.content);
			INSERT INTO content_store_fts(rowid, content_hash, content) VALUES (new.rowid, new.content_hash, new.content);
		END`,

		`CREATE TABLE content_refs (
			content_hash TEXT NOT NULL,
			context_id TEXT NOT NULL,
			is_head INTEGER NOT NULL DEFAULT 0,
			version_ref_id TEXT
		)`,
		`CREATE UNIQUE INDEX idx_content_refs_head ON content_refs(content_hash, context_id) WHERE is_head = 1`,
		`CREATE UNIQUE INDEX idx_content_refs_versioned ON content_refs(content_hash, context_id, version_ref_id) WHERE version_ref_id IS NOT NULL`,
		`CREATE INDEX idx_content_refs_hash ON content_refs(content_hash)`,

		`CREATE TABLE version_refs (
			id TEXT NOT NULL,
			context_id TEXT NOT NULL,
			ref_type TEXT NOT NULL,
			name TEXT NOT NULL,
			parent_ids TEXT NOT NULL DEFAULT '[]',
			timestamp TEXT NOT NULL,
			message TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY (context_id, id)
		)`,

		`CREATE TABLE asset_versions (
			context_id TEXT NOT NULL,
			key TEXT NOT NULL,
			version_ref_id TEXT NOT NULL,
			content_hash TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			renamed_from TEXT,
			PRIMARY KEY (context_id, key, version_ref_id)
		)`,

		`CREATE TABLE version_providers (
			context_id TEXT PRIMARY KEY,
			provider_type TEXT NOT NULL,
			last_sync_ref TEXT,
			last_sync_at TEXT
		)`,

		`CREATE TABLE asset_embeddings (
			asset_id TEXT PRIMARY KEY,
			embedding BLOB NOT NULL,
			model TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE event_embeddings (
			event_id TEXT PRIMARY KEY,
			embedding BLOB NOT NULL,
			model TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE indexer_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,

		`CREATE TABLE embedding_meta (
			model TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}
