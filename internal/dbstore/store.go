// Package dbstore is the SQLite-backed content-addressed asset store (spec
// C1 Store, C2 Content store): schema + migrations, WAL connection
// management, and CRUD for every entity in spec §3. Grounded on
// matthewjhunter/memstore's sqlite.go — same versioned-migration pattern,
// same sync.RWMutex-guarded *sql.DB, same scanner-interface row helpers.
package dbstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AprovanLabs/apprentice/internal/apperr"
	_ "modernc.org/sqlite"
)

// schemaVersion is the current migration target. Bump and add a migrateVN
// function below when the schema changes.
const schemaVersion = 1

// Store is a single SQLite database file holding every entity in spec §3.
// The connection is guarded by mu the way memstore guards SQLiteStore: SQLite
// itself serialises writers under WAL, but higher-level read-modify-write
// sequences (eviction, supersession-style upserts) take the write lock to
// avoid racing each other.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open creates the parent directory if needed, opens the database with WAL
// journal mode and a 30s busy timeout, enables foreign keys, and runs
// migrations idempotently (spec §4.1).
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, apperr.Fatalf("dbstore: create db directory %s: %v", dir, err)
			}
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(30000)&_pragma=foreign_keys(on)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperr.Fatalf("dbstore: open %s: %v", path, err)
	}
	// WAL correctness wants a single writer connection, matching memstore-mcp's
	// db.SetMaxOpenConns(1): the store's own mutex substitutes for pool
	// serialisation.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, apperr.Fatalf("dbstore: migrate: %v", err)
	}
	return s, nil
}

// DB exposes the underlying connection for components (search, related) that
// need to build their own filtered queries against the schema directly.
func (s *Store) DB() *sql.DB { return s.db }

// Execute runs a single parameterised statement as its own transaction.
func (s *Store) Execute(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr(err)
	}
	return res, nil
}

// Stmt is one statement in a Batch call.
type Stmt struct {
	SQL  string
	Args []any
}

// Batch runs every statement inside a single BEGIN…COMMIT transaction (spec
// §5: "Multi-statement logical operations... use SQLite's BEGIN…COMMIT via
// the batch primitive").
func (s *Store) Batch(ctx context.Context, stmts []Stmt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateErr(err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
			tx.Rollback()
			return translateErr(err)
		}
	}
	return tx.Commit()
}

// CheckpointMode is the SQLite WAL checkpoint mode.
type CheckpointMode string

const (
	CheckpointPassive  CheckpointMode = "PASSIVE"
	CheckpointTruncate CheckpointMode = "TRUNCATE"
)

// Checkpoint runs wal_checkpoint(mode) and returns the number of pages
// written, matching the teacher-derived pattern of logging pages written
// only if non-zero (spec §4.14).
func (s *Store) Checkpoint(ctx context.Context, mode CheckpointMode) (pagesWritten int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode))
	var busy, log, checkpointed int
	if err := row.Scan(&busy, &log, &checkpointed); err != nil {
		return 0, translateErr(err)
	}
	return checkpointed, nil
}

// Close runs a final TRUNCATE checkpoint (spec §4.1: "A checkpoint is run at
// TRUNCATE level on clean shutdown") and closes the connection.
func (s *Store) Close() error {
	_, _ = s.Checkpoint(context.Background(), CheckpointTruncate)
	return s.db.Close()
}

// Path returns the database file path Open was called with.
func (s *Store) Path() string { return s.path }

// Now is overridable in tests; production code always uses time.Now().
var Now = time.Now

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return apperr.NotFoundf("row")
	}
	// modernc.org/sqlite surfaces SQLITE_BUSY as a plain error string; the
	// busy_timeout pragma absorbs contention up to 30s, so anything that
	// still reaches here past that window is genuinely transient.
	return err
}

// scanner abstracts *sql.Row / *sql.Rows so row-mapping helpers work for
// both Get-style and List-style queries (mirrors memstore's scanner interface).
type scanner interface {
	Scan(dest ...any) error
}
