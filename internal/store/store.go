package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/brewlog/internal/metrics"
	"github.com/roach88/brewlog/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial tastings, store_meta and achievement_states tables
// 2 - Index on tastings(sync_status) for the pending-sync scan
const currentSchemaVersion = 2

// Store is the single source of truth for tasting records.
// Uses SQLite with WAL mode; all writes go through one mutex and one
// transaction each.
type Store struct {
	db *sql.DB

	writeMu sync.Mutex
	version *versionCounter

	clock       Clock
	ids         IDGenerator
	syncEnabled bool
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// Open is idempotent: reopening an existing file resumes its store version.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:     db,
		clock:  systemClock{},
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var version uint64
	if err := db.QueryRow(`SELECT version FROM store_meta WHERE id = 1`).Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load store version: %w", err)
	}
	s.version = newVersionCounter(version)
	s.metrics.SetStoreVersion(version)

	return s, nil
}

// Close closes the database connection and every version watcher.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.version.closeAll()
	return s.db.Close()
}

// Version returns the current store version. It increases by exactly one
// per successful mutation and never decreases.
func (s *Store) Version() uint64 {
	return s.version.current()
}

// Watch subscribes to store-version changes. The channel carries the
// latest version and coalesces bursts: a slow reader sees the newest value,
// not every intermediate one. Call cancel to unsubscribe.
func (s *Store) Watch() (<-chan uint64, func()) {
	return s.version.watch()
}

// now returns the store clock's time at the millisecond precision used on disk.
func (s *Store) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}

// initialSyncStatus is the status assigned to new records.
func (s *Store) initialSyncStatus() record.SyncStatus {
	if s.syncEnabled {
		return record.SyncPending
	}
	return record.SyncLocalOnly
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV2 adds the index used by Pending.
func migrateToV2(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tastings_sync_status
		ON tastings(sync_status)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// inTx runs fn inside a write transaction. When fn reports a change, the
// store version is bumped in the same transaction and published after
// commit. Either everything applies or nothing does.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) (changed bool, err error)) (err error) {
	defer func() { s.metrics.ObserveMutation(op, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback() // No-op if committed

	changed, err := fn(tx)
	if err != nil {
		return err
	}
	if !changed {
		return tx.Commit()
	}

	var version uint64
	if err := tx.QueryRowContext(ctx,
		`UPDATE store_meta SET version = version + 1 WHERE id = 1 RETURNING version`,
	).Scan(&version); err != nil {
		return fmt.Errorf("%s: bump version: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	s.version.publish(version)
	s.metrics.SetStoreVersion(version)
	s.logger.Debug("store mutation", "op", op, "version", version)
	return nil
}
