package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/brewlog/internal/record"
)

// Filter narrows a List in SQL. Zero values mean "no constraint".
// Richer predicates (text search, flavors, sorting) belong to the query
// package and run over the returned records.
type Filter struct {
	IncludeDeleted bool
	Roastery       string
	Mode           record.Mode
	SyncStatus     record.SyncStatus
	From           time.Time
	To             time.Time
	Limit          uint64
}

// GetByID returns the live record with the given id.
// Returns *record.NotFoundError when id is absent or soft-deleted.
func (s *Store) GetByID(ctx context.Context, id string) (record.TastingRecord, error) {
	r, err := selectRecord(ctx, s.db, id)
	if err != nil {
		return record.TastingRecord{}, err
	}
	if r.IsDeleted {
		return record.TastingRecord{}, &record.NotFoundError{ID: id}
	}
	return r, nil
}

// List returns matching records in insertion order.
// Returns an empty slice (not nil) if nothing matches.
//
// The result is read in one statement, so it is a consistent snapshot:
// a concurrent write is either entirely visible or not at all.
func (s *Store) List(ctx context.Context, f Filter) ([]record.TastingRecord, error) {
	return listRecords(ctx, s.db, f)
}

// Snapshot returns the live records and the store version they belong to.
// Both are read in one transaction, so the version never lags the records.
func (s *Store) Snapshot(ctx context.Context) ([]record.TastingRecord, uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // Read-only; nothing to commit

	var version uint64
	if err := tx.QueryRowContext(ctx, `SELECT version FROM store_meta WHERE id = 1`).Scan(&version); err != nil {
		return nil, 0, fmt.Errorf("snapshot: version: %w", err)
	}
	recs, err := listRecords(ctx, tx, Filter{})
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot: %w", err)
	}
	return recs, version, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listRecords(ctx context.Context, q queryer, f Filter) ([]record.TastingRecord, error) {
	b := sq.Select(tastingColumns...).From("tastings").OrderBy("seq ASC")
	if !f.IncludeDeleted {
		b = b.Where(sq.Eq{"is_deleted": 0})
	}
	if f.Roastery != "" {
		b = b.Where(sq.Eq{"roastery": f.Roastery})
	}
	if f.Mode != "" {
		b = b.Where(sq.Eq{"mode": string(f.Mode)})
	}
	if f.SyncStatus != "" {
		b = b.Where(sq.Eq{"sync_status": string(f.SyncStatus)})
	}
	if !f.From.IsZero() {
		b = b.Where(sq.GtOrEq{"created_at": toMillis(f.From)})
	}
	if !f.To.IsZero() {
		b = b.Where(sq.LtOrEq{"created_at": toMillis(f.To)})
	}
	if f.Limit > 0 {
		b = b.Limit(f.Limit)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list: build query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	out := make([]record.TastingRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list: scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return out, nil
}

// All returns a lazy, restartable sequence over the store in insertion
// order. Each iteration loads a fresh snapshot when it starts; records
// are copies and may be retained or mutated by the caller.
//
// A read failure ends the sequence early and is logged. Callers that must
// distinguish "empty" from "failed" use List.
func (s *Store) All(ctx context.Context, includeDeleted bool) iter.Seq[record.TastingRecord] {
	return func(yield func(record.TastingRecord) bool) {
		recs, err := s.List(ctx, Filter{IncludeDeleted: includeDeleted})
		if err != nil {
			s.logger.Error("store iteration failed", "error", err)
			return
		}
		for _, r := range recs {
			if !yield(r) {
				return
			}
		}
	}
}

// Pending returns records awaiting a push, oldest first. Soft-deleted
// records are included so the deletion itself can be pushed.
func (s *Store) Pending(ctx context.Context) ([]record.TastingRecord, error) {
	recs, err := s.List(ctx, Filter{SyncStatus: record.SyncPending, IncludeDeleted: true})
	if err != nil {
		return nil, fmt.Errorf("pending: %w", err)
	}
	return recs, nil
}

// Count returns the number of live records.
func (s *Store) Count(ctx context.Context) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From("tastings").Where(sq.Eq{"is_deleted": 0}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("count: build query: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
