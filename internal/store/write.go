package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/brewlog/internal/record"
)

// Create validates the draft, assigns identity, timestamps and sync
// status, and persists the record. The returned value is the stored copy.
//
// Validation failures return *record.ValidationError and write nothing.
func (s *Store) Create(ctx context.Context, d record.Draft) (record.TastingRecord, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var created record.TastingRecord
	err := s.inTx(ctx, "create", func(tx *sql.Tx) (bool, error) {
		r, err := d.Build()
		if err != nil {
			return false, err
		}

		now := s.now()
		r.ID = s.ids.Generate()
		r.CreatedAt = now
		r.UpdatedAt = now
		r.SyncStatus = s.initialSyncStatus()
		if r.ContentHash, err = record.ContentHash(r); err != nil {
			return false, err
		}

		if err := insertRecord(ctx, tx, r); err != nil {
			return false, fmt.Errorf("create: %w", err)
		}
		created = r
		return true, nil
	})
	if err != nil {
		return record.TastingRecord{}, err
	}
	return created.Clone(), nil
}

// Update merges patch into the live record with the given id,
// re-validates the merged result and commits it with a bumped updatedAt.
//
// Returns *record.NotFoundError when id is absent or soft-deleted.
func (s *Store) Update(ctx context.Context, id string, patch record.Patch) (record.TastingRecord, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var updated record.TastingRecord
	err := s.inTx(ctx, "update", func(tx *sql.Tx) (bool, error) {
		cur, err := selectRecord(ctx, tx, id)
		if err != nil {
			return false, err
		}
		if cur.IsDeleted {
			return false, &record.NotFoundError{ID: id}
		}

		merged, err := patch.Apply(cur)
		if err != nil {
			return false, err
		}
		merged.UpdatedAt = s.bump(cur.UpdatedAt)
		merged.SyncStatus = resyncStatus(cur.SyncStatus)
		if merged.ContentHash, err = record.ContentHash(merged); err != nil {
			return false, err
		}

		if err := updateRecord(ctx, tx, merged); err != nil {
			return false, fmt.Errorf("update: %w", err)
		}
		updated = merged
		return true, nil
	})
	if err != nil {
		return record.TastingRecord{}, err
	}
	return updated.Clone(), nil
}

// SoftDelete marks the record deleted. Deleting an already-deleted record
// is a no-op and does not bump the store version.
//
// Returns *record.NotFoundError only when id never existed (or was purged).
func (s *Store) SoftDelete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.inTx(ctx, "soft_delete", func(tx *sql.Tx) (bool, error) {
		return s.setDeleted(ctx, tx, id, true)
	})
}

// Restore undoes a soft delete. Restoring a live record is a no-op.
func (s *Store) Restore(ctx context.Context, id string) (record.TastingRecord, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var restored record.TastingRecord
	err := s.inTx(ctx, "restore", func(tx *sql.Tx) (bool, error) {
		changed, err := s.setDeleted(ctx, tx, id, false)
		if err != nil {
			return false, err
		}
		if restored, err = selectRecord(ctx, tx, id); err != nil {
			return false, err
		}
		return changed, nil
	})
	if err != nil {
		return record.TastingRecord{}, err
	}
	return restored, nil
}

// Purge physically removes soft-deleted records whose last mutation is
// older than cutoff. Live records are never touched. Returns the number of
// records removed.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var removed int64
	err := s.inTx(ctx, "purge", func(tx *sql.Tx) (bool, error) {
		query, args, err := sq.Delete("tastings").
			Where(sq.Eq{"is_deleted": 1}).
			Where(sq.Lt{"updated_at": toMillis(cutoff)}).
			ToSql()
		if err != nil {
			return false, fmt.Errorf("purge: build query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return false, fmt.Errorf("purge: %w", err)
		}
		if removed, err = res.RowsAffected(); err != nil {
			return false, fmt.Errorf("purge: rows affected: %w", err)
		}
		return removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("purged soft-deleted records", "count", removed, "cutoff", cutoff)
	}
	return removed, nil
}

// SetSyncStatus is the sync collaborator's only write. It applies only if
// the record's updatedAt still equals observedUpdatedAt, so a push that
// raced a local edit never marks the newer content as synced.
//
// A stale observation returns *record.ConflictError and writes nothing.
// On success applied is true and the store version is bumped; updatedAt
// is not, since no content changed.
func (s *Store) SetSyncStatus(ctx context.Context, id string, status record.SyncStatus, observedUpdatedAt time.Time) (bool, error) {
	if !status.Valid() {
		return false, record.NewValidationError("sync_status", fmt.Sprintf("unknown status %q", status))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var applied bool
	err := s.inTx(ctx, "set_sync_status", func(tx *sql.Tx) (bool, error) {
		query, args, err := sq.Update("tastings").
			Set("sync_status", string(status)).
			Where(sq.Eq{"id": id, "updated_at": toMillis(observedUpdatedAt)}).
			ToSql()
		if err != nil {
			return false, fmt.Errorf("set sync status: build query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return false, fmt.Errorf("set sync status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("set sync status: rows affected: %w", err)
		}
		if n == 0 {
			if _, err := selectRecord(ctx, tx, id); err != nil {
				return false, err
			}
			return false, &record.ConflictError{ID: id}
		}
		applied = true
		return true, nil
	})
	return applied, err
}

// setDeleted flips the soft-delete flag. It reports whether anything
// changed.
func (s *Store) setDeleted(ctx context.Context, tx *sql.Tx, id string, deleted bool) (bool, error) {
	cur, err := selectRecord(ctx, tx, id)
	if err != nil {
		return false, err
	}
	if cur.IsDeleted == deleted {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tastings
		SET is_deleted = ?, updated_at = ?, sync_status = ?
		WHERE id = ?
	`,
		boolToInt(deleted),
		toMillis(s.bump(cur.UpdatedAt)),
		string(resyncStatus(cur.SyncStatus)),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("set deleted: %w", err)
	}
	return true, nil
}

// bump returns the time for a new updatedAt. It is strictly after prev
// even if the wall clock has not advanced, so updatedAt alone orders a
// record's mutations.
func (s *Store) bump(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}

// resyncStatus is the status after a local mutation: local-only records
// stay local, everything else needs another push.
func resyncStatus(cur record.SyncStatus) record.SyncStatus {
	if cur == record.SyncLocalOnly {
		return record.SyncLocalOnly
	}
	return record.SyncPending
}

func insertRecord(ctx context.Context, tx *sql.Tx, r record.TastingRecord) error {
	values, err := recordValues(r)
	if err != nil {
		return err
	}
	query, args, err := sq.Insert("tastings").Columns(tastingColumns...).Values(values...).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return nil
}

func updateRecord(ctx context.Context, tx *sql.Tx, r record.TastingRecord) error {
	values, err := recordValues(r)
	if err != nil {
		return err
	}
	b := sq.Update("tastings").Where(sq.Eq{"id": r.ID})
	// id and created_at are immutable.
	for i, col := range tastingColumns {
		if col == "id" || col == "created_at" {
			continue
		}
		b = b.Set(col, values[i])
	}
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return nil
}

// selectRecord loads one record, deleted or not, inside tx.
func selectRecord(ctx context.Context, q queryRower, id string) (record.TastingRecord, error) {
	r, err := scanRecord(q.QueryRowContext(ctx,
		"SELECT "+strings.Join(tastingColumns, ", ")+" FROM tastings WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return record.TastingRecord{}, &record.NotFoundError{ID: id}
	}
	if err != nil {
		return record.TastingRecord{}, fmt.Errorf("select record %s: %w", id, err)
	}
	return r, nil
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
