package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// AchievementState is the persisted progress of one achievement.
type AchievementState struct {
	ID         string
	Progress   float64
	UnlockedAt *time.Time
	UpdatedAt  time.Time
}

// Unlocked reports whether the achievement has ever reached full progress.
func (a AchievementState) Unlocked() bool {
	return a.UnlockedAt != nil
}

// AchievementStates returns every stored achievement state keyed by id.
func (s *Store) AchievementStates(ctx context.Context) (map[string]AchievementState, error) {
	query, args, err := sq.Select("id", "progress", "unlocked_at", "updated_at").
		From("achievement_states").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("achievement states: build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("achievement states: %w", err)
	}
	defer rows.Close()

	out := make(map[string]AchievementState)
	for rows.Next() {
		st, err := scanAchievementState(rows)
		if err != nil {
			return nil, fmt.Errorf("achievement states: scan: %w", err)
		}
		out[st.ID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("achievement states: %w", err)
	}
	return out, nil
}

// RecordAchievementProgress stores progress for one achievement and, if
// progress has reached 1, stamps unlocked_at with now. The stamp is
// written only while unlocked_at is NULL, so it happens at most once per
// achievement no matter how often or how concurrently this is called.
//
// unlockedNow is true only for the call that performed the stamp.
// Achievement state is not record content, so the store version does not
// change.
func (s *Store) RecordAchievementProgress(ctx context.Context, id string, progress float64, now time.Time) (state AchievementState, unlockedNow bool, err error) {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AchievementState{}, false, fmt.Errorf("record achievement: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	nowMs := toMillis(now)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO achievement_states (id, progress, unlocked_at, updated_at)
		VALUES (?, ?, NULL, ?)
		ON CONFLICT(id) DO UPDATE SET progress = excluded.progress, updated_at = excluded.updated_at
	`, id, progress, nowMs); err != nil {
		return AchievementState{}, false, fmt.Errorf("record achievement: upsert: %w", err)
	}

	if progress >= 1 {
		res, err := tx.ExecContext(ctx, `
			UPDATE achievement_states SET unlocked_at = ?
			WHERE id = ? AND unlocked_at IS NULL
		`, nowMs, id)
		if err != nil {
			return AchievementState{}, false, fmt.Errorf("record achievement: unlock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return AchievementState{}, false, fmt.Errorf("record achievement: rows affected: %w", err)
		}
		unlockedNow = n > 0
	}

	state, err = scanAchievementState(tx.QueryRowContext(ctx,
		`SELECT id, progress, unlocked_at, updated_at FROM achievement_states WHERE id = ?`, id))
	if err != nil {
		return AchievementState{}, false, fmt.Errorf("record achievement: reload: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return AchievementState{}, false, fmt.Errorf("record achievement: commit: %w", err)
	}
	return state, unlockedNow, nil
}

func scanAchievementState(sc rowScanner) (AchievementState, error) {
	var (
		st         AchievementState
		unlockedAt sql.NullInt64
		updatedAt  int64
	)
	if err := sc.Scan(&st.ID, &st.Progress, &unlockedAt, &updatedAt); err != nil {
		return AchievementState{}, err
	}
	st.UpdatedAt = fromMillis(updatedAt)
	if unlockedAt.Valid {
		t := fromMillis(unlockedAt.Int64)
		st.UnlockedAt = &t
	}
	return st, nil
}
