// Package store provides SQLite-backed durable storage for tasting records.
//
// The store holds:
//   - tastings: one row per record, soft-delete flag and sync status inline
//   - store_meta: the monotonic store-version counter
//   - achievement_states: persisted achievement progress and unlock stamps
//
// # Invariants
//
// Single writer:
//   - Every mutation takes the write mutex and runs in one transaction
//   - The store version is bumped inside that same transaction, so a
//     reader never observes new content with an old version or the reverse
//
// Soft delete:
//   - Deleted records stay in the table and are excluded by default
//   - Physical removal happens only through Purge
//
// Deterministic reads:
//   - Record queries ORDER BY seq ASC (insertion order)
//   - Reads return copies; callers never hold references into the store
//
// Timestamps are stored as UTC unix milliseconds. updatedAt strictly
// increases across a record's mutations even if the wall clock stalls.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - Single open connection
package store
