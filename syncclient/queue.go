// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

// Package syncclient provides the client-resident side of offline sync: a
// crash-durable SQLite queue of pending mutations and the sync client that
// drains it against the network and reconciles the per-item outcomes.
package syncclient

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/NighttoDev/Smeraldo-Hotel/mutation"
	"github.com/NighttoDev/Smeraldo-Hotel/roomstatus"
)

// ErrStorageUnavailable signals that the durable medium could not be opened
// or read. Callers must treat this as transient, not as data loss.
var ErrStorageUnavailable = errors.New("offline queue storage unavailable")

// ErrInvalidTransition is returned when a room override is requested for a
// transition the status guard rejects.
var ErrInvalidTransition = errors.New("invalid room status transition")

// queueTimeLayout is fixed-width UTC with millisecond precision so that the
// stored text sorts lexicographically in chronological order.
const queueTimeLayout = "2006-01-02T15:04:05.000Z"

// Queue is the durable local queue of pending mutations. Items are owned by
// the queue until delivery succeeds or the mutation is abandoned.
type Queue struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenQueue opens (creating if needed) the durable queue at the given SQLite
// path. Pass ":memory:" for an ephemeral queue in tests.
func OpenQueue(path string, logger *slog.Logger) (*Queue, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enable WAL: %v", ErrStorageUnavailable, err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: set busy timeout: %v", ErrStorageUnavailable, err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS queue_items (
			id         TEXT PRIMARY KEY,
			action     TEXT NOT NULL,
			payload    TEXT NOT NULL,
			created_at TEXT NOT NULL,
			retries    INTEGER NOT NULL DEFAULT 0 CHECK (retries >= 0)
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create queue table: %v", ErrStorageUnavailable, err)
	}
	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_queue_items_created_at
		ON queue_items (created_at, id)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create queue index: %v", ErrStorageUnavailable, err)
	}

	return &Queue{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue validates a typed payload, assigns a fresh id, and persists the
// mutation. A zero `at` defaults to the current wall-clock time.
func (q *Queue) Enqueue(ctx context.Context, p mutation.Payload, at time.Time) (mutation.QueueItem, error) {
	raw, err := mutation.EncodePayload(p)
	if err != nil {
		return mutation.QueueItem{}, err
	}
	return q.enqueueRaw(ctx, p.Kind(), raw, at)
}

// EnqueueRaw validates a raw payload against the kind's schema and persists
// the mutation.
func (q *Queue) EnqueueRaw(ctx context.Context, kind mutation.Kind, raw json.RawMessage, at time.Time) (mutation.QueueItem, error) {
	if _, err := mutation.DecodePayload(kind, raw); err != nil {
		return mutation.QueueItem{}, err
	}
	return q.enqueueRaw(ctx, kind, raw, at)
}

// EnqueueRoomOverride checks the transition guard before queueing a status
// override. The guard runs again server-side immediately before commit, so a
// transition that is valid now can still be rejected later if the room moved
// on in the meantime.
func (q *Queue) EnqueueRoomOverride(ctx context.Context, roomID uuid.UUID, current, target roomstatus.Status, at time.Time) (mutation.QueueItem, error) {
	if !roomstatus.IsValidTransition(current, target) {
		return mutation.QueueItem{}, fmt.Errorf("%w: %s", ErrInvalidTransition, roomstatus.ExplainRejection(current, target))
	}
	return q.Enqueue(ctx, &mutation.RoomOverridePayload{RoomID: roomID, NewStatus: target}, at)
}

func (q *Queue) enqueueRaw(ctx context.Context, kind mutation.Kind, raw json.RawMessage, at time.Time) (mutation.QueueItem, error) {
	if at.IsZero() {
		at = time.Now()
	}
	item := mutation.QueueItem{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   raw,
		CreatedAt: at.UTC().Truncate(time.Millisecond),
		Retries:   0,
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO queue_items (id, action, payload, created_at, retries)
		VALUES (?, ?, ?, ?, ?)`,
		item.ID.String(), string(item.Kind), string(item.Payload),
		item.CreatedAt.Format(queueTimeLayout), item.Retries)
	if err != nil {
		return mutation.QueueItem{}, fmt.Errorf("%w: enqueue: %v", ErrStorageUnavailable, err)
	}

	q.logger.Debug("Enqueued offline mutation", "id", item.ID, "kind", item.Kind)
	return item, nil
}

// ListAll returns all pending items in stable (createdAt, id) ascending
// order, so that batches sent to the server are deterministic and
// replay-safe.
func (q *Queue) ListAll(ctx context.Context) ([]mutation.QueueItem, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, action, payload, created_at, retries
		FROM queue_items
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var items []mutation.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrStorageUnavailable, err)
	}

	// The stored text ordering already matches, but the tie-break contract
	// is on parsed values, so enforce it after scanning too.
	mutation.SortItems(items)
	return items, nil
}

// Count returns the current pending size, used to drive the pending-sync
// indicator.
func (q *Queue) Count(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrStorageUnavailable, err)
	}
	return n, nil
}

// IncrementRetry bumps an item's retry count by one and returns the updated
// item, or nil if the item no longer exists.
func (q *Queue) IncrementRetry(ctx context.Context, id uuid.UUID) (*mutation.QueueItem, error) {
	return q.updateRetries(ctx, id, `UPDATE queue_items SET retries = retries + 1 WHERE id = ?`)
}

// ResetRetry sets an item's retry count back to zero for manual "retry now"
// recovery, returning the updated item or nil if absent.
func (q *Queue) ResetRetry(ctx context.Context, id uuid.UUID) (*mutation.QueueItem, error) {
	return q.updateRetries(ctx, id, `UPDATE queue_items SET retries = 0 WHERE id = ?`)
}

func (q *Queue) updateRetries(ctx context.Context, id uuid.UUID, stmt string) (*mutation.QueueItem, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, stmt, id.String())
	if err != nil {
		return nil, fmt.Errorf("%w: update retries: %v", ErrStorageUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: update retries: %v", ErrStorageUnavailable, err)
	}
	if affected == 0 {
		return nil, nil
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, action, payload, created_at, retries
		FROM queue_items WHERE id = ?`, id.String())
	item, err := scanQueueItem(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrStorageUnavailable, err)
	}
	return &item, nil
}

// Remove deletes an item after confirmed delivery. Removing an absent id is
// a no-op.
func (q *Queue) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM queue_items WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("%w: remove: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Replace validates and stores an item under its existing id, overwriting
// any previous state.
func (q *Queue) Replace(ctx context.Context, item mutation.QueueItem) error {
	if err := mutation.ValidateItem(&item); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO queue_items (id, action, payload, created_at, retries)
		VALUES (?, ?, ?, ?, ?)`,
		item.ID.String(), string(item.Kind), string(item.Payload),
		item.CreatedAt.UTC().Truncate(time.Millisecond).Format(queueTimeLayout), item.Retries)
	if err != nil {
		return fmt.Errorf("%w: replace: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Clear removes every pending item.
func (q *Queue) Clear(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM queue_items`); err != nil {
		return fmt.Errorf("%w: clear: %v", ErrStorageUnavailable, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueItem(row rowScanner) (mutation.QueueItem, error) {
	var (
		idStr, kind, payload, createdAt string
		retries                         int
	)
	if err := row.Scan(&idStr, &kind, &payload, &createdAt, &retries); err != nil {
		return mutation.QueueItem{}, fmt.Errorf("%w: scan: %v", ErrStorageUnavailable, err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return mutation.QueueItem{}, fmt.Errorf("corrupt queue item id %q: %w", idStr, err)
	}
	ts, err := time.Parse(queueTimeLayout, createdAt)
	if err != nil {
		return mutation.QueueItem{}, fmt.Errorf("corrupt queue item timestamp %q: %w", createdAt, err)
	}

	return mutation.QueueItem{
		ID:        id,
		Kind:      mutation.Kind(kind),
		Payload:   json.RawMessage(payload),
		CreatedAt: ts,
		Retries:   retries,
	}, nil
}
