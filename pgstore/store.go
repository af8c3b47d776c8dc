// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

// Package pgstore is the PostgreSQL implementation of the reconciler's
// storage layer.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NighttoDev/Smeraldo-Hotel/mutation"
	"github.com/NighttoDev/Smeraldo-Hotel/notify"
	"github.com/NighttoDev/Smeraldo-Hotel/roomstatus"
	"github.com/NighttoDev/Smeraldo-Hotel/syncserver"
)

// Store implements syncserver.Store on top of a pgx connection pool.
type Store struct {
	pool     *pgxpool.Pool
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewStore creates the store and ensures the schema exists. A nil notifier
// disables low-stock alerts.
func NewStore(ctx context.Context, pool *pgxpool.Pool, notifier notify.Notifier, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{pool: pool, notifier: notifier, logger: logger}
	if err := s.initializeSchema(ctx); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// Begin starts a per-item transaction.
func (s *Store) Begin(ctx context.Context) (syncserver.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &storeTx{store: s, tx: tx}, nil
}

// storeTx wraps one pgx transaction. Low-stock events observed inside the
// transaction are held back and emitted only after a successful commit.
type storeTx struct {
	store    *Store
	tx       pgx.Tx
	lowStock []notify.LowStockEvent
}

func (t *storeTx) GetRoom(ctx context.Context, id uuid.UUID) (*syncserver.Room, error) {
	var room syncserver.Room
	err := t.tx.QueryRow(ctx, `
		SELECT id, number, status, updated_at
		FROM rooms WHERE id = $1`, id).
		Scan(&room.ID, &room.Number, &room.Status, &room.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", id, err)
	}
	return &room, nil
}

func (t *storeTx) UpdateRoomStatus(ctx context.Context, id uuid.UUID, status roomstatus.Status) (*syncserver.Room, error) {
	var room syncserver.Room
	err := t.tx.QueryRow(ctx, `
		UPDATE rooms SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, number, status, updated_at`, id, status).
		Scan(&room.ID, &room.Number, &room.Status, &room.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update room %s status: %w", id, err)
	}
	return &room, nil
}

func (t *storeTx) GetAttendance(ctx context.Context, staffID uuid.UUID, logDate string) (*syncserver.AttendanceLog, error) {
	var log syncserver.AttendanceLog
	err := t.tx.QueryRow(ctx, `
		SELECT staff_id, to_char(log_date, 'YYYY-MM-DD'), shift_value, logged_by, updated_at
		FROM attendance_logs
		WHERE staff_id = $1 AND log_date = $2`, staffID, logDate).
		Scan(&log.StaffID, &log.LogDate, &log.ShiftValue, &log.LoggedBy, &log.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance %s/%s: %w", staffID, logDate, err)
	}
	return &log, nil
}

func (t *storeTx) UpsertAttendance(ctx context.Context, log syncserver.AttendanceLog) (*syncserver.AttendanceLog, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO attendance_logs (staff_id, log_date, shift_value, logged_by, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (staff_id, log_date) DO UPDATE
		SET shift_value = EXCLUDED.shift_value,
		    logged_by   = EXCLUDED.logged_by,
		    updated_at  = now()
		RETURNING staff_id, to_char(log_date, 'YYYY-MM-DD'), shift_value, logged_by, updated_at`,
		log.StaffID, log.LogDate, log.ShiftValue, log.LoggedBy).
		Scan(&log.StaffID, &log.LogDate, &log.ShiftValue, &log.LoggedBy, &log.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert attendance %s/%s: %w", log.StaffID, log.LogDate, err)
	}
	return &log, nil
}

func (t *storeTx) StockIn(ctx context.Context, m syncserver.StockMovement) (*syncserver.InventoryItem, error) {
	item, err := t.lockItem(ctx, m.ItemID)
	if err != nil {
		return nil, err
	}
	return t.applyMovement(ctx, item, m, "in", item.CurrentStock+m.Quantity)
}

func (t *storeTx) StockOut(ctx context.Context, m syncserver.StockMovement) (*syncserver.InventoryItem, error) {
	item, err := t.lockItem(ctx, m.ItemID)
	if err != nil {
		return nil, err
	}
	if item.CurrentStock < m.Quantity {
		return nil, fmt.Errorf("%w: item %s has %d, requested %d",
			syncserver.ErrInsufficientStock, m.ItemID, item.CurrentStock, m.Quantity)
	}

	newStock := item.CurrentStock - m.Quantity
	updated, err := t.applyMovement(ctx, item, m, "out", newStock)
	if err != nil {
		return nil, err
	}

	// Threshold crossing fires a single alert, after commit.
	if item.CurrentStock > item.LowStockThreshold && newStock <= item.LowStockThreshold {
		t.lowStock = append(t.lowStock, notify.LowStockEvent{
			ItemID:       item.ID,
			Name:         item.Name,
			CurrentStock: newStock,
			Threshold:    item.LowStockThreshold,
			Unit:         item.Unit,
		})
	}
	return updated, nil
}

// lockItem reads the inventory row with FOR UPDATE so concurrent stock
// movements on the same item serialize.
func (t *storeTx) lockItem(ctx context.Context, id uuid.UUID) (*syncserver.InventoryItem, error) {
	var item syncserver.InventoryItem
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, current_stock, low_stock_threshold, unit, updated_at
		FROM inventory_items WHERE id = $1
		FOR UPDATE`, id).
		Scan(&item.ID, &item.Name, &item.CurrentStock, &item.LowStockThreshold, &item.Unit, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, syncserver.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock inventory item %s: %w", id, err)
	}
	return &item, nil
}

func (t *storeTx) applyMovement(ctx context.Context, item *syncserver.InventoryItem, m syncserver.StockMovement, direction string, newStock int) (*syncserver.InventoryItem, error) {
	var recipient *string
	if m.RecipientName != "" {
		recipient = &m.RecipientName
	}
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO stock_movements (item_id, quantity, direction, recipient_name, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ItemID, m.Quantity, direction, recipient, m.Notes, m.CreatedBy); err != nil {
		return nil, fmt.Errorf("record stock movement for %s: %w", m.ItemID, err)
	}

	updated := *item
	err := t.tx.QueryRow(ctx, `
		UPDATE inventory_items SET current_stock = $2, updated_at = now()
		WHERE id = $1
		RETURNING current_stock, updated_at`, m.ItemID, newStock).
		Scan(&updated.CurrentStock, &updated.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update stock for %s: %w", m.ItemID, err)
	}
	return &updated, nil
}

func (t *storeTx) GetReceipt(ctx context.Context, mutationID uuid.UUID) (*syncserver.Receipt, error) {
	var receipt syncserver.Receipt
	var action string
	err := t.tx.QueryRow(ctx, `
		SELECT mutation_id, action, ok, error_code, conflict, processed_by, processed_at
		FROM offline_sync_receipts WHERE mutation_id = $1`, mutationID).
		Scan(&receipt.MutationID, &action, &receipt.OK, &receipt.Error,
			&receipt.Conflict, &receipt.ProcessedBy, &receipt.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get receipt %s: %w", mutationID, err)
	}
	receipt.Kind = mutation.Kind(action)
	return &receipt, nil
}

func (t *storeTx) PutReceipt(ctx context.Context, r *syncserver.Receipt) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO offline_sync_receipts
			(mutation_id, action, ok, error_code, conflict, processed_by, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.MutationID, string(r.Kind), r.OK, r.Error, r.Conflict, r.ProcessedBy, r.ProcessedAt)
	if err != nil {
		return fmt.Errorf("put receipt %s: %w", r.MutationID, err)
	}
	return nil
}

func (t *storeTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return err
	}
	if t.store.notifier != nil && len(t.lowStock) > 0 {
		events := t.lowStock
		t.lowStock = nil
		// Fire-and-forget; alerting must not slow down sync.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			for _, event := range events {
				t.store.notifier.NotifyLowStock(ctx, event)
			}
		}()
	}
	return nil
}

func (t *storeTx) Rollback(ctx context.Context) error {
	t.lowStock = nil
	return t.tx.Rollback(ctx)
}
