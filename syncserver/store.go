// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

package syncserver

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/NighttoDev/Smeraldo-Hotel/roomstatus"
)

// Domain error sentinels reported by Store implementations.
var (
	// ErrItemNotFound means the referenced inventory item does not exist.
	ErrItemNotFound = errors.New("inventory item not found")
	// ErrInsufficientStock means a stock-out would take stock negative.
	// The invariant is re-validated at apply time, not just at enqueue
	// time, because other mutations may have consumed the stock since.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Store opens per-item transactions against the storage layer. Each queue
// item is applied inside its own transaction; there is no cross-item
// atomicity.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx combines the domain operations with the receipt store so that the
// receipt write lands in the same transactional scope as the domain
// operation's persisted result.
type Tx interface {
	// GetRoom returns the room or (nil, nil) when absent.
	GetRoom(ctx context.Context, id uuid.UUID) (*Room, error)
	// UpdateRoomStatus applies a status change and returns the post-state
	// including its refreshed UpdatedAt.
	UpdateRoomStatus(ctx context.Context, id uuid.UUID, status roomstatus.Status) (*Room, error)

	// GetAttendance returns the log for (staff, date) or (nil, nil).
	GetAttendance(ctx context.Context, staffID uuid.UUID, logDate string) (*AttendanceLog, error)
	// UpsertAttendance inserts or updates the log and returns the
	// post-state.
	UpsertAttendance(ctx context.Context, log AttendanceLog) (*AttendanceLog, error)

	// StockIn records a movement and increments stock.
	StockIn(ctx context.Context, m StockMovement) (*InventoryItem, error)
	// StockOut records a movement and decrements stock, failing with
	// ErrInsufficientStock rather than allowing a negative level.
	StockOut(ctx context.Context, m StockMovement) (*InventoryItem, error)

	// GetReceipt returns the receipt for a mutation id or (nil, nil).
	GetReceipt(ctx context.Context, mutationID uuid.UUID) (*Receipt, error)
	// PutReceipt persists a receipt. Receipts are immutable once written.
	PutReceipt(ctx context.Context, r *Receipt) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
