// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

// Package syncserver implements the reconciler that applies batches of
// offline mutations exactly once each, with timestamp-based conflict
// detection against the authoritative records and durable receipts keyed by
// the client-generated mutation id.
package syncserver

import (
	"time"

	"github.com/google/uuid"

	"github.com/NighttoDev/Smeraldo-Hotel/mutation"
	"github.com/NighttoDev/Smeraldo-Hotel/roomstatus"
)

// Room is the authoritative status entity. UpdatedAt is maintained by the
// storage layer on every write and compared against a mutation's createdAt
// to detect staleness.
type Room struct {
	ID        uuid.UUID
	Number    string
	Status    roomstatus.Status
	UpdatedAt time.Time
}

// AttendanceLog is one staff member's shift record for one date. The
// (StaffID, LogDate) pair is unique.
type AttendanceLog struct {
	StaffID    uuid.UUID
	LogDate    string // YYYY-MM-DD
	ShiftValue float64
	LoggedBy   string
	UpdatedAt  time.Time
}

// InventoryItem is an inventory line with its current stock level, which is
// never allowed to go negative.
type InventoryItem struct {
	ID                uuid.UUID
	Name              string
	CurrentStock      int
	LowStockThreshold int
	Unit              string
	UpdatedAt         time.Time
}

// StockMovement is the audit record of a single stock in/out operation.
type StockMovement struct {
	ItemID        uuid.UUID
	Quantity      int
	RecipientName string // empty for stock-in
	Notes         *string
	CreatedBy     string
}

// Receipt is the durable proof that a mutation id was already processed. It
// is created exactly once per id, never mutated, and read before any domain
// operation runs so that retried batches cannot re-apply an effect.
type Receipt struct {
	MutationID  uuid.UUID
	Kind        mutation.Kind
	OK          bool
	Error       string
	Conflict    bool
	ProcessedBy string
	ProcessedAt time.Time
}

// Result converts a stored receipt back into the per-item result it proves.
func (r *Receipt) Result() mutation.SyncResult {
	return mutation.SyncResult{
		ItemID:   r.MutationID,
		OK:       r.OK,
		Error:    r.Error,
		Conflict: r.Conflict,
	}
}
