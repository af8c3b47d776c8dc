// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"github.com/google/uuid"

	"github.com/NighttoDev/Smeraldo-Hotel/roomstatus"
)

// Payload is the tagged variant interface implemented by every payload type.
// The catalog validator and the reconciler's dispatch both switch
// exhaustively over these variants, so adding a kind is a single-point,
// compile-time-checked change.
type Payload interface {
	Kind() Kind
}

// RoomOverridePayload requests a manual room status change.
type RoomOverridePayload struct {
	RoomID    uuid.UUID         `json:"room_id" validate:"required"`
	NewStatus roomstatus.Status `json:"new_status" validate:"required,roomstatus"`
}

func (RoomOverridePayload) Kind() Kind { return KindRoomOverride }

// AttendancePayload records a shift value for a staff member on a date.
// Shift values are restricted to the fixed set {0, 0.5, 1, 1.5}.
type AttendancePayload struct {
	StaffID    uuid.UUID `json:"staff_id" validate:"required"`
	LogDate    string    `json:"log_date" validate:"required,datetime=2006-01-02"`
	ShiftValue float64   `json:"shift_value" validate:"shift"`
}

func (AttendancePayload) Kind() Kind { return KindAttendance }

// StockInPayload adds stock for an inventory item.
type StockInPayload struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,gt=0"`
	Notes    *string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

func (StockInPayload) Kind() Kind { return KindStockIn }

// StockOutPayload removes stock for an inventory item and records who
// received it.
type StockOutPayload struct {
	ItemID        uuid.UUID `json:"item_id" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,gt=0"`
	RecipientName string    `json:"recipient_name" validate:"required,min=1,max=100"`
	Notes         *string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

func (StockOutPayload) Kind() Kind { return KindStockOut }
