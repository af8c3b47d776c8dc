// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

package syncserver

import (
	"context"
	"errors"

	"github.com/NighttoDev/Smeraldo-Hotel/mutation"
	"github.com/NighttoDev/Smeraldo-Hotel/roomstatus"
)

// outcome is the classified result of applying one mutation. A definitive
// outcome (success, no-op, conflict, or invariant violation) is receipted;
// a non-definitive one is an unexpected storage failure that stays
// retryable.
type outcome struct {
	result     mutation.SyncResult
	definitive bool
	cause      error
}

func applied(item *mutation.QueueItem) outcome {
	return outcome{
		result:     mutation.SyncResult{ItemID: item.ID, OK: true},
		definitive: true,
	}
}

func rejected(item *mutation.QueueItem, code string, conflict bool) outcome {
	return outcome{
		result: mutation.SyncResult{
			ItemID:   item.ID,
			OK:       false,
			Error:    code,
			Conflict: conflict,
		},
		definitive: true,
	}
}

func failed(err error) outcome {
	return outcome{cause: err}
}

// applyItem dispatches a mutation to its domain operation. The switch is
// exhaustive over the closed kind set; ValidateItem has already run, so an
// unknown kind here means the catalog and this dispatch disagree.
func (r *Reconciler) applyItem(ctx context.Context, tx Tx, userID string, item *mutation.QueueItem) outcome {
	payload, err := mutation.DecodePayload(item.Kind, item.Payload)
	if err != nil {
		return rejected(item, CodeUnsupportedAction, false)
	}

	switch p := payload.(type) {
	case *mutation.RoomOverridePayload:
		return r.applyRoomOverride(ctx, tx, item, p)
	case *mutation.AttendancePayload:
		return r.applyAttendance(ctx, tx, userID, item, p)
	case *mutation.StockInPayload:
		return r.applyStockIn(ctx, tx, userID, item, p)
	case *mutation.StockOutPayload:
		return r.applyStockOut(ctx, tx, userID, item, p)
	default:
		return rejected(item, CodeUnsupportedAction, false)
	}
}

// applyRoomOverride commits a manual status change. The transition guard
// already ran when the change was requested, but it must run again here
// against the authoritative state: another actor may have moved the room
// since the mutation was queued.
func (r *Reconciler) applyRoomOverride(ctx context.Context, tx Tx, item *mutation.QueueItem, p *mutation.RoomOverridePayload) outcome {
	room, err := tx.GetRoom(ctx, p.RoomID)
	if err != nil {
		return failed(err)
	}
	if room == nil {
		return rejected(item, CodeRoomNotFound, true)
	}

	// Already at the requested status: a legitimate retry after a success
	// whose acknowledgment was lost. Succeed as a no-op.
	if room.Status == p.NewStatus {
		return applied(item)
	}

	if room.UpdatedAt.After(item.CreatedAt) {
		return rejected(item, CodeRoomStatusStale, true)
	}

	if !roomstatus.IsValidTransition(room.Status, p.NewStatus) {
		r.logger.Info("Room override rejected by transition guard",
			"room_id", p.RoomID, "from", room.Status, "to", p.NewStatus,
			"reason", roomstatus.ExplainRejection(room.Status, p.NewStatus))
		return rejected(item, CodeRoomTransitionInvalid, true)
	}

	if _, err := tx.UpdateRoomStatus(ctx, p.RoomID, p.NewStatus); err != nil {
		return failed(err)
	}
	return applied(item)
}

func (r *Reconciler) applyAttendance(ctx context.Context, tx Tx, userID string, item *mutation.QueueItem, p *mutation.AttendancePayload) outcome {
	existing, err := tx.GetAttendance(ctx, p.StaffID, p.LogDate)
	if err != nil {
		return failed(err)
	}

	if existing != nil && existing.ShiftValue == p.ShiftValue {
		return applied(item)
	}
	if existing != nil && existing.UpdatedAt.After(item.CreatedAt) {
		return rejected(item, CodeAttendanceStale, true)
	}

	if _, err := tx.UpsertAttendance(ctx, AttendanceLog{
		StaffID:    p.StaffID,
		LogDate:    p.LogDate,
		ShiftValue: p.ShiftValue,
		LoggedBy:   userID,
	}); err != nil {
		return failed(err)
	}
	return applied(item)
}

func (r *Reconciler) applyStockIn(ctx context.Context, tx Tx, userID string, item *mutation.QueueItem, p *mutation.StockInPayload) outcome {
	_, err := tx.StockIn(ctx, StockMovement{
		ItemID:    p.ItemID,
		Quantity:  p.Quantity,
		Notes:     p.Notes,
		CreatedBy: userID,
	})
	if errors.Is(err, ErrItemNotFound) {
		return rejected(item, CodeItemNotFound, false)
	}
	if err != nil {
		return failed(err)
	}
	return applied(item)
}

func (r *Reconciler) applyStockOut(ctx context.Context, tx Tx, userID string, item *mutation.QueueItem, p *mutation.StockOutPayload) outcome {
	_, err := tx.StockOut(ctx, StockMovement{
		ItemID:        p.ItemID,
		Quantity:      p.Quantity,
		RecipientName: p.RecipientName,
		Notes:         p.Notes,
		CreatedBy:     userID,
	})
	if errors.Is(err, ErrItemNotFound) {
		return rejected(item, CodeItemNotFound, false)
	}
	// The non-negative invariant is checked at apply time: the stock-out
	// may have been valid when queued and invalid now.
	if errors.Is(err, ErrInsufficientStock) {
		return rejected(item, CodeInsufficientStock, false)
	}
	if err != nil {
		return failed(err)
	}
	return applied(item)
}
