// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

package syncserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NighttoDev/Smeraldo-Hotel/roomstatus"
)

// fakeStore is an in-memory Store with copy-on-Begin transactions: a fakeTx
// works on a deep copy of the state and writes it back on Commit, so a
// rolled-back transaction leaves no trace.
type fakeStore struct {
	mu          sync.Mutex
	rooms       map[uuid.UUID]Room
	attendance  map[string]AttendanceLog // key: staffID|logDate
	inventory   map[uuid.UUID]InventoryItem
	movements   []StockMovement
	receipts    map[uuid.UUID]Receipt
	beginErr    error
	stockInErr  error
	stockOutErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:      make(map[uuid.UUID]Room),
		attendance: make(map[string]AttendanceLog),
		inventory:  make(map[uuid.UUID]InventoryItem),
		receipts:   make(map[uuid.UUID]Receipt),
	}
}

func attendanceKey(staffID uuid.UUID, logDate string) string {
	return fmt.Sprintf("%s|%s", staffID, logDate)
}

func (s *fakeStore) Begin(ctx context.Context) (Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &fakeTx{
		store:      s,
		rooms:      make(map[uuid.UUID]Room, len(s.rooms)),
		attendance: make(map[string]AttendanceLog, len(s.attendance)),
		inventory:  make(map[uuid.UUID]InventoryItem, len(s.inventory)),
		movements:  append([]StockMovement(nil), s.movements...),
		receipts:   make(map[uuid.UUID]Receipt, len(s.receipts)),
	}
	for k, v := range s.rooms {
		tx.rooms[k] = v
	}
	for k, v := range s.attendance {
		tx.attendance[k] = v
	}
	for k, v := range s.inventory {
		tx.inventory[k] = v
	}
	for k, v := range s.receipts {
		tx.receipts[k] = v
	}
	return tx, nil
}

type fakeTx struct {
	store      *fakeStore
	rooms      map[uuid.UUID]Room
	attendance map[string]AttendanceLog
	inventory  map[uuid.UUID]InventoryItem
	movements  []StockMovement
	receipts   map[uuid.UUID]Receipt
	done       bool
}

func (t *fakeTx) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	room, ok := t.rooms[id]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (t *fakeTx) UpdateRoomStatus(ctx context.Context, id uuid.UUID, status roomstatus.Status) (*Room, error) {
	room, ok := t.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %s not found", id)
	}
	room.Status = status
	room.UpdatedAt = time.Now().UTC()
	t.rooms[id] = room
	return &room, nil
}

func (t *fakeTx) GetAttendance(ctx context.Context, staffID uuid.UUID, logDate string) (*AttendanceLog, error) {
	log, ok := t.attendance[attendanceKey(staffID, logDate)]
	if !ok {
		return nil, nil
	}
	return &log, nil
}

func (t *fakeTx) UpsertAttendance(ctx context.Context, log AttendanceLog) (*AttendanceLog, error) {
	log.UpdatedAt = time.Now().UTC()
	t.attendance[attendanceKey(log.StaffID, log.LogDate)] = log
	return &log, nil
}

func (t *fakeTx) StockIn(ctx context.Context, m StockMovement) (*InventoryItem, error) {
	if t.store.stockInErr != nil {
		return nil, t.store.stockInErr
	}
	item, ok := t.inventory[m.ItemID]
	if !ok {
		return nil, ErrItemNotFound
	}
	item.CurrentStock += m.Quantity
	item.UpdatedAt = time.Now().UTC()
	t.inventory[m.ItemID] = item
	t.movements = append(t.movements, m)
	return &item, nil
}

func (t *fakeTx) StockOut(ctx context.Context, m StockMovement) (*InventoryItem, error) {
	if t.store.stockOutErr != nil {
		return nil, t.store.stockOutErr
	}
	item, ok := t.inventory[m.ItemID]
	if !ok {
		return nil, ErrItemNotFound
	}
	if item.CurrentStock < m.Quantity {
		return nil, ErrInsufficientStock
	}
	item.CurrentStock -= m.Quantity
	item.UpdatedAt = time.Now().UTC()
	t.inventory[m.ItemID] = item
	t.movements = append(t.movements, m)
	return &item, nil
}

func (t *fakeTx) GetReceipt(ctx context.Context, mutationID uuid.UUID) (*Receipt, error) {
	receipt, ok := t.receipts[mutationID]
	if !ok {
		return nil, nil
	}
	return &receipt, nil
}

func (t *fakeTx) PutReceipt(ctx context.Context, r *Receipt) error {
	t.receipts[r.MutationID] = *r
	return nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.rooms = t.rooms
	t.store.attendance = t.attendance
	t.store.inventory = t.inventory
	t.store.movements = t.movements
	t.store.receipts = t.receipts
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.done = true
	return nil
}
