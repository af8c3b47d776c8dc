// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

// Package mutation defines the closed set of offline mutation kinds, their
// payload schemas, and the wire models shared by the client queue and the
// sync server. A mutation's client-generated id is its idempotency key
// end-to-end: the server applies each id at most once regardless of how many
// times the containing batch is retried.
package mutation

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Kind identifies one of the closed mutation kinds.
type Kind string

const (
	KindRoomOverride Kind = "room_override_status"
	KindAttendance   Kind = "attendance_log"
	KindStockIn      Kind = "inventory_stock_in"
	KindStockOut     Kind = "inventory_stock_out"
)

// MaxRetries is the delivery attempt budget per queued mutation. Once an
// item has failed this many times it is excluded from automatic flushes
// until a manual reset.
const MaxRetries = 3

// Known reports whether k is a member of the closed kind set.
func (k Kind) Known() bool {
	switch k {
	case KindRoomOverride, KindAttendance, KindStockIn, KindStockOut:
		return true
	}
	return false
}

// Label returns the human-readable name of a kind for user-facing messages.
func (k Kind) Label() string {
	switch k {
	case KindRoomOverride:
		return "room status update"
	case KindAttendance:
		return "attendance log"
	case KindStockIn:
		return "stock-in"
	case KindStockOut:
		return "stock-out"
	default:
		return "data sync"
	}
}

// QueueItem is a pending mutation awaiting delivery. It is owned exclusively
// by the client-side queue until delivery succeeds or is abandoned.
type QueueItem struct {
	ID        uuid.UUID       `json:"id"`
	Kind      Kind            `json:"action"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"timestamp"`
	Retries   int             `json:"retries"`
}

// ExceededRetries reports whether the item has exhausted its retry budget.
func (q *QueueItem) ExceededRetries() bool {
	return q.Retries >= MaxRetries
}

// Less orders items by (createdAt, id) ascending. This exact tie-break makes
// batches deterministic and replay-safe on both ends of the wire.
func (q *QueueItem) Less(other *QueueItem) bool {
	if !q.CreatedAt.Equal(other.CreatedAt) {
		return q.CreatedAt.Before(other.CreatedAt)
	}
	return q.ID.String() < other.ID.String()
}

// SortItems sorts items in place by (createdAt, id) ascending.
func SortItems(items []QueueItem) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].Less(&items[j])
	})
}

// SyncResult is the per-item outcome of a delivery attempt, produced by the
// reconciler and consumed by the sync client.
type SyncResult struct {
	ItemID   uuid.UUID `json:"itemId"`
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
	Conflict bool      `json:"conflict,omitempty"`
}

// Batch is the upload request body accepted by the sync endpoint.
type Batch struct {
	Items []QueueItem `json:"items"`
}

// SyncEnvelope is the response body of the sync endpoint. Exactly one of
// Data and Error is set.
type SyncEnvelope struct {
	Data  *SyncData  `json:"data"`
	Error *SyncError `json:"error"`
}

// SyncData carries per-item results on success.
type SyncData struct {
	Results []SyncResult `json:"results"`
}

// SyncError is a batch-level rejection.
type SyncError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
