// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

package syncserver

// Per-item error codes returned in SyncResult.Error. The client renders a
// human-readable message from the mutation kind, never the raw code.
const (
	CodeRoomNotFound          = "ROOM_NOT_FOUND"
	CodeRoomStatusStale       = "ROOM_STATUS_CONFLICT_STALE_TIMESTAMP"
	CodeRoomTransitionInvalid = "ROOM_TRANSITION_INVALID"
	CodeAttendanceStale       = "ATTENDANCE_CONFLICT_STALE_TIMESTAMP"
	CodeItemNotFound          = "ITEM_NOT_FOUND"
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodeUnsupportedAction     = "UNSUPPORTED_ACTION"
	CodeSyncItemFailed        = "SYNC_ITEM_FAILED"
)

// Batch-level error codes returned in the response envelope.
const (
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeInvalidPayload = "INVALID_PAYLOAD"
	CodeSyncFailed     = "SYNC_FAILED"
)

// Staff roles. Only manager and reception may submit mutation batches;
// per-kind restrictions beyond that are enforced by the calling workflow.
const (
	RoleManager      = "manager"
	RoleReception    = "reception"
	RoleHousekeeping = "housekeeping"
)

// RoleAllowed reports whether a role may submit mutation batches at all.
func RoleAllowed(role string) bool {
	return role == RoleManager || role == RoleReception
}
