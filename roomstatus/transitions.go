// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

// Package roomstatus defines the room status set and the finite state
// machine restricting which status changes may be made through the manual
// override workflow. Check-in and check-out move rooms in and out of the
// occupied state through their own dedicated flows, so the override guard
// never permits entering or leaving occupied towards/from available.
package roomstatus

import "fmt"

// Status is a room's current lifecycle state.
type Status string

const (
	Available        Status = "available"
	BeingCleaned     Status = "being_cleaned"
	Ready            Status = "ready"
	Occupied         Status = "occupied"
	CheckingOutToday Status = "checking_out_today"
)

// validTransitions maps each status to the statuses reachable via override.
// The table is deliberately asymmetric: occupied is only ever entered by
// check-in and only left towards cleaning, never directly to available.
var validTransitions = map[Status][]Status{
	Available:        {BeingCleaned},
	BeingCleaned:     {Ready},
	Ready:            {Available},
	Occupied:         {BeingCleaned},
	CheckingOutToday: {BeingCleaned},
}

// labels are the human-readable names used in user-facing messages.
var labels = map[Status]string{
	Available:        "available",
	BeingCleaned:     "being cleaned",
	Ready:            "ready",
	Occupied:         "occupied",
	CheckingOutToday: "checking out today",
}

// Valid reports whether s is a member of the fixed status set.
func Valid(s Status) bool {
	_, ok := validTransitions[s]
	return ok
}

// All returns the fixed status set in a stable order.
func All() []Status {
	return []Status{Available, BeingCleaned, Ready, Occupied, CheckingOutToday}
}

// Label returns the display name for a status, falling back to the raw value.
func Label(s Status) string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// IsValidTransition reports whether from -> to is a legal override.
// A same-state transition is always legal (idempotent no-op).
func IsValidTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidTransitionsFrom returns the statuses reachable from the given status
// via override, not including the same-state no-op.
func ValidTransitionsFrom(from Status) []Status {
	next := validTransitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// ExplainRejection returns a human-readable reason why from -> to is not a
// legal override, or the empty string when the transition is valid. The two
// occupied-state edges get dedicated messages pointing at the check-in and
// check-out flows.
func ExplainRejection(from, to Status) string {
	if IsValidTransition(from, to) {
		return ""
	}
	if from == Occupied && to == Available {
		return "an occupied room cannot be marked available here; use the check-out flow instead"
	}
	if from == Available && to == Occupied {
		return "a vacant room cannot be marked occupied here; use the check-in flow instead"
	}
	return fmt.Sprintf("room status cannot change from %q to %q; pick another status", Label(from), Label(to))
}
