// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

// Package notify delivers operational alerts raised by the reconciler's
// storage layer, currently low-stock warnings.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LowStockEvent fires when a stock-out drops an item from above its
// threshold to at or below it. It does not re-fire while the level stays
// below the threshold.
type LowStockEvent struct {
	ItemID       uuid.UUID
	Name         string
	CurrentStock int
	Threshold    int
	Unit         string
}

// Notifier receives low-stock events. Delivery is best-effort and runs
// outside the originating transaction; implementations must not block for
// long.
type Notifier interface {
	NotifyLowStock(ctx context.Context, event LowStockEvent)
}

// NotifierFunc adapts a plain function to a Notifier.
type NotifierFunc func(ctx context.Context, event LowStockEvent)

func (f NotifierFunc) NotifyLowStock(ctx context.Context, event LowStockEvent) {
	f(ctx, event)
}

// LogNotifier writes low-stock events to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyLowStock(ctx context.Context, event LowStockEvent) {
	n.logger.Warn("Inventory item below low-stock threshold",
		"item_id", event.ItemID,
		"name", event.Name,
		"current_stock", event.CurrentStock,
		"threshold", event.Threshold,
		"unit", event.Unit)
}
