// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

package syncserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/NighttoDev/Smeraldo-Hotel/mutation"
)

// Batch-level rejection sentinels, mapped to HTTP statuses by the handler.
var (
	ErrRoleForbidden = errors.New("role may not submit mutations")
	ErrInvalidBatch  = errors.New("invalid mutation batch")
)

// Config holds reconciler configuration.
type Config struct {
	AppName string
	// MaxBatchSize bounds the number of items per batch (0 = unlimited).
	MaxBatchSize int
}

// Reconciler applies mutation batches exactly once each, even when a batch
// is retried wholesale or partially overlaps a previous batch.
type Reconciler struct {
	store  Store
	config *Config
	logger *slog.Logger
}

// NewReconciler creates a reconciler over the given storage layer.
func NewReconciler(store Store, config *Config, logger *slog.Logger) *Reconciler {
	if config == nil {
		config = &Config{AppName: "staffsync"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, config: config, logger: logger}
}

// ProcessBatch validates, orders, deduplicates, and applies a batch,
// returning one result per input item. Items are processed independently:
// a failure does not roll back earlier items in the same batch.
func (r *Reconciler) ProcessBatch(ctx context.Context, userID, role string, batch *mutation.Batch) ([]mutation.SyncResult, error) {
	if !RoleAllowed(role) {
		return nil, fmt.Errorf("%w: %q", ErrRoleForbidden, role)
	}

	if r.config.MaxBatchSize > 0 && len(batch.Items) > r.config.MaxBatchSize {
		return nil, fmt.Errorf("%w: batch too large: items=%d limit=%d",
			ErrInvalidBatch, len(batch.Items), r.config.MaxBatchSize)
	}

	// Structural validation rejects the whole batch; no partial
	// application of a malformed upload.
	for i := range batch.Items {
		if err := mutation.ValidateItem(&batch.Items[i]); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidBatch, i, err)
		}
	}

	// Defensive ordering: do not trust the client's ordering.
	items := make([]mutation.QueueItem, len(batch.Items))
	copy(items, batch.Items)
	mutation.SortItems(items)

	r.logger.Info("Processing mutation batch",
		"user_id", userID, "role", role, "items", len(items))

	firstResultByID := make(map[uuid.UUID]mutation.SyncResult, len(items))
	results := make([]mutation.SyncResult, 0, len(items))
	for i := range items {
		item := &items[i]

		// In-batch dedup: a repeated id reuses the earlier result
		// without re-running any domain operation.
		if prior, seen := firstResultByID[item.ID]; seen {
			results = append(results, prior)
			continue
		}

		result, err := r.processItem(ctx, userID, item)
		if err != nil {
			return nil, err
		}
		firstResultByID[item.ID] = result
		results = append(results, result)
	}

	return results, nil
}

// processItem applies one mutation inside its own transaction. The receipt
// lookup, the domain operation, and the receipt write share that
// transaction, so an effect and its proof commit or vanish together.
func (r *Reconciler) processItem(ctx context.Context, userID string, item *mutation.QueueItem) (mutation.SyncResult, error) {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return mutation.SyncResult{}, fmt.Errorf("begin item transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	receipt, err := tx.GetReceipt(ctx, item.ID)
	if err != nil {
		return mutation.SyncResult{}, fmt.Errorf("receipt lookup for %s: %w", item.ID, err)
	}
	if receipt != nil {
		r.logger.Debug("Mutation already processed, reusing receipt",
			"id", item.ID, "kind", item.Kind)
		return receipt.Result(), nil
	}

	outcome := r.applyItem(ctx, tx, userID, item)
	if !outcome.definitive {
		// Unexpected storage failure: roll back and report a retryable
		// per-item failure without a receipt, so a later batch can
		// succeed.
		r.logger.Error("Mutation apply failed",
			"id", item.ID, "kind", item.Kind, "error", outcome.cause)
		return mutation.SyncResult{
			ItemID: item.ID,
			OK:     false,
			Error:  CodeSyncItemFailed,
		}, nil
	}

	if err := tx.PutReceipt(ctx, &Receipt{
		MutationID:  item.ID,
		Kind:        item.Kind,
		OK:          outcome.result.OK,
		Error:       outcome.result.Error,
		Conflict:    outcome.result.Conflict,
		ProcessedBy: userID,
		ProcessedAt: time.Now().UTC(),
	}); err != nil {
		return mutation.SyncResult{}, fmt.Errorf("persist receipt for %s: %w", item.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mutation.SyncResult{}, fmt.Errorf("commit item %s: %w", item.ID, err)
	}
	committed = true

	return outcome.result, nil
}
