// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NighttoDev/Smeraldo-Hotel/mutation"
)

// ConnectivityProbe reports whether the transport is currently reachable.
// The sync client skips network attempts while it reports false.
type ConnectivityProbe interface {
	Online() bool
}

// ConnectivityProbeFunc adapts a plain function to a ConnectivityProbe.
type ConnectivityProbeFunc func() bool

func (f ConnectivityProbeFunc) Online() bool { return f() }

// StatusSink receives UI-facing state from the sync client. Rendering is the
// consumer's concern; all methods must be cheap and non-blocking.
type StatusSink interface {
	// SetPendingCount reports the current number of queued mutations.
	SetPendingCount(n int)
	// SetSyncFailure surfaces a persistent-failure message until cleared.
	SetSyncFailure(message string)
	// ClearSyncFailure removes any persistent-failure message.
	ClearSyncFailure()
	// MarkActivity signals that live server traffic just succeeded.
	MarkActivity()
}

// nopSink is used when no sink is configured.
type nopSink struct{}

func (nopSink) SetPendingCount(int)   {}
func (nopSink) SetSyncFailure(string) {}
func (nopSink) ClearSyncFailure()     {}
func (nopSink) MarkActivity()         {}

// Config holds the sync client configuration.
type Config struct {
	BaseURL  string                                // sync server base URL, no trailing slash
	SyncPath string                                // defaults to "/api/sync"
	Token    func(context.Context) (string, error) // bearer token provider, optional
	HTTP     *http.Client                          // defaults to a 30s-timeout client
	Probe    ConnectivityProbe                     // defaults to always-online
	Sink     StatusSink                            // defaults to a no-op sink
	Logger   *slog.Logger                          // defaults to slog.Default()
}

// Client drives delivery of queued mutations and reconciles outcomes back
// into the local queue and the status sink.
type Client struct {
	queue  *Queue
	config Config
	logger *slog.Logger

	// Single-flight flush state: a second caller awaits the in-flight
	// flush instead of starting another one.
	mu       sync.Mutex
	inflight chan struct{}
	flushErr error
}

// NewClient creates a sync client over an open queue.
func NewClient(queue *Queue, config Config) *Client {
	if config.SyncPath == "" {
		config.SyncPath = "/api/sync"
	}
	if config.HTTP == nil {
		config.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if config.Probe == nil {
		config.Probe = ConnectivityProbeFunc(func() bool { return true })
	}
	if config.Sink == nil {
		config.Sink = nopSink{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		queue:  queue,
		config: config,
		logger: config.Logger,
	}
}

// Queue returns the underlying durable queue.
func (c *Client) Queue() *Queue { return c.queue }

// Flush drains the queue against the network. Only one flush runs at a
// time; concurrent callers wait for the in-flight flush and share its
// result rather than starting a new one.
func (c *Client) Flush(ctx context.Context) error {
	c.mu.Lock()
	if ch := c.inflight; ch != nil {
		c.mu.Unlock()
		select {
		case <-ch:
			c.mu.Lock()
			err := c.flushErr
			c.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	ch := make(chan struct{})
	c.inflight = ch
	c.mu.Unlock()

	err := c.flushNow(ctx)

	c.mu.Lock()
	c.flushErr = err
	c.inflight = nil
	c.mu.Unlock()
	close(ch)
	return err
}

// RetryBlocked resets the retry count of every exhausted item, clears the
// failure indicator, and runs a flush.
func (c *Client) RetryBlocked(ctx context.Context) error {
	items, err := c.queue.ListAll(ctx)
	if err != nil {
		return err
	}
	for i := range items {
		if !items[i].ExceededRetries() {
			continue
		}
		if _, err := c.queue.ResetRetry(ctx, items[i].ID); err != nil {
			return err
		}
	}
	c.config.Sink.ClearSyncFailure()
	return c.Flush(ctx)
}

// RefreshPendingCount pushes the queue's current size to the status sink.
func (c *Client) RefreshPendingCount(ctx context.Context) error {
	n, err := c.queue.Count(ctx)
	if err != nil {
		return err
	}
	c.config.Sink.SetPendingCount(n)
	return nil
}

func (c *Client) flushNow(ctx context.Context) error {
	if !c.config.Probe.Online() {
		return c.RefreshPendingCount(ctx)
	}

	items, err := c.queue.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		c.config.Sink.ClearSyncFailure()
		return c.RefreshPendingCount(ctx)
	}

	var retryable []mutation.QueueItem
	for i := range items {
		if !items[i].ExceededRetries() {
			retryable = append(retryable, items[i])
		}
	}
	if len(retryable) == 0 {
		// Every item is blocked; name the first one and stay off the
		// network until a manual reset.
		c.config.Sink.SetSyncFailure(failureMessage(items[0].Kind))
		return c.RefreshPendingCount(ctx)
	}

	results, err := c.postBatch(ctx, retryable)
	if err != nil {
		// Transport-level failure: every item in the batch gets a retry
		// bump, no partial information is assumed.
		c.logger.Warn("Sync batch request failed", "error", err, "items", len(retryable))
		for i := range retryable {
			if err := c.bumpRetry(ctx, &retryable[i]); err != nil {
				return err
			}
		}
		return c.RefreshPendingCount(ctx)
	}

	byID := make(map[uuid.UUID]*mutation.QueueItem, len(retryable))
	for i := range retryable {
		byID[retryable[i].ID] = &retryable[i]
	}

	processed := make(map[uuid.UUID]bool, len(results))
	for _, result := range results {
		item, ok := byID[result.ItemID]
		if !ok {
			continue
		}
		processed[result.ItemID] = true

		if result.OK {
			if err := c.queue.Remove(ctx, result.ItemID); err != nil {
				return err
			}
			c.config.Sink.ClearSyncFailure()
			c.config.Sink.MarkActivity()
			continue
		}

		c.logger.Info("Sync item rejected",
			"id", result.ItemID, "kind", item.Kind,
			"error", result.Error, "conflict", result.Conflict)
		if err := c.bumpRetry(ctx, item); err != nil {
			return err
		}
	}

	// An item the server omitted from the result list counts as a failure;
	// omission must never be silently treated as success.
	for i := range retryable {
		if processed[retryable[i].ID] {
			continue
		}
		if err := c.bumpRetry(ctx, &retryable[i]); err != nil {
			return err
		}
	}

	return c.RefreshPendingCount(ctx)
}

// bumpRetry increments an item's retry count and raises the persistent
// failure indicator once the budget is exhausted.
func (c *Client) bumpRetry(ctx context.Context, item *mutation.QueueItem) error {
	updated, err := c.queue.IncrementRetry(ctx, item.ID)
	if err != nil {
		return err
	}
	if updated != nil && updated.ExceededRetries() {
		c.config.Sink.SetSyncFailure(failureMessage(item.Kind))
	}
	return nil
}

func (c *Client) postBatch(ctx context.Context, items []mutation.QueueItem) ([]mutation.SyncResult, error) {
	body, err := json.Marshal(mutation.Batch{Items: items})
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+c.config.SyncPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != nil {
		token, err := c.config.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("get token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.config.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope mutation.SyncEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode sync response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || envelope.Error != nil || envelope.Data == nil {
		if envelope.Error != nil {
			return nil, fmt.Errorf("sync rejected: %s (%s)", envelope.Error.Message, envelope.Error.Code)
		}
		return nil, fmt.Errorf("sync rejected with status %d", resp.StatusCode)
	}
	return envelope.Data.Results, nil
}

func failureMessage(kind mutation.Kind) string {
	return fmt.Sprintf("sync failed for %s, tap to retry", kind.Label())
}
