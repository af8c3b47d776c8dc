// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

package syncclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/NighttoDev/Smeraldo-Hotel/mutation"
)

type stubSink struct {
	mu       sync.Mutex
	pending  int
	failure  string
	activity int
}

func (s *stubSink) SetPendingCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = n
}

func (s *stubSink) SetSyncFailure(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = message
}

func (s *stubSink) ClearSyncFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = ""
}

func (s *stubSink) MarkActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity++
}

func (s *stubSink) snapshot() (int, string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.failure, s.activity
}

// okayServer acknowledges every uploaded item.
func okayServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		var batch mutation.Batch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		results := make([]mutation.SyncResult, len(batch.Items))
		for i, item := range batch.Items {
			results[i] = mutation.SyncResult{ItemID: item.ID, OK: true}
		}
		writeEnvelope(t, w, &mutation.SyncEnvelope{Data: &mutation.SyncData{Results: results}})
	}))
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, envelope *mutation.SyncEnvelope) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(envelope))
}

func enqueueStockIn(t *testing.T, q *Queue, at time.Time) mutation.QueueItem {
	t.Helper()
	item, err := q.Enqueue(context.Background(), &mutation.StockInPayload{
		ItemID: uuid.New(), Quantity: 1,
	}, at)
	require.NoError(t, err)
	return item
}

func TestFlush_DrainsQueueOnSuccess(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)
	server := okayServer(t, nil)
	defer server.Close()

	sink := &stubSink{}
	client := NewClient(q, Config{BaseURL: server.URL, Sink: sink})

	enqueueStockIn(t, q, time.Now().UTC())
	enqueueStockIn(t, q, time.Now().UTC())

	require.NoError(t, client.Flush(ctx))

	n, err := q.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	pending, failure, activity := sink.snapshot()
	require.Zero(t, pending)
	require.Empty(t, failure)
	require.Positive(t, activity)
}

func TestFlush_OfflineSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)

	var hits atomic.Int64
	server := okayServer(t, &hits)
	defer server.Close()

	sink := &stubSink{}
	client := NewClient(q, Config{
		BaseURL: server.URL,
		Probe:   ConnectivityProbeFunc(func() bool { return false }),
		Sink:    sink,
	})

	enqueueStockIn(t, q, time.Now().UTC())

	require.NoError(t, client.Flush(ctx))
	require.Zero(t, hits.Load())

	// The item stays queued untouched with no retry bump.
	items, err := q.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Zero(t, items[0].Retries)

	pending, _, _ := sink.snapshot()
	require.Equal(t, 1, pending)
}

func TestFlush_TransportFailureBumpsAllItems(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(q, Config{BaseURL: server.URL})

	enqueueStockIn(t, q, time.Now().UTC())
	enqueueStockIn(t, q, time.Now().UTC())

	require.NoError(t, client.Flush(ctx))

	items, err := q.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		require.Equal(t, 1, item.Retries)
	}
}

func TestFlush_OmittedResultCountsAsFailure(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)

	// The server acknowledges only the first item of each batch.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch mutation.Batch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		results := []mutation.SyncResult{{ItemID: batch.Items[0].ID, OK: true}}
		writeEnvelope(t, w, &mutation.SyncEnvelope{Data: &mutation.SyncData{Results: results}})
	}))
	defer server.Close()

	client := NewClient(q, Config{BaseURL: server.URL})

	first := enqueueStockIn(t, q, time.Now().UTC().Add(-time.Second))
	second := enqueueStockIn(t, q, time.Now().UTC())

	require.NoError(t, client.Flush(ctx))

	items, err := q.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, second.ID, items[0].ID)
	require.Equal(t, 1, items[0].Retries)
	require.NotEqual(t, first.ID, items[0].ID)
}

func TestFlush_ExhaustedItemsStayOffTheWire(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)

	var hits atomic.Int64
	server := okayServer(t, &hits)
	defer server.Close()

	sink := &stubSink{}
	client := NewClient(q, Config{BaseURL: server.URL, Sink: sink})

	item := enqueueStockIn(t, q, time.Now().UTC())
	for i := 0; i < mutation.MaxRetries; i++ {
		_, err := q.IncrementRetry(ctx, item.ID)
		require.NoError(t, err)
	}

	require.NoError(t, client.Flush(ctx))
	require.Zero(t, hits.Load())

	_, failure, _ := sink.snapshot()
	require.Contains(t, failure, "stock-in")
	require.Contains(t, failure, "tap to retry")
}

func TestFlush_MixedBatchSendsOnlyRetryable(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)

	var got atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch mutation.Batch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		got.Store(int64(len(batch.Items)))
		results := make([]mutation.SyncResult, len(batch.Items))
		for i, item := range batch.Items {
			results[i] = mutation.SyncResult{ItemID: item.ID, OK: true}
		}
		writeEnvelope(t, w, &mutation.SyncEnvelope{Data: &mutation.SyncData{Results: results}})
	}))
	defer server.Close()

	client := NewClient(q, Config{BaseURL: server.URL})

	blocked := enqueueStockIn(t, q, time.Now().UTC())
	for i := 0; i < mutation.MaxRetries; i++ {
		_, err := q.IncrementRetry(ctx, blocked.ID)
		require.NoError(t, err)
	}
	enqueueStockIn(t, q, time.Now().UTC())

	require.NoError(t, client.Flush(ctx))
	require.Equal(t, int64(1), got.Load())

	// Only the blocked item remains.
	items, err := q.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, blocked.ID, items[0].ID)
}

func TestRetryBlocked_ResetsAndFlushes(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)
	server := okayServer(t, nil)
	defer server.Close()

	sink := &stubSink{}
	client := NewClient(q, Config{BaseURL: server.URL, Sink: sink})

	item := enqueueStockIn(t, q, time.Now().UTC())
	for i := 0; i < mutation.MaxRetries; i++ {
		_, err := q.IncrementRetry(ctx, item.ID)
		require.NoError(t, err)
	}
	sink.SetSyncFailure("sync failed for stock-in, tap to retry")

	require.NoError(t, client.RetryBlocked(ctx))

	n, err := q.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	_, failure, _ := sink.snapshot()
	require.Empty(t, failure)
}

func TestFlush_SingleFlight(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)

	var hits atomic.Int64
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		var batch mutation.Batch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		results := make([]mutation.SyncResult, len(batch.Items))
		for i, item := range batch.Items {
			results[i] = mutation.SyncResult{ItemID: item.ID, OK: true}
		}
		writeEnvelope(t, w, &mutation.SyncEnvelope{Data: &mutation.SyncData{Results: results}})
	}))
	defer server.Close()

	client := NewClient(q, Config{BaseURL: server.URL})
	enqueueStockIn(t, q, time.Now().UTC())

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = client.Flush(ctx)
		}()
	}

	// Give the goroutines time to pile up behind the in-flight flush,
	// then let the server respond.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int64(1), hits.Load())
	for _, err := range errs {
		require.NoError(t, err)
	}

	n, err := q.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestFlush_RejectedItemGetsRetryBump(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch mutation.Batch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		results := make([]mutation.SyncResult, len(batch.Items))
		for i, item := range batch.Items {
			results[i] = mutation.SyncResult{
				ItemID:   item.ID,
				OK:       false,
				Error:    "ROOM_STATUS_CONFLICT_STALE_TIMESTAMP",
				Conflict: true,
			}
		}
		writeEnvelope(t, w, &mutation.SyncEnvelope{Data: &mutation.SyncData{Results: results}})
	}))
	defer server.Close()

	client := NewClient(q, Config{BaseURL: server.URL})
	enqueueStockIn(t, q, time.Now().UTC())

	require.NoError(t, client.Flush(ctx))

	items, err := q.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, items[0].Retries)
}

func TestFlush_EnvelopeErrorIsTransportFailure(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		writeEnvelope(t, w, &mutation.SyncEnvelope{
			Error: &mutation.SyncError{Message: "role may not submit mutations", Code: "FORBIDDEN"},
		})
	}))
	defer server.Close()

	client := NewClient(q, Config{BaseURL: server.URL})
	enqueueStockIn(t, q, time.Now().UTC())

	require.NoError(t, client.Flush(ctx))

	items, err := q.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, items[0].Retries)
}

func TestFlush_SendsBearerToken(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)

	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		var batch mutation.Batch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		results := make([]mutation.SyncResult, len(batch.Items))
		for i, item := range batch.Items {
			results[i] = mutation.SyncResult{ItemID: item.ID, OK: true}
		}
		writeEnvelope(t, w, &mutation.SyncEnvelope{Data: &mutation.SyncData{Results: results}})
	}))
	defer server.Close()

	client := NewClient(q, Config{
		BaseURL: server.URL,
		Token: func(context.Context) (string, error) {
			return "staff-token", nil
		},
	})
	enqueueStockIn(t, q, time.Now().UTC())

	require.NoError(t, client.Flush(ctx))
	require.Equal(t, "Bearer staff-token", gotAuth.Load())
}
