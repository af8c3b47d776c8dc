// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

package syncserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/NighttoDev/Smeraldo-Hotel/mutation"
)

// SyncHandlers provides the HTTP surface of the sync endpoint.
type SyncHandlers struct {
	reconciler    *Reconciler
	authenticator Authenticator
	logger        *slog.Logger
}

// NewSyncHandlers creates HTTP handlers over a reconciler.
func NewSyncHandlers(reconciler *Reconciler, authenticator Authenticator, logger *slog.Logger) *SyncHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandlers{
		reconciler:    reconciler,
		authenticator: authenticator,
		logger:        logger,
	}
}

// HandleSync processes a POSTed mutation batch and returns one result per
// item inside the response envelope. Batch-level failures use the
// envelope's error branch; per-item failures ride in the results.
func (h *SyncHandlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, CodeInvalidPayload, "only POST is allowed")
		return
	}

	userID, role, err := h.authenticator.Identity(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
		return
	}

	var batch mutation.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeInvalidPayload, "malformed mutation batch")
		return
	}

	results, err := h.reconciler.ProcessBatch(r.Context(), userID, role, &batch)
	switch {
	case errors.Is(err, ErrRoleForbidden):
		h.writeError(w, http.StatusForbidden, CodeForbidden, "role may not submit mutations")
		return
	case errors.Is(err, ErrInvalidBatch):
		h.writeError(w, http.StatusBadRequest, CodeInvalidPayload, "invalid mutation batch")
		return
	case err != nil:
		h.logger.Error("Failed to process mutation batch",
			"error", err, "user_id", userID, "items", len(batch.Items))
		h.writeError(w, http.StatusInternalServerError, CodeSyncFailed, "failed to process batch")
		return
	}

	h.writeData(w, &mutation.SyncData{Results: results})
}

func (h *SyncHandlers) writeData(w http.ResponseWriter, data *mutation.SyncData) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&mutation.SyncEnvelope{Data: data}); err != nil {
		h.logger.Error("Failed to encode sync response", "error", err)
	}
}

func (h *SyncHandlers) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	envelope := &mutation.SyncEnvelope{
		Error: &mutation.SyncError{Message: message, Code: code},
	}
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		h.logger.Error("Failed to encode sync error response", "error", err)
	}
}
