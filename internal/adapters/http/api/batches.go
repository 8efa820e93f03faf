// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// BatchesHandler handles batch lifecycle and lookup requests.
type BatchesHandler struct {
	deps Dependencies
}

// NewBatchesHandler creates a new batches handler.
func NewBatchesHandler(deps Dependencies) *BatchesHandler {
	return &BatchesHandler{deps: deps}
}

// HandleOpenBatch handles POST /batches requests.
func (h *BatchesHandler) HandleOpenBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.open_batch"
	caller, ok := requireActor(w, r, op)
	if !ok {
		return
	}
	b, err := h.deps.OpenBatch(r.Context(), caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBatchResponse(b))
}

type closeBatchRequest struct {
	BatchID uint64 `json:"batch_id"`
}

// HandleCloseBatch handles POST /batches/close requests.
func (h *BatchesHandler) HandleCloseBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.close_batch"
	caller, ok := requireActor(w, r, op)
	if !ok {
		return
	}
	var req closeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	b, err := h.deps.CloseBatch(r.Context(), caller, req.BatchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(b))
}

// HandleGetBatch handles GET /batches/{id} requests.
func (h *BatchesHandler) HandleGetBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_batch"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/batches/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	id, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	b, err := h.deps.GetBatch(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(b))
}
