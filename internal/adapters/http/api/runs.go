package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/orgwatch/internal/adapters/mq/queue"
	"github.com/okian/orgwatch/internal/adapters/runstore"
)

const maxRunIDLen = 128

// runRequest mirrors the OpenAPI schema for POST /runs.
type runRequest struct {
	RunID string          `json:"run_id"`
	Items json.RawMessage `json:"items"`
}

type ackResponse struct {
	RunID     string          `json:"run_id"`
	Status    runstore.Status `json:"status"`
	Duplicate bool            `json:"duplicate"`
}

// RunsHandler accepts asynchronous runs and reports their state.
type RunsHandler struct {
	deps     RunDependencies
	maxItems int
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps RunDependencies, maxItems int) *RunsHandler {
	return &RunsHandler{deps: deps, maxItems: maxItems}
}

// HandlePostRun handles POST /runs requests.
func (h *RunsHandler) HandlePostRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_run"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req runRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	req.RunID = strings.TrimSpace(req.RunID)
	if len(req.RunID) > maxRunIDLen || strings.Contains(req.RunID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	items, err := decodeItems(req.Items, h.maxItems)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	run, duplicate, err := h.deps.Submit(r.Context(), req.RunID, items)
	switch {
	case errors.Is(err, queue.ErrFull), errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	case duplicate:
		writeJSON(w, http.StatusOK, ackResponse{RunID: req.RunID, Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{RunID: run.ID, Status: run.Status})
}

// HandleGetRun handles GET /runs/{id} requests.
func (h *RunsHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_run"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/runs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	run, err := h.deps.Run(r.Context(), id)
	switch {
	case errors.Is(err, runstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}
