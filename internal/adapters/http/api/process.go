package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/internal/domain/pipeline"
)

const maxBodyBytes = 32 << 20

// processRequest mirrors the OpenAPI schema for POST /api/extraction/process.
type processRequest struct {
	Items  json.RawMessage `json:"items"`
	Config json.RawMessage `json:"config,omitempty"`
}

type processResponse struct {
	Success bool            `json:"success"`
	Result  pipeline.Result `json:"result"`
}

// ProcessHandler runs the pipeline synchronously.
type ProcessHandler struct {
	deps     ProcessDependencies
	maxItems int
}

// NewProcessHandler creates a new process handler.
func NewProcessHandler(deps ProcessDependencies, maxItems int) *ProcessHandler {
	return &ProcessHandler{deps: deps, maxItems: maxItems}
}

// HandleProcess handles POST /api/extraction/process requests.
func (h *ProcessHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	const op = "api.process"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req processRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	items, err := decodeItems(req.Items, h.maxItems)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var cfg *pipeline.Config
	if present(req.Config) {
		c := h.deps.PipelineConfig()
		if err := json.Unmarshal(req.Config, &c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_config", WrapKind(op, ErrBadRequest, err))
			return
		}
		cfg = &c
	}

	res, err := h.deps.Process(r.Context(), items, cfg)
	switch {
	case errors.Is(err, pipeline.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, "invalid_config", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, processResponse{Success: true, Result: res})
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// decodeItems requires a JSON array of at most limit items.
func decodeItems(raw json.RawMessage, limit int) ([]model.RawItem, error) {
	raw = bytes.TrimSpace(raw)
	if !present(raw) {
		return nil, errors.New("missing items")
	}
	if raw[0] != '[' {
		return nil, errors.New("items must be an array")
	}
	var items []model.RawItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("invalid items: %w", err)
	}
	if limit > 0 && len(items) > limit {
		return nil, fmt.Errorf("too many items: %d > %d", len(items), limit)
	}
	return items, nil
}
