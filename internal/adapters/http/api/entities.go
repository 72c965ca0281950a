package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/orgwatch/internal/adapters/repository"
	"github.com/okian/orgwatch/internal/domain/normalize"
	"github.com/okian/orgwatch/internal/domain/publish"
)

type profileResponse struct {
	repository.Profile
	Label      string `json:"label"`
	Disclaimer string `json:"disclaimer"`
}

// EntitiesHandler serves published profiles.
type EntitiesHandler struct {
	deps         EntityDependencies
	defaultLimit int
	maxLimit     int
}

// NewEntitiesHandler creates a new entities handler.
func NewEntitiesHandler(deps EntityDependencies, defaultLimit, maxLimit int) *EntitiesHandler {
	return &EntitiesHandler{deps: deps, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// HandleList handles GET /entities?limit=N requests.
func (h *EntitiesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_entities"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGet handles GET /entities/{slug} requests.
func (h *EntitiesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_entity"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	slug := strings.TrimPrefix(r.URL.Path, "/entities/")
	if !normalize.IsValidSlug(slug) {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	p, err := h.deps.Profile(r.Context(), slug)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Profile: p, Label: p.State.Label(), Disclaimer: publish.Disclaimer})
}
