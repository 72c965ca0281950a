// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/okian/orgwatch/internal/adapters/repository"
	"github.com/okian/orgwatch/internal/adapters/runstore"
	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/internal/domain/pipeline"
	"github.com/okian/orgwatch/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ProcessDependencies
	RunDependencies
	EntityDependencies
}

// ProcessDependencies runs the pipeline synchronously.
type ProcessDependencies interface {
	// PipelineConfig returns the service defaults request overrides apply to.
	PipelineConfig() pipeline.Config
	Process(ctx context.Context, items []model.RawItem, cfg *pipeline.Config) (pipeline.Result, error)
}

// RunDependencies accepts and reports asynchronous runs.
type RunDependencies interface {
	// Submit queues a run. duplicate is true when runID was seen before.
	Submit(ctx context.Context, runID string, items []model.RawItem) (run *runstore.Run, duplicate bool, err error)
	Run(ctx context.Context, id string) (*runstore.Run, error)
}

// EntityDependencies reads published profiles.
type EntityDependencies interface {
	TopN(ctx context.Context, n int) ([]Entry, error)
	Profile(ctx context.Context, slug string) (repository.Profile, error)
}

// Entry mirrors the read shape returned by ranking queries.
type Entry = types.Entry

// Limits bounds request sizes.
type Limits struct {
	MaxEntities     int
	MaxItems        int
	RateLimitRPS    float64
	RateLimitBurst  int
	DefaultEntities int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxEntities: 500, MaxItems: 10000, DefaultEntities: 50}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	processHandler  *ProcessHandler
	runsHandler     *RunsHandler
	entitiesHandler *EntitiesHandler
	limiter         *rate.Limiter
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, limits Limits) *Server {
	def := DefaultLimits()
	if limits.MaxEntities < 1 {
		limits.MaxEntities = def.MaxEntities
	}
	if limits.MaxItems < 1 {
		limits.MaxItems = def.MaxItems
	}
	if limits.DefaultEntities < 1 || limits.DefaultEntities > limits.MaxEntities {
		limits.DefaultEntities = min(def.DefaultEntities, limits.MaxEntities)
	}
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		processHandler:  NewProcessHandler(deps, limits.MaxItems),
		runsHandler:     NewRunsHandler(deps, limits.MaxItems),
		entitiesHandler: NewEntitiesHandler(deps, limits.DefaultEntities, limits.MaxEntities),
	}
	if limits.RateLimitRPS > 0 {
		burst := limits.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(limits.RateLimitRPS), burst)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/extraction/process", MetricsMiddleware(
		RateLimitMiddleware(s.processHandler.HandleProcess, "process", s.limiter), "process"))
	mux.HandleFunc("/runs", MetricsMiddleware(
		RateLimitMiddleware(s.runsHandler.HandlePostRun, "runs", s.limiter), "runs"))
	mux.HandleFunc("/runs/", MetricsMiddleware(s.runsHandler.HandleGetRun, "run"))
	mux.HandleFunc("/entities", MetricsMiddleware(s.entitiesHandler.HandleList, "entities"))
	mux.HandleFunc("/entities/", MetricsMiddleware(s.entitiesHandler.HandleGet, "entity"))
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Success: false, Code: code, Message: msg})
}
