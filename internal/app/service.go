// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/orgwatch/internal/adapters/mq/queue"
	"github.com/okian/orgwatch/internal/adapters/mq/worker"
	"github.com/okian/orgwatch/internal/adapters/repository"
	"github.com/okian/orgwatch/internal/adapters/runstore"
	"github.com/okian/orgwatch/internal/domain/dedupe"
	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/internal/domain/pipeline"
	"github.com/okian/orgwatch/internal/domain/types"
	"github.com/okian/orgwatch/pkg/logger"
	"github.com/okian/orgwatch/pkg/metrics"
)

// Pipeline modes reported to metrics.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Service runs the pipeline for HTTP requests and queued runs, and keeps
// the published profiles.
type Service struct {
	mu sync.RWMutex

	// Core components
	config   pipeline.Config
	pipeline *pipeline.Pipeline
	profiles repository.Store
	runs     runstore.Store
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	pool     *worker.Pool

	// applyMu serializes profile store updates so that the collision
	// context of a run is not changed halfway through its upserts.
	applyMu sync.Mutex

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	jobTimeout  time.Duration

	// State
	started   bool
	stopped   bool
	completed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithPipelineConfig sets the default pipeline configuration.
func WithPipelineConfig(cfg pipeline.Config) Option {
	return func(s *Service) {
		s.config = cfg.Clone()
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the run queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many run IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithJobTimeout bounds a single queued run.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithRunStore replaces the in-memory run store.
func WithRunStore(store runstore.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.runs = store
		}
	}
}

// WithProfileStore replaces the in-memory profile store.
func WithProfileStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.profiles = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. It fails when the pipeline configuration is
// invalid.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		config:      pipeline.DefaultConfig(),
		workerCount: 2,
		queueSize:   1024,
		dedupeSize:  50_000,
		jobTimeout:  5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	p, err := pipeline.New(s.config, pipeline.WithObserver(stageObserver{logger: s.logger}))
	if err != nil {
		return nil, err
	}
	s.pipeline = p

	if s.profiles == nil {
		s.profiles = repository.NewTreapStore()
	}
	if s.runs == nil {
		s.runs = runstore.NewMemory()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	return s, nil
}

// Start launches the worker pool. Runs submitted before Start wait in the queue.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}

	s.pool = worker.NewPool(s.workerCount, s.queue, jobProcessor{svc: s},
		worker.WithJobTimeout(s.jobTimeout),
		worker.WithLogger(s.logger.Named("worker")),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("signals", s.pipeline.Catalog().Len()),
	)
	return nil
}

// Stop drains queued runs and closes the run store. A stopped service
// cannot be restarted.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.logger.Info(ctx, "stopping service...")

	var errs []error
	if s.pool != nil {
		errs = append(errs, s.pool.Shutdown(ctx))
		s.pool = nil
	} else {
		errs = append(errs, s.queue.Close())
	}
	errs = append(errs, s.runs.Close())

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "service stopped")
	return errors.Join(errs...)
}

// PipelineConfig returns a copy of the default pipeline configuration.
func (s *Service) PipelineConfig() pipeline.Config {
	return s.config.Clone()
}

// Process runs the pipeline synchronously. With a nil cfg the service
// defaults apply and published decisions update the profile store. A
// request-level cfg is evaluated without touching the store.
func (s *Service) Process(ctx context.Context, items []model.RawItem, cfg *pipeline.Config) (pipeline.Result, error) {
	p := s.pipeline
	persist := cfg == nil
	if cfg != nil {
		var err error
		if p, err = pipeline.New(*cfg, pipeline.WithObserver(stageObserver{logger: s.logger})); err != nil {
			metrics.RecordPipelineRun(ModeSync, "invalid_config")
			return pipeline.Result{}, err
		}
	}
	return s.execute(ctx, ModeSync, "", p, items, persist)
}

// ProcessJob runs one queued run and records its outcome in the run store.
func (s *Service) ProcessJob(ctx context.Context, job queue.Job) error {
	if err := s.runs.MarkRunning(ctx, job.RunID); err != nil {
		return err
	}
	res, err := s.execute(ctx, ModeAsync, job.RunID, s.pipeline, job.Items, true)
	if err != nil {
		s.failed.Add(1)
		// the job context may be the reason for the failure
		if ferr := s.runs.Fail(context.WithoutCancel(ctx), job.RunID, err.Error()); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}
	s.completed.Add(1)
	return s.runs.Complete(ctx, job.RunID, res)
}

// jobProcessor adapts the service to worker.Processor.
type jobProcessor struct {
	svc *Service
}

func (p jobProcessor) Process(ctx context.Context, job queue.Job) error {
	return p.svc.ProcessJob(ctx, job)
}

func (s *Service) execute(ctx context.Context, mode, runID string, p *pipeline.Pipeline, items []model.RawItem, persist bool) (pipeline.Result, error) {
	if err := ctx.Err(); err != nil {
		metrics.RecordPipelineRun(mode, "cancelled")
		return pipeline.Result{}, err
	}

	existing := s.profiles.Entities(ctx)
	res := p.Run(items, existing)

	if err := ctx.Err(); err != nil {
		metrics.RecordPipelineRun(mode, "cancelled")
		return pipeline.Result{}, err
	}
	if persist {
		if err := s.apply(ctx, runID, res); err != nil {
			metrics.RecordPipelineRun(mode, "error")
			return pipeline.Result{}, err
		}
	}

	recordResult(items, res)
	metrics.RecordPipelineRun(mode, "success")
	s.logger.Debug(ctx, "pipeline run finished",
		logger.String("mode", mode),
		logger.String("run_id", runID),
		logger.Int("items", len(items)),
		logger.Int("entities", res.Summary.TotalEntities),
		logger.Int("published", res.Summary.PublishedCount),
	)
	return res, nil
}

// apply upserts published entities and drops profiles whose latest
// decision is watchlist.
func (s *Service) apply(ctx context.Context, runID string, res pipeline.Result) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	for _, se := range res.Scored {
		if !se.Decision.Publish {
			if removed, err := s.profiles.Remove(ctx, se.Entity.Slug); err != nil {
				return err
			} else if removed {
				s.logger.Info(ctx, "profile withdrawn", logger.String("slug", se.Entity.Slug))
			}
			continue
		}
		_, err := s.profiles.Upsert(ctx, repository.Profile{
			Slug:     se.Entity.Slug,
			Name:     se.Entity.CanonicalName,
			Score:    se.Score.Score,
			State:    se.Decision.State,
			Entity:   se.Entity,
			Result:   se.Score,
			Decision: se.Decision,
			RunID:    runID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Submit records a run and queues it. A run ID seen before is reported as
// a duplicate and not queued again.
func (s *Service) Submit(ctx context.Context, runID string, items []model.RawItem) (*runstore.Run, bool, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	if s.deduper.SeenAndRecord(ctx, runID) {
		metrics.RecordDuplicateRun()
		return nil, true, nil
	}

	run, err := s.runs.Create(ctx, runID, len(items))
	if errors.Is(err, runstore.ErrExists) {
		// known to a persistent store from an earlier process
		metrics.RecordDuplicateRun()
		return nil, true, nil
	}
	if err != nil {
		s.deduper.Unrecord(ctx, runID)
		return nil, false, err
	}

	if err := s.queue.Enqueue(ctx, queue.Job{RunID: runID, Items: items, EnqueuedAt: time.Now()}); err != nil {
		s.deduper.Unrecord(ctx, runID)
		if derr := s.runs.Delete(ctx, runID); derr != nil {
			s.logger.Warn(ctx, "failed to roll back run", logger.String("run_id", runID), logger.Error(derr))
		}
		return nil, false, err
	}
	return run, false, nil
}

// Run returns a run record.
func (s *Service) Run(ctx context.Context, id string) (*runstore.Run, error) {
	return s.runs.Get(ctx, id)
}

// Runs returns the most recent runs.
func (s *Service) Runs(ctx context.Context, limit int) ([]runstore.Run, error) {
	return s.runs.List(ctx, limit)
}

// TopN returns the top N published profiles as listing entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	profiles, err := s.profiles.TopN(ctx, n)
	if err != nil {
		return nil, err
	}
	entries := make([]types.Entry, len(profiles))
	for i, p := range profiles {
		entries[i] = types.Entry{
			Rank:  p.Rank,
			Slug:  p.Slug,
			Name:  p.Name,
			Score: p.Score,
			State: string(p.State),
			Label: p.State.Label(),
		}
	}
	return entries, nil
}

// Profile returns one published profile.
func (s *Service) Profile(ctx context.Context, slug string) (repository.Profile, error) {
	return s.profiles.Get(ctx, slug)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	queueLen := s.queue.Len()
	profiles := s.profiles.Count(ctx)
	metrics.UpdateQueueSize(queueLen)
	metrics.UpdatePublishedProfiles(profiles)

	return map[string]any{
		"started":           s.started,
		"workerCount":       s.workerCount,
		"queueSize":         s.queueSize,
		"queueLength":       queueLen,
		"dedupeSize":        s.dedupeSize,
		"seenRuns":          s.deduper.Size(),
		"publishedProfiles": profiles,
		"completedRuns":     s.completed.Load(),
		"failedRuns":        s.failed.Load(),
		"signals":           s.pipeline.Catalog().Len(),
	}
}
