package service

import (
	"context"
	"time"

	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/internal/domain/pipeline"
	"github.com/okian/orgwatch/pkg/logger"
	"github.com/okian/orgwatch/pkg/metrics"
)

// stageObserver forwards pipeline stage timings to metrics.
type stageObserver struct {
	logger logger.Logger
}

func (o stageObserver) ObserveStage(stage string, elapsed time.Duration, out int) {
	ms := float64(elapsed.Microseconds()) / 1000
	if err := metrics.RecordStageDuration(stage, ms); err != nil {
		o.logger.Warn(context.Background(), "failed to record stage duration",
			logger.String("stage", stage), logger.Error(err))
		return
	}
	o.logger.Debug(context.Background(), "stage finished",
		logger.String("stage", stage),
		logger.Duration("elapsed", elapsed),
		logger.Int("out", out),
	)
}

func recordResult(items []model.RawItem, res pipeline.Result) {
	metrics.RecordItems(len(items))
	for _, c := range res.Candidates {
		metrics.RecordCandidate(string(c.TypeHint))
	}
	metrics.RecordEntities(len(res.Entities))
	for _, se := range res.Scored {
		metrics.RecordDecision(string(se.Decision.State), se.Score.Score)
	}
}
