package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/orgwatch/internal/adapters/runstore"
	service "github.com/okian/orgwatch/internal/app"
)

func waitForStatus(ctx context.Context, svc *service.Service, id string, want runstore.Status) *runstore.Run {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := svc.Run(ctx, id)
		if err == nil && run.Status == want {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service backed by SQLite", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store, err := runstore.Open(ctx, filepath.Join(t.TempDir(), "runs.db"))
		So(err, ShouldBeNil)
		svc := newService(
			service.WithWorkerCount(2),
			service.WithQueueSize(16),
			service.WithRunStore(store),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a run is submitted", func() {
			run, dup, err := svc.Submit(ctx, "run-a", reports(true))
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
			So(run.ID, ShouldEqual, "run-a")

			Convey("Then it should complete with its result", func() {
				done := waitForStatus(ctx, svc, "run-a", runstore.StatusCompleted)
				So(done, ShouldNotBeNil)
				So(done.Summary, ShouldNotBeNil)
				So(done.Summary.PublishedCount, ShouldEqual, 1)
				So(done.Result, ShouldNotBeNil)
				So(done.Result.Scored[0].Score.Score, ShouldEqual, 63)
			})

			Convey("Then the published profile should carry the run id", func() {
				So(waitForStatus(ctx, svc, "run-a", runstore.StatusCompleted), ShouldNotBeNil)
				p, err := svc.Profile(ctx, "brightline-direct")
				So(err, ShouldBeNil)
				So(p.RunID, ShouldEqual, "run-a")
				So(p.Rank, ShouldEqual, 1)
			})
		})

		Convey("When many runs are submitted", func() {
			ids := []string{"r1", "r2", "r3", "r4", "r5"}
			for _, id := range ids {
				_, _, err := svc.Submit(ctx, id, reports(true))
				So(err, ShouldBeNil)
			}

			Convey("Then every run should complete", func() {
				for _, id := range ids {
					So(waitForStatus(ctx, svc, id, runstore.StatusCompleted), ShouldNotBeNil)
				}
				So(svc.GetStats()["completedRuns"], ShouldEqual, int64(len(ids)))
				So(svc.GetStats()["publishedProfiles"], ShouldEqual, 1)

				runs, err := svc.Runs(ctx, 10)
				So(err, ShouldBeNil)
				So(len(runs), ShouldEqual, len(ids))
			})
		})
	})
}
