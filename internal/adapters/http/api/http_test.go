package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/orgwatch/internal/adapters/http/api"
	"github.com/okian/orgwatch/internal/adapters/mq/queue"
	"github.com/okian/orgwatch/internal/adapters/repository"
	"github.com/okian/orgwatch/internal/adapters/runstore"
	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/internal/domain/pipeline"
	"github.com/okian/orgwatch/internal/domain/publish"
	"github.com/okian/orgwatch/internal/domain/types"
)

type mockDeps struct {
	processed  [][]model.RawItem
	lastConfig *pipeline.Config
	processErr error

	seen      map[string]bool
	submitErr error
	runs      map[string]*runstore.Run

	entries  []types.Entry
	profiles map[string]repository.Profile
	topNErr  error
}

func newMockDeps() *mockDeps {
	return &mockDeps{
		seen:     map[string]bool{},
		runs:     map[string]*runstore.Run{},
		profiles: map[string]repository.Profile{},
	}
}

func (m *mockDeps) PipelineConfig() pipeline.Config { return pipeline.DefaultConfig() }

func (m *mockDeps) Process(_ context.Context, items []model.RawItem, cfg *pipeline.Config) (pipeline.Result, error) {
	if m.processErr != nil {
		return pipeline.Result{}, m.processErr
	}
	m.processed = append(m.processed, items)
	m.lastConfig = cfg
	return pipeline.Result{Summary: pipeline.Summary{TotalCandidates: len(items)}}, nil
}

func (m *mockDeps) Submit(_ context.Context, runID string, items []model.RawItem) (*runstore.Run, bool, error) {
	if m.submitErr != nil {
		return nil, false, m.submitErr
	}
	if runID == "" {
		runID = fmt.Sprintf("generated-%d", len(m.runs))
	}
	if m.seen[runID] {
		return nil, true, nil
	}
	m.seen[runID] = true
	run := &runstore.Run{ID: runID, Status: runstore.StatusQueued, Items: len(items)}
	m.runs[runID] = run
	return run, false, nil
}

func (m *mockDeps) Run(_ context.Context, id string) (*runstore.Run, error) {
	r, ok := m.runs[id]
	if !ok {
		return nil, runstore.ErrNotFound
	}
	return r, nil
}

func (m *mockDeps) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if m.topNErr != nil {
		return nil, m.topNErr
	}
	if n > len(m.entries) {
		return m.entries, nil
	}
	return m.entries[:n], nil
}

func (m *mockDeps) Profile(_ context.Context, slug string) (repository.Profile, error) {
	p, ok := m.profiles[slug]
	if !ok {
		return repository.Profile{}, repository.ErrNotFound
	}
	return p, nil
}

type mockStats struct{}

func (mockStats) GetStats() map[string]any { return map[string]any{"published_profiles": 1} }

func newMux(deps *mockDeps, limits api.Limits) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}, limits).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

const oneItem = `{"items":[{"title":"Brightline Direct Marketing","permalink":"/r/a/comments/1/","created_utc":1700000000,"author":"u","subreddit":"a"}]}`

func TestProcess(t *testing.T) {
	Convey("Given the process endpoint", t, func() {
		deps := newMockDeps()
		mux := newMux(deps, api.Limits{MaxItems: 2})

		Convey("A valid batch is processed", func() {
			w := do(mux, http.MethodPost, "/api/extraction/process", oneItem)
			So(w.Code, ShouldEqual, http.StatusOK)

			var body struct {
				Success bool            `json:"success"`
				Result  pipeline.Result `json:"result"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Success, ShouldBeTrue)
			So(body.Result.Summary.TotalCandidates, ShouldEqual, 1)
			So(deps.processed[0][0].Author, ShouldEqual, "u")
			So(deps.lastConfig, ShouldBeNil)
		})

		Convey("Config overrides are layered on the defaults", func() {
			w := do(mux, http.MethodPost, "/api/extraction/process",
				`{"items":[],"config":{"thresholds":{"min_score":40},"signal_weights":{"GROUP_INTERVIEW":2}}}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastConfig, ShouldNotBeNil)
			So(deps.lastConfig.Thresholds.MinScore, ShouldEqual, 40)
			So(deps.lastConfig.Thresholds.MinUniqueMentions, ShouldEqual, publish.DefaultThresholds().MinUniqueMentions)
			So(deps.lastConfig.SignalWeights["GROUP_INTERVIEW"], ShouldEqual, 2)
		})

		Convey("Structural problems are 400", func() {
			bodies := []string{
				`{`,
				`{}`,
				`{"items":null}`,
				`{"items":{"title":"x"}}`,
				`{"items":"nope"}`,
				`{"items":[{},{},{}]}`,
				`{"items":[],"config":{"thresholds":"x"}}`,
			}
			for _, b := range bodies {
				w := do(mux, http.MethodPost, "/api/extraction/process", b)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("Invalid configuration is 400", func() {
			deps.processErr = fmt.Errorf("%w: bad weights", pipeline.ErrInvalidConfig)
			w := do(mux, http.MethodPost, "/api/extraction/process", oneItem)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "invalid_config")
		})

		Convey("Unexpected failures are 500", func() {
			deps.processErr = errors.New("disk on fire")
			w := do(mux, http.MethodPost, "/api/extraction/process", oneItem)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("Other methods are 404", func() {
			w := do(mux, http.MethodGet, "/api/extraction/process", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a rate limit of one request", t, func() {
		mux := newMux(newMockDeps(), api.Limits{RateLimitRPS: 0.001, RateLimitBurst: 1})

		Convey("The second request is rejected", func() {
			So(do(mux, http.MethodPost, "/api/extraction/process", oneItem).Code, ShouldEqual, http.StatusOK)
			w := do(mux, http.MethodPost, "/api/extraction/process", oneItem)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(w.Header().Get("Retry-After"), ShouldEqual, "1")
		})
	})
}

func TestRuns(t *testing.T) {
	Convey("Given the runs endpoints", t, func() {
		deps := newMockDeps()
		mux := newMux(deps, api.Limits{})
		body := `{"run_id":"r1","items":[]}`

		Convey("A new run is accepted", func() {
			w := do(mux, http.MethodPost, "/runs", body)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(w.Body.String(), ShouldContainSubstring, `"status":"queued"`)

			Convey("And resubmitting it is a duplicate", func() {
				w := do(mux, http.MethodPost, "/runs", body)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})

			Convey("And it can be read back", func() {
				w := do(mux, http.MethodGet, "/runs/r1", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"run_id":"r1"`)
			})
		})

		Convey("A run without an id gets one", func() {
			w := do(mux, http.MethodPost, "/runs", `{"items":[]}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(w.Body.String(), ShouldContainSubstring, "generated-0")
		})

		Convey("A full queue is 429", func() {
			deps.submitErr = fmt.Errorf("enqueue: %w", queue.ErrFull)
			w := do(mux, http.MethodPost, "/runs", body)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(errorCode(w), ShouldEqual, "backpressure")
		})

		Convey("Missing items are 400", func() {
			So(do(mux, http.MethodPost, "/runs", `{"run_id":"r2"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/runs", `{"run_id":"a/b","items":[]}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Unknown runs are 404", func() {
			So(do(mux, http.MethodGet, "/runs/nope", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/runs/", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestEntities(t *testing.T) {
	Convey("Given published profiles", t, func() {
		deps := newMockDeps()
		deps.entries = []types.Entry{
			{Rank: 1, Slug: "brightline-direct", Name: "Brightline Direct", Score: 63, State: string(publish.StatePublicLow)},
			{Rank: 2, Slug: "valore-events", Name: "Valore Events", Score: 58, State: string(publish.StatePublicLow)},
		}
		deps.profiles["brightline-direct"] = repository.Profile{
			Rank: 1, Slug: "brightline-direct", Name: "Brightline Direct", Score: 63, State: publish.StatePublicLow,
		}
		mux := newMux(deps, api.Limits{MaxEntities: 10})

		Convey("The list is returned in rank order", func() {
			w := do(mux, http.MethodGet, "/entities?limit=1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var entries []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
			So(len(entries), ShouldEqual, 1)
			So(entries[0].Slug, ShouldEqual, "brightline-direct")

			w = do(mux, http.MethodGet, "/entities", "")
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
			So(len(entries), ShouldEqual, 2)
		})

		Convey("Bad limits are 400", func() {
			So(do(mux, http.MethodGet, "/entities?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/entities?limit=x", "").Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodGet, "/entities?limit=11", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "limit_exceeded")
		})

		Convey("Store failures are 500", func() {
			deps.topNErr = errors.New("boom")
			So(do(mux, http.MethodGet, "/entities", "").Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("A profile carries its label and disclaimer", func() {
			w := do(mux, http.MethodGet, "/entities/brightline-direct", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["slug"], ShouldEqual, "brightline-direct")
			So(body["label"], ShouldEqual, publish.StatePublicLow.Label())
			So(body["disclaimer"], ShouldEqual, publish.Disclaimer)
		})

		Convey("Unknown profiles are 404 and malformed slugs 400", func() {
			So(do(mux, http.MethodGet, "/entities/unknown-org", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/entities/Not_A_Slug", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServiceEndpoints(t *testing.T) {
	Convey("Given the service endpoints", t, func() {
		mux := newMux(newMockDeps(), api.Limits{})

		Convey("Health serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "orgwatch_vetting_")
		})

		Convey("Stats are JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, "published_profiles")
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Kinds survive wrapping", t, func() {
		err := api.WrapKind("api.op", api.ErrBadRequest, errors.New("cause"))
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "cause")
		So(errors.Is(api.NewKind("api.op", api.ErrNotFound), api.ErrNotFound), ShouldBeTrue)

		base := errors.New("base")
		So(errors.Is(api.Wrap("api.op", base), base), ShouldBeTrue)
	})
}
