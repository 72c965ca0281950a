package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/internal/domain/pipeline"
	"github.com/okian/orgwatch/internal/domain/scoring"
)

func reports() []model.RawItem {
	at := func(days int64) int64 { return 1700000000 + days*86400 }
	return []model.RawItem{
		{Body: "i interviewed at Brightline Direct Marketing and it was commission only.", Permalink: "/r/antiwork/comments/t1", CreatedUTC: at(0), Author: "a1", Subreddit: "antiwork"},
		{Body: "same here, Brightline Direct Marketing did a group interview with everyone.", Permalink: "/r/antiwork/comments/t1", CreatedUTC: at(10), Author: "a2", Subreddit: "antiwork"},
		{Body: "Brightline Direct Marketing called me back twice.", Permalink: "/r/sales/comments/t2", CreatedUTC: at(20), Author: "a3", Subreddit: "sales"},
		{Body: "not sure about Brightline Direct Marketing honestly.", Permalink: "/r/sales/comments/t2", CreatedUTC: at(30), Author: "a1", Subreddit: "sales"},
		{Body: "my cousin tried Brightline Direct Marketing last year.", Permalink: "/r/antiwork/comments/t1", CreatedUTC: at(35), Author: "a3", Subreddit: "antiwork"},
		{Body: "Brightline Direct Marketing again, what a mess.", Permalink: "/r/sales/comments/t2", CreatedUTC: at(40), Author: "a2", Subreddit: "sales"},
	}
}

// listingOf wraps items as comments of a single reddit listing.
func listingOf(items []model.RawItem) []byte {
	children := make([]map[string]any, len(items))
	for i, it := range items {
		children[i] = map[string]any{"kind": "t1", "data": it}
	}
	data, _ := json.Marshal(map[string]any{
		"kind": "Listing",
		"data": map[string]any{"children": children},
	})
	return data
}

func clearEnv(t *testing.T) {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "ORGWATCH_") {
			t.Setenv(key, "")
			_ = os.Unsetenv(key)
		}
	}
}

// execute runs the root command and returns what it wrote to stdout.
func execute(stdin string, args ...string) (string, error) {
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCommand(t *testing.T) {
	clearEnv(t)

	Convey("Given a file of raw items", t, func() {
		data, _ := json.Marshal(reports())
		path := writeFile(t, "items.json", data)

		Convey("run prints the full result", func() {
			out, err := execute("", "run", "--format", "items", "--summary=false", path)
			So(err, ShouldBeNil)

			var res pipeline.Result
			So(json.Unmarshal([]byte(out), &res), ShouldBeNil)
			So(res.Summary.PublishedCount, ShouldEqual, 1)
			var published []string
			for _, se := range res.Scored {
				if se.Decision.Publish {
					published = append(published, se.Entity.Slug)
				}
			}
			So(published, ShouldResemble, []string{"brightline-direct"})
		})

		Convey("run --summary reads stdin and prints only counts", func() {
			out, err := execute(string(data), "run", "--format", "items", "--summary", "-")
			So(err, ShouldBeNil)

			var sum pipeline.Summary
			So(json.Unmarshal([]byte(out), &sum), ShouldBeNil)
			So(sum.PublishedCount, ShouldEqual, 1)
			So(sum.TotalCandidates, ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given a reddit listing file", t, func() {
		path := writeFile(t, "listing.json", listingOf(reports()))

		out, err := execute("", "run", "--format", "listing", "--summary", path)
		So(err, ShouldBeNil)
		var sum pipeline.Summary
		So(json.Unmarshal([]byte(out), &sum), ShouldBeNil)
		So(sum.PublishedCount, ShouldEqual, 1)
	})

	Convey("Given bad input", t, func() {
		_, err := execute("", "run", "--format", "items", filepath.Join(t.TempDir(), "missing.json"))
		So(err, ShouldNotBeNil)

		path := writeFile(t, "items.json", []byte(`[]`))
		_, err = execute("", "run", "--format", "csv", path)
		So(err, ShouldNotBeNil)

		bad := writeFile(t, "bad.json", []byte(`{not json`))
		_, err = execute("", "run", "--format", "items", bad)
		So(err, ShouldNotBeNil)
	})

	Convey("Given an invalid environment", t, func() {
		t.Setenv("ORGWATCH_WORKER_COUNT", "0")
		path := writeFile(t, "items.json", []byte(`[]`))
		_, err := execute("", "run", "--format", "items", path)
		So(err, ShouldNotBeNil)
		_ = os.Unsetenv("ORGWATCH_WORKER_COUNT")
	})
}

func TestFetchCommand(t *testing.T) {
	clearEnv(t)

	Convey("Given a listing server", t, func() {
		listing := listingOf(reports())
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/r/antiwork.json", "/r/sales.json":
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(listing)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		Convey("fetch runs one batch over every url", func() {
			out, err := execute("", "fetch", "--summary", "--separate=false", srv.URL+"/r/antiwork")
			So(err, ShouldBeNil)
			var sum pipeline.Summary
			So(json.Unmarshal([]byte(out), &sum), ShouldBeNil)
			So(sum.PublishedCount, ShouldEqual, 1)
		})

		Convey("fetch --separate prints one result per url", func() {
			out, err := execute("", "fetch", "--summary", "--separate", srv.URL+"/r/antiwork", srv.URL+"/r/sales")
			So(err, ShouldBeNil)

			dec := json.NewDecoder(strings.NewReader(out))
			for range 2 {
				var sum pipeline.Summary
				So(dec.Decode(&sum), ShouldBeNil)
				So(sum.PublishedCount, ShouldEqual, 1)
			}
			So(dec.More(), ShouldBeFalse)
		})

		Convey("fetch fails on a missing page", func() {
			t.Setenv("ORGWATCH_REDDIT_ATTEMPTS", "1")
			_, err := execute("", "fetch", "--summary", "--separate=false", srv.URL+"/r/missing")
			So(err, ShouldNotBeNil)
			_ = os.Unsetenv("ORGWATCH_REDDIT_ATTEMPTS")
		})

		Convey("fetch rejects relative urls", func() {
			_, err := execute("", "fetch", "/r/antiwork")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSignalsCommand(t *testing.T) {
	clearEnv(t)

	Convey("signals prints a catalog that loads back", t, func() {
		out, err := execute("", "signals")
		So(err, ShouldBeNil)

		c, err := scoring.LoadCatalog(strings.NewReader(out))
		So(err, ShouldBeNil)
		So(c.Len(), ShouldEqual, scoring.DefaultCatalog().Len())
	})

	Convey("signals honors a signals file", t, func() {
		path := writeFile(t, "signals.yaml", []byte("signals:\n  - id: ONLY\n    weight: 0.5\n    patterns: ['\\bonly\\b']\n"))
		t.Setenv("ORGWATCH_SIGNALS_FILE", path)
		defer func() { _ = os.Unsetenv("ORGWATCH_SIGNALS_FILE") }()

		out, err := execute("", "signals")
		So(err, ShouldBeNil)
		So(out, ShouldContainSubstring, "id: ONLY")
	})
}
