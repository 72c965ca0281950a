package reddit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/orgwatch/internal/adapters/reddit"
	"github.com/okian/orgwatch/internal/domain/model"
)

const threadJSON = `[
  {"kind": "Listing", "data": {"children": [
    {"kind": "t3", "data": {
      "title": "Anyone heard of Brightline Direct Marketing?",
      "selftext": "They said it was commission only.",
      "url": "https://www.reddit.com/r/antiwork/comments/abc/anyone/",
      "permalink": "/r/antiwork/comments/abc/anyone/",
      "created_utc": 1700000000.0,
      "author": "op",
      "subreddit": "antiwork"
    }}
  ]}},
  {"kind": "Listing", "data": {"children": [
    {"kind": "t1", "data": {
      "body": "Group interview, everyone in a room.",
      "permalink": "/r/antiwork/comments/abc/anyone/c1/",
      "created_utc": 1700000100.7,
      "author": "first",
      "subreddit": "antiwork",
      "replies": {"kind": "Listing", "data": {"children": [
        {"kind": "t1", "data": {
          "body": "Same here.",
          "permalink": "/r/antiwork/comments/abc/anyone/c2/",
          "created_utc": 1700000200,
          "author": "second",
          "subreddit": "antiwork",
          "replies": ""
        }},
        {"kind": "more", "data": {"children": ["c9"]}}
      ]}}
    }},
    {"kind": "t1", "data": {
      "body": "Never worked there.",
      "permalink": "/r/antiwork/comments/abc/anyone/c3/",
      "created_utc": 1700000300,
      "author": "third",
      "subreddit": "antiwork",
      "replies": ""
    }}
  ]}}
]`

func TestParseListing(t *testing.T) {
	Convey("Given a thread page", t, func() {
		items, err := reddit.ParseListing([]byte(threadJSON))
		So(err, ShouldBeNil)

		Convey("Posts and comments are flattened depth-first", func() {
			So(len(items), ShouldEqual, 4)
			authors := make([]string, len(items))
			for i, it := range items {
				authors[i] = it.Author
			}
			So(authors, ShouldResemble, []string{"op", "first", "second", "third"})
		})

		Convey("Fields carry over", func() {
			So(items[0].Title, ShouldEqual, "Anyone heard of Brightline Direct Marketing?")
			So(items[0].Selftext, ShouldEqual, "They said it was commission only.")
			So(items[0].Subreddit, ShouldEqual, "antiwork")
			So(items[1].CreatedUTC, ShouldEqual, int64(1700000100))
			So(items[1].HasProvenance(), ShouldBeTrue)
		})
	})

	Convey("Given a single listing", t, func() {
		items, err := reddit.ParseListing([]byte(`{"kind":"Listing","data":{"children":[{"kind":"t3","data":{"title":"x","permalink":"/r/a/comments/1/"}}]}}`))
		So(err, ShouldBeNil)
		So(items, ShouldResemble, []model.RawItem{{Title: "x", Permalink: "/r/a/comments/1/"}})
	})

	Convey("Given malformed input", t, func() {
		_, err := reddit.ParseListing([]byte(`{"kind":`))
		So(err, ShouldNotBeNil)
		_, err = reddit.ParseListing([]byte("  "))
		So(err, ShouldNotBeNil)
	})
}

func TestListingURL(t *testing.T) {
	Convey("Page URLs map to their JSON form", t, func() {
		cases := []struct{ in, want string }{
			{"https://www.reddit.com/r/antiwork/comments/abc/title/", "https://www.reddit.com/r/antiwork/comments/abc/title.json"},
			{"https://www.reddit.com/r/antiwork/new", "https://www.reddit.com/r/antiwork/new.json"},
			{"https://www.reddit.com/r/antiwork/new.json?limit=100", "https://www.reddit.com/r/antiwork/new.json?limit=100"},
		}
		for _, c := range cases {
			got, err := reddit.ListingURL(c.in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, c.want)
		}
	})

	Convey("Relative or non-http URLs are rejected", t, func() {
		_, err := reddit.ListingURL("/r/antiwork")
		So(err, ShouldNotBeNil)
		_, err = reddit.ListingURL("ftp://example.com/x")
		So(err, ShouldNotBeNil)
	})
}

func TestClientFetch(t *testing.T) {
	Convey("Given a listing server", t, func() {
		var calls atomic.Int32
		var failures atomic.Int32
		var status atomic.Int32
		status.Store(http.StatusOK)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if r.Header.Get("User-Agent") != "orgwatch-test" || r.URL.Path != "/r/antiwork/comments/abc.json" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if failures.Load() > 0 {
				failures.Add(-1)
				w.WriteHeader(int(status.Load()))
				return
			}
			_, _ = w.Write([]byte(threadJSON))
		}))
		defer srv.Close()

		client := reddit.NewClient(
			reddit.WithUserAgent("orgwatch-test"),
			reddit.WithAttempts(3),
			reddit.WithDelay(time.Millisecond),
		)
		ctx := context.Background()
		target := srv.URL + "/r/antiwork/comments/abc/"

		Convey("A healthy fetch parses the thread", func() {
			items, err := client.Fetch(ctx, target)
			So(err, ShouldBeNil)
			So(len(items), ShouldEqual, 4)
			So(calls.Load(), ShouldEqual, 1)
		})

		Convey("Transient failures are retried", func() {
			failures.Store(2)
			status.Store(http.StatusServiceUnavailable)
			items, err := client.Fetch(ctx, target)
			So(err, ShouldBeNil)
			So(len(items), ShouldEqual, 4)
			So(calls.Load(), ShouldEqual, 3)
		})

		Convey("Permanent failures are not retried", func() {
			failures.Store(5)
			status.Store(http.StatusNotFound)
			_, err := client.Fetch(ctx, target)
			So(err, ShouldNotBeNil)
			So(calls.Load(), ShouldEqual, 1)
		})

		Convey("Exhausted retries return an error", func() {
			failures.Store(5)
			status.Store(http.StatusTooManyRequests)
			_, err := client.Fetch(ctx, target)
			So(err, ShouldNotBeNil)
			So(calls.Load(), ShouldEqual, 3)
		})
	})
}
