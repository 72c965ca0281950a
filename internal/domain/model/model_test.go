package model_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/orgwatch/internal/domain/model"
)

func TestRawItem(t *testing.T) {
	convey.Convey("Given a reddit comment", t, func() {
		item := model.RawItem{
			Title:      "Anyone worked at Brightline?",
			Body:       "commission only",
			URL:        "https://brightline.example",
			Permalink:  "/r/antiwork/comments/abc/",
			CreatedUTC: 1700000000,
			Author:     "someone",
			Subreddit:  "antiwork",
		}

		convey.Convey("When it has every provenance field", func() {
			convey.So(item.HasProvenance(), convey.ShouldBeTrue)
		})

		convey.Convey("When a provenance field is missing", func() {
			for _, mutate := range []func(*model.RawItem){
				func(r *model.RawItem) { r.Permalink = "" },
				func(r *model.RawItem) { r.CreatedUTC = 0 },
				func(r *model.RawItem) { r.Author = "" },
				func(r *model.RawItem) { r.Subreddit = "" },
			} {
				c := item
				mutate(&c)
				convey.So(c.HasProvenance(), convey.ShouldBeFalse)
			}
		})

		convey.Convey("When building a source reference", func() {
			src := item.Source(model.FieldBody)

			convey.Convey("Then relative permalinks become absolute", func() {
				convey.So(src.Permalink, convey.ShouldEqual, "https://reddit.com/r/antiwork/comments/abc/")
				convey.So(src.Field, convey.ShouldEqual, model.FieldBody)
				convey.So(src.Author, convey.ShouldEqual, "someone")
			})

			convey.Convey("And absolute permalinks are kept", func() {
				abs := item
				abs.Permalink = "https://old.reddit.com/r/x/comments/1/"
				convey.So(abs.Source(model.FieldTitle).Permalink, convey.ShouldEqual, abs.Permalink)
			})
		})

		convey.Convey("When listing text fields", func() {
			fields := item.TextFields()

			convey.Convey("Then empty fields are skipped and order is title, body, url", func() {
				convey.So(fields, convey.ShouldResemble, []model.TextField{
					{Field: model.FieldTitle, Text: item.Title},
					{Field: model.FieldBody, Text: item.Body},
					{Field: model.FieldURL, Text: item.URL},
				})
			})

			convey.Convey("And selftext reports as body", func() {
				post := model.RawItem{Selftext: "we were hired on the spot"}
				convey.So(post.TextFields(), convey.ShouldResemble, []model.TextField{
					{Field: model.FieldBody, Text: "we were hired on the spot"},
				})
			})
		})
	})
}

func TestEntityClone(t *testing.T) {
	convey.Convey("Given an entity", t, func() {
		e := model.Entity{
			CanonicalKey: "acme",
			Aliases:      []string{"Acme"},
			Mentions:     []model.Evidence{{Match: "Acme"}},
		}

		convey.Convey("When cloned and the copy is mutated", func() {
			c := e.Clone()
			c.Aliases[0] = "changed"
			c.Mentions[0].Match = "changed"

			convey.Convey("Then the original is untouched", func() {
				convey.So(e.Aliases[0], convey.ShouldEqual, "Acme")
				convey.So(e.Mentions[0].Match, convey.ShouldEqual, "Acme")
			})
		})
	})
}
