package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})

		Convey("When initialized with an unknown format", func() {
			err := InitWithFormat(Format("xml"), nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithFormat(FormatJSON, &buf), ShouldBeNil)
		So(SetLevelString("info"), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Info(ctx, "pipeline finished", String("run_id", "r1"), Int("entities", 3), Error(errors.New("boom")))

			var line map[string]any
			So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)

			Convey("Then fields and source are present", func() {
				So(line["msg"], ShouldEqual, "pipeline finished")
				So(line["run_id"], ShouldEqual, "r1")
				So(line["entities"], ShouldEqual, 3)
				So(line["error"], ShouldEqual, "boom")
				So(line["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging below the level", func() {
			Get().Debug(ctx, "hidden")
			So(buf.Len(), ShouldEqual, 0)
		})

		Convey("When using a named logger", func() {
			Named("worker").Warn(ctx, "slow", Bool("retry", true))
			So(buf.String(), ShouldContainSubstring, `"worker"`)
		})

		Convey("When using With", func() {
			Get().With(String("component", "api")).Error(ctx, "failed")
			So(buf.String(), ShouldContainSubstring, `"component":"api"`)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "INFO", "", "warning", "warn", "error"} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		So(SetLevelString("info"), ShouldBeNil)
	})
}

func TestNop(t *testing.T) {
	Convey("Nop discards output and never exits", t, func() {
		l := Nop()
		l.Info(context.Background(), "ignored")
		l.Fatal(context.Background(), "ignored")
		So(l.Named("x"), ShouldNotBeNil)
	})
}
