package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/okian/orgwatch/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New(ctx))
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ORGWATCH_ADDR", ":8080")
			_ = os.Setenv("ORGWATCH_QUEUE_SIZE", "64")
			_ = os.Setenv("ORGWATCH_WORKER_COUNT", "16")
			_ = os.Setenv("ORGWATCH_RATE_LIMIT_RPS", "2.5")
			_ = os.Setenv("ORGWATCH_MIN_SCORE", "60")
			_ = os.Setenv("ORGWATCH_COLLISION_SIMILARITY", "0.8")
			_ = os.Setenv("ORGWATCH_LEGAL_SUFFIXES", "inc,llc,gmbh")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.RateLimitRPS, convey.ShouldEqual, 2.5)
				convey.So(cfg.MinScore, convey.ShouldEqual, 60)
				convey.So(cfg.CollisionSimilarity, convey.ShouldEqual, 0.8)
				convey.So(cfg.LegalSuffixes, convey.ShouldResemble, []string{"inc", "llc", "gmbh"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := createTempConfigFile(t, `
addr: ":7070"
queue_size: 32
run_store_dsn: /tmp/runs.db
min_signals: 3
signal_weights:
  GROUP_INTERVIEW: 1.4
generic_words:
  - marketing
  - solutions
`)
			_ = os.Setenv(config.EnvFile, path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 32)
				convey.So(cfg.RunStoreDSN, convey.ShouldEqual, "/tmp/runs.db")
				convey.So(cfg.MinSignals, convey.ShouldEqual, 3)
				convey.So(cfg.SignalWeights["GROUP_INTERVIEW"], convey.ShouldEqual, 1.4)
				convey.So(cfg.GenericWords, convey.ShouldResemble, []string{"marketing", "solutions"})
			})

			convey.Convey("Then missing keys should keep their defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MaxEntitiesLimit, convey.ShouldEqual, 500)
				convey.So(cfg.MinScore, convey.ShouldEqual, 55)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := createTempConfigFile(t, "addr: \":7070\"\nworker_count: 4\n")
			_ = os.Setenv(config.EnvFile, path)
			_ = os.Setenv("ORGWATCH_WORKER_COUNT", "9")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 9)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			path := createTempConfigFile(t, "addr: [unterminated\n")
			_ = os.Setenv(config.EnvFile, path)

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv(config.EnvFile, "/nonexistent/orgwatch.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("ORGWATCH_QUEUE_SIZE", "lots")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config that fails validation", func() {
			_ = os.Setenv("ORGWATCH_MIN_SCORE", "150")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "ORGWATCH_") {
			_ = os.Unsetenv(key)
		}
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "orgwatch-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}
