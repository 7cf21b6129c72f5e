package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ribslabs/ribs/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

// clearConfigEnv strips every RIBS_ variable the loader reads so tests
// start from a clean slate regardless of the invoking shell.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"RIBS_CONFIG",
		"RIBS_LOG_LEVEL",
		"RIBS_ADDR",
		"RIBS_SLOUCH_THRESHOLD",
		"RIBS_MONGO_URI",
		"RIBS_MONGO_DB",
		"RIBS_MONGO_USERNAME",
		"RIBS_MONGO_PASSWORD",
		"RIBS_MONGO_HOST",
		"RIBS_MONGO_APP_NAME",
		"RIBS_SERIES_WINDOW_MINUTES",
		"RIBS_EVENTS_LIMIT",
		"RIBS_SAMPLE_INTERVAL_SECONDS",
		"RIBS_API_KEY",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	Convey("Given no file and no environment overrides", t, func() {
		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Then every default is in place", func() {
			So(cfg.Addr, ShouldEqual, ":5000")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.SlouchThreshold, ShouldEqual, 0.6)
			So(cfg.MongoDB, ShouldEqual, "posture")
			So(cfg.MongoAppName, ShouldEqual, "RIBS")
			So(cfg.SeriesWindowMinutes, ShouldEqual, 30)
			So(cfg.EventsLimit, ShouldEqual, 25)
			So(cfg.SampleIntervalSeconds, ShouldEqual, 5)
			So(cfg.APIKey, ShouldEqual, "change-me")
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("RIBS_ADDR", ":8080")
	t.Setenv("RIBS_SLOUCH_THRESHOLD", "0.75")
	t.Setenv("RIBS_EVENTS_LIMIT", "50")
	t.Setenv("RIBS_MONGO_URI", "mongodb://localhost:27017")

	Convey("Given RIBS_ environment variables", t, func() {
		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Then they override the defaults", func() {
			So(cfg.Addr, ShouldEqual, ":8080")
			So(cfg.SlouchThreshold, ShouldEqual, 0.75)
			So(cfg.EventsLimit, ShouldEqual, 50)
			So(cfg.MongoURI, ShouldEqual, "mongodb://localhost:27017")
		})

		Convey("And untouched fields keep their defaults", func() {
			So(cfg.SeriesWindowMinutes, ShouldEqual, 30)
		})
	})
}

func TestLoadFile(t *testing.T) {
	clearConfigEnv(t)

	Convey("Given a YAML config file", t, func() {
		path := writeConfigFile(t, "addr: \":9000\"\nslouch_threshold: 0.5\nlog_level: debug\n")
		t.Setenv("RIBS_CONFIG", path)

		Convey("Then its values override the defaults", func() {
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9000")
			So(cfg.SlouchThreshold, ShouldEqual, 0.5)
			So(cfg.LogLevel, ShouldEqual, "debug")
		})

		Convey("And environment variables outrank the file", func() {
			t.Setenv("RIBS_ADDR", ":9999")
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9999")
			So(cfg.SlouchThreshold, ShouldEqual, 0.5)
		})
	})

	Convey("Given a missing config file", t, func() {
		t.Setenv("RIBS_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

		Convey("Then loading fails with the load sentinel", func() {
			_, err := config.Load(context.Background())
			So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
		})
	})
}

func TestLoadValidation(t *testing.T) {
	clearConfigEnv(t)

	Convey("Given invalid configuration values", t, func() {
		cases := map[string]string{
			"RIBS_SLOUCH_THRESHOLD":        "1.5",
			"RIBS_SERIES_WINDOW_MINUTES":   "0",
			"RIBS_EVENTS_LIMIT":            "-1",
			"RIBS_SAMPLE_INTERVAL_SECONDS": "0",
		}

		for key, value := range cases {
			Convey("Then "+key+"="+value+" is rejected", func() {
				clearConfigEnv(t)
				t.Setenv(key, value)
				_, err := config.Load(context.Background())
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		}
	})
}
