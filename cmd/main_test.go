package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestRun(t *testing.T) {
	convey.Convey("Given a cohort table and an environment", t, func() {
		dir := t.TempDir()
		input := filepath.Join(dir, "evalfast.csv")
		convey.So(os.WriteFile(input, []byte("id;relative_survival;cancer\n1;20;poumon\n2;50;vessie\n"), 0o600), convey.ShouldBeNil)
		metricsFile := filepath.Join(dir, "evalfast.prom")
		setEnv(t, map[string]string{
			"EVALFAST_INPUT_PATH":   input,
			"EVALFAST_OUTPUT_DIR":   dir,
			"EVALFAST_RENDER":       "false",
			"EVALFAST_METRICS_FILE": metricsFile,
			"DB_USER":               "",
			"DB_PASSWORD":           "",
		})

		convey.Convey("When the command runs", func() {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), &stdout, &stderr)

			convey.Convey("Then it succeeds and logs the skipped merge", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(stderr.String(), convey.ShouldBeEmpty)
				convey.So(stdout.String(), convey.ShouldContainSubstring, "DB_USER")
				convey.So(stdout.String(), convey.ShouldContainSubstring, "run_id=")
			})

			convey.Convey("Then the enriched table and metrics are written", func() {
				_, err := os.Stat(filepath.Join(dir, "evalfast_with_derived_matched_years.csv"))
				convey.So(err, convey.ShouldBeNil)
				b, err := os.ReadFile(metricsFile)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(b), convey.ShouldContainSubstring, "evalfast_report_patients_loaded 2")
			})
		})
	})

	convey.Convey("Given an input table that does not exist", t, func() {
		setEnv(t, map[string]string{
			"EVALFAST_INPUT_PATH": filepath.Join(t.TempDir(), "absent.csv"),
			"EVALFAST_RENDER":     "false",
		})

		convey.Convey("When the command runs", func() {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), &stdout, &stderr)

			convey.Convey("Then it exits with the run failure code", func() {
				convey.So(code, convey.ShouldEqual, exitRun)
				convey.So(stdout.String(), convey.ShouldContainSubstring, "cannot load cohort")
			})
		})
	})

	convey.Convey("Given an invalid configuration", t, func() {
		setEnv(t, map[string]string{"EVALFAST_DPI": "0"})

		convey.Convey("Then the command exits with the config code", func() {
			var stdout, stderr bytes.Buffer
			convey.So(run(context.Background(), &stdout, &stderr), convey.ShouldEqual, exitConfig)
			convey.So(stderr.String(), convey.ShouldContainSubstring, "failed to load config")
		})
	})
}
