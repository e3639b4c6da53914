package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/evalfast/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have the report defaults", func() {
			convey.So(cfg.InputPath, convey.ShouldEqual, "evalfast.csv")
			convey.So(cfg.InputEncoding, convey.ShouldEqual, "cp1252")
			convey.So(cfg.Comma(), convey.ShouldEqual, ';')
			convey.So(cfg.EnrichedPath, convey.ShouldEqual, "evalfast_with_derived_matched_years.csv")
			convey.So(cfg.DistributionFigure, convey.ShouldEqual, "figure1_rsr_distribution")
			convey.So(cfg.SurvivalFigure, convey.ShouldEqual, "km_vs_expected")
			convey.So(cfg.Render, convey.ShouldBeTrue)
			convey.So(cfg.DPI, convey.ShouldEqual, 300)
			convey.So(cfg.HistogramBins, convey.ShouldEqual, 10)
			convey.So(cfg.DB.Name, convey.ShouldEqual, "evalfast")
			convey.So(cfg.DB.Host, convey.ShouldEqual, "localhost")
			convey.So(cfg.DB.Port, convey.ShouldEqual, "5432")
			convey.So(cfg.DB.Table, convey.ShouldEqual, "psyfast_fup")
			convey.So(cfg.DB.Timeout, convey.ShouldEqual, 15*time.Second)
			convey.So(cfg.Validate(context.Background()), convey.ShouldBeNil)
		})

		convey.Convey("Then user and password are reported missing", func() {
			convey.So(cfg.DB.Missing(), convey.ShouldResemble, []string{"DB_USER", "DB_PASSWORD"})
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid configurations", t, func() {
		ctx := context.Background()
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"an empty input", func(c *config.Config) { c.InputPath = " " }},
			{"a long delimiter", func(c *config.Config) { c.Delimiter = ";;" }},
			{"zero dpi", func(c *config.Config) { c.DPI = 0 }},
			{"negative bins", func(c *config.Config) { c.HistogramBins = -1 }},
			{"an unknown encoding", func(c *config.Config) { c.InputEncoding = "latin9" }},
		}
		for _, tc := range cases {
			convey.Convey("When the config has "+tc.name, func() {
				cfg := config.New(ctx)
				tc.mutate(cfg)
				err := cfg.Validate(ctx)

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})
}

func TestDBConfig_DSN(t *testing.T) {
	convey.Convey("Given complete DB settings", t, func() {
		d := config.DBConfig{Name: "evalfast", User: "u", Password: "p", Host: "db", Port: "6543", SSLMode: "require"}

		convey.Convey("Then the DSN carries every parameter", func() {
			convey.So(d.DSN(), convey.ShouldEqual, "host=db user=u password=p dbname=evalfast port=6543 sslmode=require")
			convey.So(d.Missing(), convey.ShouldBeEmpty)
		})
	})
}
