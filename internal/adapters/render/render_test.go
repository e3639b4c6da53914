package render_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"gopkg.in/guregu/null.v3"

	"github.com/okian/evalfast/internal/adapters/render"
	"github.com/okian/evalfast/internal/domain/expected"
	"github.com/okian/evalfast/internal/domain/model"
	"github.com/okian/evalfast/internal/domain/risk"
	"github.com/okian/evalfast/internal/domain/step"
	"github.com/okian/evalfast/internal/domain/summary"
	"github.com/okian/evalfast/internal/domain/survival"
)

func patients() []model.Patient {
	return []model.Patient{
		{ID: "1", RelativeSurvival: null.FloatFrom(20), Cancer: "poumon"},
		{ID: "2", RelativeSurvival: null.FloatFrom(50), Cancer: "vessie"},
		{ID: "3", RelativeSurvival: null.FloatFrom(90), Cancer: "sein"},
		{ID: "4", Cancer: "prostate"},
	}
}

func assertFiles(paths []string) {
	convey.So(paths, convey.ShouldHaveLength, 2)
	for _, p := range paths {
		info, err := os.Stat(p)
		convey.So(err, convey.ShouldBeNil)
		convey.So(info.Size(), convey.ShouldBeGreaterThan, 0)
	}
}

func TestRenderer_Distribution(t *testing.T) {
	convey.Convey("Given a renderer at low resolution", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		r := render.New(dir, render.WithDPI(30), render.WithBins(5))

		convey.Convey("When drawing the ratio distribution", func() {
			ps := patients()
			paths, err := r.Distribution(ctx, "figure1", ps, summary.Compute(ps))

			convey.Convey("Then a PNG and a PDF are written", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(paths[0], convey.ShouldEndWith, "figure1.png")
				convey.So(paths[1], convey.ShouldEndWith, "figure1.pdf")
				assertFiles(paths)
			})
		})

		convey.Convey("When no patient has a ratio", func() {
			ps := []model.Patient{{ID: "x", Cancer: "renal"}}
			_, err := r.Distribution(ctx, "figure1", ps, summary.Compute(ps))

			convey.Convey("Then nothing is drawn", func() {
				convey.So(errors.Is(err, render.ErrNoRatios), convey.ShouldBeTrue)
			})
		})
	})
}

func TestRenderer_Survival(t *testing.T) {
	convey.Convey("Given survival inputs", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		r := render.New(dir, render.WithDPI(30), render.WithAnnotation("RSR 0.493"))

		fit, err := survival.Fit([]survival.Observation{
			{ID: "a", Time: 100, Event: 1},
			{ID: "b", Time: 400, Event: 0},
			{ID: "c", Time: 900, Event: 1},
		})
		convey.So(err, convey.ShouldBeNil)
		km := step.Computed(fit)
		exp := step.Computed(expected.Curve{LastDays: 5 * model.DaysPerYear, LastRatio: 0.5})
		entries := []risk.Entry{
			{Days: 0, Label: "0", Count: step.Computed(3)},
			{Days: 365, Label: "1y", Count: step.Computed(2)},
			{Days: 730, Label: "2y", Count: step.Unavailable[int]("no time column")},
		}

		convey.Convey("When both curves are available", func() {
			paths, err := r.Survival(ctx, "km", km, exp, entries)

			convey.Convey("Then the figure is written", func() {
				convey.So(err, convey.ShouldBeNil)
				assertFiles(paths)
			})
		})

		convey.Convey("When only the expected line is available", func() {
			paths, err := r.Survival(ctx, "km", step.Unavailable[survival.Curve]("no valid rows"), exp, entries)

			convey.Convey("Then the figure is still written", func() {
				convey.So(err, convey.ShouldBeNil)
				assertFiles(paths)
			})
		})

		convey.Convey("When neither curve is available", func() {
			_, err := r.Survival(ctx, "km",
				step.Unavailable[survival.Curve]("missing columns"),
				step.Unavailable[expected.Curve]("missing columns"),
				entries)

			convey.Convey("Then the figure is skipped", func() {
				convey.So(errors.Is(err, render.ErrNoCurves), convey.ShouldBeTrue)
				_, statErr := os.Stat(dir + "/km.png")
				convey.So(os.IsNotExist(statErr), convey.ShouldBeTrue)
			})
		})
	})
}

func TestRiskLabelAndGroups(t *testing.T) {
	convey.Convey("Given risk entries and cancer names", t, func() {
		convey.So(render.RiskLabel(risk.Entry{Count: step.Computed(7)}), convey.ShouldEqual, "7")
		convey.So(render.RiskLabel(risk.Entry{Count: step.Unavailable[int]("x")}), convey.ShouldEqual, "")

		convey.So(render.GroupOf("poumon"), convey.ShouldEqual, "poumon")
		convey.So(render.GroupOf("vessie"), convey.ShouldEqual, "vessie")
		convey.So(render.GroupOf("sein"), convey.ShouldEqual, "other")
		convey.So(render.GroupOf("other"), convey.ShouldEqual, "other")
	})
}
