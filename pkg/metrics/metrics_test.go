package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "evalfast")
				So(manager.enabled, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"site": "lyon"}),
				WithPrometheusRegistry(registry),
			)
			manager.SetPatientsLoaded(1)

			Convey("Then names and labels follow the options", func() {
				So(manager.Registry(), ShouldEqual, registry)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				So(families[0].GetName(), ShouldStartWith, "test_namespace_test_subsystem_")
				So(families[0].GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "lyon")
			})
		})

		Convey("When empty namespace and subsystem are given", func() {
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "evalfast")
				So(manager.subsystem, ShouldEqual, "report")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on a fresh registry", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When a run is recorded", func() {
			m.SetPatientsLoaded(30)
			m.AddYearsDerived(12)
			m.AddYearsDerived(0)
			m.RecordFollowUp(25, 2)
			m.RecordKaplanMeier(24, 9)
			m.RecordStep("expected", true)
			m.RecordStep("observed", false)
			m.RecordStep("observed", false)
			m.RecordFigure("km_vs_expected", "png")
			m.ObserveRun(1500 * time.Millisecond)

			Convey("Then the values are visible", func() {
				So(testutil.ToFloat64(m.patientsLoaded), ShouldEqual, 30)
				So(testutil.ToFloat64(m.yearsDerived), ShouldEqual, 12)
				So(testutil.ToFloat64(m.followUpMatched), ShouldEqual, 25)
				So(testutil.ToFloat64(m.followUpDuplicates), ShouldEqual, 2)
				So(testutil.ToFloat64(m.kmRows), ShouldEqual, 24)
				So(testutil.ToFloat64(m.kmEvents), ShouldEqual, 9)
				So(testutil.ToFloat64(m.stepOutcomes.WithLabelValues("expected", StatusComputed)), ShouldEqual, 1)
				So(testutil.ToFloat64(m.stepOutcomes.WithLabelValues("observed", StatusUnavailable)), ShouldEqual, 2)
				So(testutil.ToFloat64(m.figuresWritten.WithLabelValues("km_vs_expected", "png")), ShouldEqual, 1)
				So(testutil.CollectAndCount(m.runDuration), ShouldEqual, 1)
				So(testutil.ToFloat64(m.runLastUnix), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When metrics are disabled", func() {
			off := NewManager(WithMetricsEnabled(false), WithPrometheusRegistry(prometheus.NewRegistry()))
			off.SetPatientsLoaded(30)
			off.RecordStep("expected", true)

			Convey("Then nothing is recorded", func() {
				So(testutil.ToFloat64(off.patientsLoaded), ShouldEqual, 0)
				So(testutil.CollectAndCount(off.stepOutcomes), ShouldEqual, 0)
			})
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given recorded metrics", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
		m.SetPatientsLoaded(3)

		Convey("When writing the textfile", func() {
			path := filepath.Join(t.TempDir(), "evalfast.prom")
			So(m.WriteTextfile(path), ShouldBeNil)

			Convey("Then it holds the exposition text", func() {
				b, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(b), ShouldContainSubstring, "evalfast_report_patients_loaded 3")
			})
		})

		Convey("When the directory does not exist", func() {
			err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestDefaultManager(t *testing.T) {
	Convey("Given the process-wide manager", t, func() {
		So(Default(), ShouldNotBeNil)
		So(Default().Registry(), ShouldEqual, GetRegistry())
	})
}
