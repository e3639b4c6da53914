package risk_test

import (
	"testing"

	"github.com/okian/evalfast/internal/domain/model"
	"github.com/okian/evalfast/internal/domain/risk"
	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/guregu/null.v3"
)

func withTimes(times ...null.Float) *model.Cohort {
	c := &model.Cohort{Columns: []string{model.ColID, model.ColTimeToEvent, model.ColEvent}}
	for _, tm := range times {
		c.Patients = append(c.Patients, model.Patient{TimeToEvent: tm, Event: null.StringFrom("0")})
	}
	c.ResolveOutcomeColumns()
	return c
}

func counts(entries []risk.Entry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		v, ok := e.Count.Get()
		So(ok, ShouldBeTrue)
		out[i] = v
	}
	return out
}

func TestTable(t *testing.T) {
	Convey("Given follow-up times on and between checkpoints", t, func() {
		c := withTimes(
			null.FloatFrom(0),
			null.FloatFrom(100),
			null.FloatFrom(365),
			null.FloatFrom(366),
			null.FloatFrom(1461),
			null.FloatFrom(2000),
			null.Float{},
		)
		entries := risk.Table(c, risk.Checkpoints)

		Convey("Then counts use a strict inequality", func() {
			So(counts(entries), ShouldResemble, []int{5, 3, 2, 2, 1, 1})
		})

		Convey("Then labels round to whole years", func() {
			labels := make([]string, len(entries))
			for i, e := range entries {
				labels[i] = e.Label
			}
			So(labels, ShouldResemble, []string{"0", "1y", "2y", "3y", "4y", "5y"})
		})
	})

	Convey("Given a patient censored exactly at 365 days", t, func() {
		entries := risk.Table(withTimes(null.FloatFrom(365)), []float64{364, 365})
		So(counts(entries), ShouldResemble, []int{1, 0})
	})

	Convey("Given a cohort without outcome columns", t, func() {
		c := &model.Cohort{Columns: []string{model.ColID}, Patients: []model.Patient{{ID: "1"}}}
		entries := risk.Table(c, risk.Checkpoints)

		Convey("Then every checkpoint is unavailable, not zero", func() {
			So(len(entries), ShouldEqual, len(risk.Checkpoints))
			for _, e := range entries {
				So(e.Count.OK(), ShouldBeFalse)
				So(e.Count.Reason(), ShouldContainSubstring, "time_to_event_days")
			}
		})
	})
}
