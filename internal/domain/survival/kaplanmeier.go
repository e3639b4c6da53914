// Package survival estimates the observed survival curve with the
// Kaplan-Meier product-limit estimator.
package survival

import (
	"fmt"
	"sort"

	"github.com/kshedden/statmodel/duration"
	"github.com/kshedden/statmodel/statmodel"

	"github.com/okian/evalfast/internal/domain/model"
	"github.com/okian/evalfast/internal/domain/step"
)

// Point is one step of the survival function. Survival applies from Time
// (inclusive) until the next point.
type Point struct {
	Time     float64
	Survival float64
	AtRisk   int
	Events   int
	Censored int
}

// Curve is a fitted survival function.
type Curve struct {
	Points   []Point
	Rows     int
	Events   int
	EventIDs []string
}

// Column names of the dataset handed to the estimator.
const (
	timeVar   = "time"
	statusVar = "status"
)

// Fit estimates the survival function with statmodel's product-limit
// estimator and projects it onto every distinct observed time. The timeline
// starts at 0 with survival 1; events and censorings sharing a time are
// resolved together.
func Fit(obs []Observation) (Curve, error) {
	sorted := append([]Observation(nil), obs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	c := Curve{Rows: len(sorted)}
	if len(sorted) == 0 || sorted[0].Time > 0 {
		c.Points = append(c.Points, Point{Time: 0, Survival: 1, AtRisk: len(sorted)})
	}
	if len(sorted) == 0 {
		return c, nil
	}

	times, surv, err := productLimit(sorted)
	if err != nil {
		return Curve{}, err
	}

	atRisk := len(sorted)
	k := 0
	s := 1.0
	for i := 0; i < len(sorted); {
		t := sorted[i].Time
		var d, cens int
		j := i
		for ; j < len(sorted) && sorted[j].Time == t; j++ {
			if sorted[j].Event == 1 {
				d++
				c.EventIDs = append(c.EventIDs, sorted[j].ID)
			} else {
				cens++
			}
		}
		for ; k < len(times) && times[k] <= t; k++ {
			s = surv[k]
		}
		c.Points = append(c.Points, Point{Time: t, Survival: s, AtRisk: atRisk, Events: d, Censored: cens})
		c.Events += d
		atRisk -= d + cens
		i = j
	}
	return c, nil
}

// productLimit returns the estimator's step times and survival values.
func productLimit(sorted []Observation) ([]float64, []float64, error) {
	tv := make([]float64, len(sorted))
	sv := make([]float64, len(sorted))
	for i, o := range sorted {
		tv[i] = o.Time
		sv[i] = float64(o.Event)
	}
	ds := statmodel.NewDataset([][]float64{tv, sv}, []string{timeVar, statusVar})
	sf, err := duration.NewSurvfuncRight(ds, timeVar, statusVar, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFit, err)
	}
	sf.Fit()
	times, surv := sf.Time(), sf.SurvProb()
	if len(times) != len(surv) {
		return nil, nil, fmt.Errorf("%w: %d times for %d survival values", ErrFit, len(times), len(surv))
	}
	return times, surv, nil
}

// At returns S(t): the survival of the last step at or before t.
func (c Curve) At(t float64) float64 {
	idx := sort.Search(len(c.Points), func(i int) bool { return c.Points[i].Time > t })
	if idx == 0 {
		return 1
	}
	return c.Points[idx-1].Survival
}

// Estimate cleans the cohort and fits the curve, reporting why it could not
// when the columns are missing or nothing survives cleaning.
func Estimate(c *model.Cohort) step.Result[Curve] {
	obs, err := Clean(c)
	if err != nil {
		return step.Unavailable[Curve](err.Error())
	}
	if len(obs) == 0 {
		return step.Unavailable[Curve](ErrNoValidRows.Error())
	}
	curve, err := Fit(obs)
	if err != nil {
		return step.Unavailable[Curve](err.Error())
	}
	return step.Computed(curve)
}
