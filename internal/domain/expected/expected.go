// Package expected builds the expected-survival reference line from the
// cohort's mean relative survival ratio per matched year.
package expected

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/evalfast/internal/domain/model"
	"github.com/okian/evalfast/internal/domain/step"
)

const (
	baselineRatio = 1.0
	// DefaultSamples is the number of points used to draw the line.
	DefaultSamples = 200
)

// Knot is the mean ratio observed at one matched year.
type Knot struct {
	Year  int64
	Days  float64
	Ratio float64
	N     int
}

// Curve is the reference line. Only the baseline and the last knot shape it:
// it is a single straight segment from (0, 1.0) to (LastDays, LastRatio).
type Curve struct {
	// Knots includes the synthetic baseline at year 0.
	Knots     []Knot
	LastDays  float64
	LastRatio float64
}

// Point is a sampled (days, survival) pair.
type Point struct {
	Days     float64
	Survival float64
}

// Knots groups patients having both a ratio and a matched year by year and
// averages the ratio, ascending by year. No baseline is included.
func Knots(patients []model.Patient) []Knot {
	groups := make(map[int64][]float64)
	for _, p := range patients {
		r := p.Ratio()
		if !r.Valid || !p.MatchedYear.Valid {
			continue
		}
		groups[p.MatchedYear.Int64] = append(groups[p.MatchedYear.Int64], r.Float64)
	}
	knots := make([]Knot, 0, len(groups))
	for year, ratios := range groups {
		knots = append(knots, Knot{
			Year:  year,
			Days:  float64(year) * model.DaysPerYear,
			Ratio: stat.Mean(ratios, nil),
			N:     len(ratios),
		})
	}
	sort.Slice(knots, func(i, j int) bool { return knots[i].Year < knots[j].Year })
	return knots
}

// Build returns the reference curve, or the reason it cannot be drawn.
func Build(c *model.Cohort) step.Result[Curve] {
	if !c.HasColumn(model.ColRelativeSurvival) || !c.HasColumn(model.ColMatchedYears) {
		return step.Unavailablef[Curve]("need columns %q and %q", model.ColRelativeSurvival, model.ColMatchedYears)
	}
	knots := Knots(c.Patients)
	if len(knots) == 0 {
		return step.Unavailablef[Curve]("no rows with both %q and %q", model.ColRelativeSurvival, model.ColMatchedYears)
	}
	all := append([]Knot{{Year: 0, Days: 0, Ratio: baselineRatio}}, knots...)
	last := all[len(all)-1]
	if last.Days <= 0 {
		return step.Unavailable[Curve]("last knot is at time 0")
	}
	return step.Computed(Curve{Knots: all, LastDays: last.Days, LastRatio: last.Ratio})
}

// At evaluates the line at x days, for x in [0, LastDays].
func (c Curve) At(x float64) float64 {
	if x == c.LastDays {
		return c.LastRatio
	}
	return baselineRatio + (c.LastRatio-baselineRatio)*(x/c.LastDays)
}

// Sample returns n evenly spaced points from 0 to LastDays inclusive.
func (c Curve) Sample(n int) []Point {
	if n < 2 {
		n = 2
	}
	pts := make([]Point, n)
	for i := range pts {
		x := c.LastDays * float64(i) / float64(n-1)
		if i == n-1 {
			x = c.LastDays
		}
		pts[i] = Point{Days: x, Survival: c.At(x)}
	}
	return pts
}
