// Package summary computes descriptive statistics of the relative survival
// ratio and the cancer-type breakdown.
package summary

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/evalfast/internal/domain/model"
)

// CancerCount is one row of the cancer-type breakdown.
type CancerCount struct {
	Cancer string
	Count  int
}

// Summary holds the RSR statistics. Statistics over an empty set are NaN.
type Summary struct {
	Patients     int
	WithRatio    int
	Mean         float64
	Median       float64
	Min          float64
	Max          float64
	OutOfRange   int
	CancerCounts []CancerCount
}

// Ratios returns the non-missing ratios in cohort order.
func Ratios(patients []model.Patient) []float64 {
	out := make([]float64, 0, len(patients))
	for _, p := range patients {
		if r := p.Ratio(); r.Valid {
			out = append(out, r.Float64)
		}
	}
	return out
}

// Compute summarises the cohort.
func Compute(patients []model.Patient) Summary {
	ratios := Ratios(patients)
	s := Summary{
		Patients:     len(patients),
		WithRatio:    len(ratios),
		Mean:         math.NaN(),
		Median:       math.NaN(),
		Min:          math.NaN(),
		Max:          math.NaN(),
		CancerCounts: CancerBreakdown(patients),
	}
	if len(ratios) == 0 {
		return s
	}
	s.Mean = stat.Mean(ratios, nil)
	s.Median = Median(ratios)
	s.Min = floats.Min(ratios)
	s.Max = floats.Max(ratios)
	for _, r := range ratios {
		if r < 0 || r > 1 {
			s.OutOfRange++
		}
	}
	return s
}

// Median averages the two middle values for even-length input; NaN when empty.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// CancerBreakdown counts patients per cancer type, most frequent first and
// ties by name. Patients without a cancer type are not counted.
func CancerBreakdown(patients []model.Patient) []CancerCount {
	counts := make(map[string]int)
	for _, p := range patients {
		if p.Cancer == "" {
			continue
		}
		counts[p.Cancer]++
	}
	out := make([]CancerCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CancerCount{Cancer: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Cancer < out[j].Cancer
	})
	return out
}
