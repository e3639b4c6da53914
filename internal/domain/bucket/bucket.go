// Package bucket derives the matched survival year from the relative-survival
// percentage when the cohort does not carry it.
package bucket

import (
	"gopkg.in/guregu/null.v3"

	"github.com/okian/evalfast/internal/domain/model"
)

// Upper edges of buckets 1..4; everything above the last edge is bucket 5.
// Edges are closed: a value equal to an edge falls in the lower bucket.
var upperEdges = [...]float64{20, 40, 60, 80}

// Year maps a percentage to its 1-5 bucket.
func Year(percentage float64) int {
	for i, edge := range upperEdges {
		if percentage <= edge {
			return i + 1
		}
	}
	return len(upperEdges) + 1
}

// YearOf is Year for an optional percentage; missing stays missing.
func YearOf(percentage null.Float) null.Int {
	if !percentage.Valid {
		return null.Int{}
	}
	return null.IntFrom(int64(Year(percentage.Float64)))
}

// Derive fills MatchedYear for every patient that lacks it and has a
// percentage, adding the column to the cohort if needed. It returns the
// number of rows it filled.
func Derive(c *model.Cohort) int {
	c.AddColumn(model.ColMatchedYears)
	derived := 0
	for i := range c.Patients {
		p := &c.Patients[i]
		if p.MatchedYear.Valid || !p.RelativeSurvival.Valid {
			continue
		}
		p.MatchedYear = YearOf(p.RelativeSurvival)
		derived++
	}
	return derived
}
