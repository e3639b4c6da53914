// Package risk computes the number-at-risk row shown under the survival plot.
package risk

import (
	"fmt"
	"math"

	"github.com/okian/evalfast/internal/domain/model"
	"github.com/okian/evalfast/internal/domain/step"
)

// Checkpoints are the risk-table ticks in days, roughly 0 to 5 years.
var Checkpoints = []float64{0, 365, 730, 1095, 1461, 1826}

// Entry is the at-risk count at one checkpoint.
type Entry struct {
	Days  float64
	Label string
	Count step.Result[int]
}

// Label formats a checkpoint as "0" or the nearest whole year, e.g. "3y".
func Label(days float64) string {
	if days <= 0 {
		return "0"
	}
	return fmt.Sprintf("%dy", int(math.Round(days/model.DaysPerYear)))
}

// Table counts, for every checkpoint t, the patients whose follow-up time is
// strictly greater than t. Patients exactly at t are not at risk for that
// tick. Without both a time and an event column every entry is unavailable.
func Table(c *model.Cohort, checkpoints []float64) []Entry {
	entries := make([]Entry, len(checkpoints))
	for i, t := range checkpoints {
		entries[i] = Entry{Days: t, Label: Label(t)}
	}

	if c.TimeColumn == "" || c.EventColumn == "" {
		reason := fmt.Sprintf("need time (%s) and event (%s) columns", model.ColTimeToEvent, model.ColEvent)
		for i := range entries {
			entries[i].Count = step.Unavailable[int](reason)
		}
		return entries
	}

	times := make([]float64, 0, len(c.Patients))
	for _, p := range c.Patients {
		if p.TimeToEvent.Valid {
			times = append(times, p.TimeToEvent.Float64)
		}
	}
	for i, t := range checkpoints {
		n := 0
		for _, ft := range times {
			if ft > t {
				n++
			}
		}
		entries[i].Count = step.Computed(n)
	}
	return entries
}
