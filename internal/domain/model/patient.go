// Package model contains domain models passed between layers.
package model

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/guregu/null.v3"
)

// Column names of the cohort table.
const (
	ColID               = "id"
	ColRelativeSurvival = "relative_survival"
	ColCancer           = "cancer"
	ColMatchedYears     = "matched_survival_years"
	ColTimeToEvent      = "time_to_event_days"
	ColEvent            = "event"
	percentPerRatio     = 100.0
	DaysPerYear         = 365.25
)

// Ordered alias tables: the first column present wins.
var (
	TimeAliases  = []string{ColTimeToEvent, "followup_days", "time_days"}
	EventAliases = []string{ColEvent, "died", "death_event"}
)

// Patient is one cohort row.
type Patient struct {
	ID string
	// RelativeSurvival is a percentage, nominally 0-100.
	RelativeSurvival null.Float
	Cancer           string
	// MatchedYear is the 1-5 horizon, derived when the input lacks it.
	MatchedYear null.Int
	// TimeToEvent is follow-up time in days.
	TimeToEvent null.Float
	// Event holds the raw event cell; see CoerceEvent.
	Event null.String
}

// Ratio converts the percentage to a 0-1 ratio.
func (p Patient) Ratio() null.Float {
	if !p.RelativeSurvival.Valid {
		return null.Float{}
	}
	return null.FloatFrom(p.RelativeSurvival.Float64 / percentPerRatio)
}

// Cohort is the loaded table in domain form.
type Cohort struct {
	Patients []Patient
	// Columns lists the input columns in file order, plus any added later.
	Columns []string
	// TimeColumn and EventColumn are the resolved aliases, empty when absent.
	TimeColumn  string
	EventColumn string
}

// HasColumn reports whether name is one of the cohort's columns.
func (c *Cohort) HasColumn(name string) bool {
	for _, col := range c.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// AddColumn records a new column if it is not already present.
func (c *Cohort) AddColumn(name string) bool {
	if c.HasColumn(name) {
		return false
	}
	c.Columns = append(c.Columns, name)
	return true
}

// ResolveOutcomeColumns re-resolves TimeColumn and EventColumn against Columns.
func (c *Cohort) ResolveOutcomeColumns() {
	c.TimeColumn, _ = ResolveColumn(c.Columns, TimeAliases)
	c.EventColumn, _ = ResolveColumn(c.Columns, EventAliases)
}

// ResolveColumn returns the first alias present in columns.
func ResolveColumn(columns []string, aliases []string) (string, bool) {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	for _, a := range aliases {
		if _, ok := present[a]; ok {
			return a, true
		}
	}
	return "", false
}

// ParseNumber parses a numeric cell. Empty, NA-like and non-numeric cells
// are invalid. Decimal commas are accepted.
func ParseNumber(s string) null.Float {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null", "<nil>":
		return null.Float{}
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// CoerceEvent maps a raw event cell to a strict 0/1 indicator. Numbers are
// truncated toward zero then clamped to [0,1]; booleans map to 1/0; anything
// else, including a missing cell, is 0.
func CoerceEvent(raw null.String) int {
	if !raw.Valid {
		return 0
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(raw.String)); err == nil {
		if b {
			return 1
		}
		return 0
	}
	n := ParseNumber(raw.String)
	if !n.Valid || math.IsInf(n.Float64, 0) {
		return 0
	}
	if math.Trunc(n.Float64) <= 0 {
		return 0
	}
	return 1
}
