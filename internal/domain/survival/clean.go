package survival

import (
	"fmt"
	"strings"

	"github.com/okian/evalfast/internal/domain/model"
)

// Observation is one cleaned (duration, event) pair.
type Observation struct {
	ID    string
	Time  float64
	Event int
}

// Clean extracts usable observations: rows missing time or event are
// dropped, negative times are dropped, and the event is coerced to 0/1.
// It fails with a wrapped sentinel when the cohort has no resolvable time or
// event column.
func Clean(c *model.Cohort) ([]Observation, error) {
	var missing []string
	if c.TimeColumn == "" {
		missing = append(missing, fmt.Sprintf("%s (or %s)", model.TimeAliases[0], strings.Join(model.TimeAliases[1:], ", ")))
	}
	if c.EventColumn == "" {
		missing = append(missing, fmt.Sprintf("%s (0/1)", model.EventAliases[0]))
	}
	switch {
	case c.TimeColumn == "" && c.EventColumn == "":
		return nil, fmt.Errorf("%w and %w: %s", ErrMissingTimeColumn, ErrMissingEventColumn, strings.Join(missing, ", "))
	case c.TimeColumn == "":
		return nil, fmt.Errorf("%w: %s", ErrMissingTimeColumn, missing[0])
	case c.EventColumn == "":
		return nil, fmt.Errorf("%w: %s", ErrMissingEventColumn, missing[0])
	}

	out := make([]Observation, 0, len(c.Patients))
	for _, p := range c.Patients {
		if !p.TimeToEvent.Valid || !p.Event.Valid {
			continue
		}
		if p.TimeToEvent.Float64 < 0 {
			continue
		}
		out = append(out, Observation{
			ID:    p.ID,
			Time:  p.TimeToEvent.Float64,
			Event: model.CoerceEvent(p.Event),
		})
	}
	return out, nil
}
