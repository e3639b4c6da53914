// Package enrich merges follow-up outcomes (time to event, event indicator)
// from an external source into a cohort that lacks them.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/guregu/null.v3"

	"github.com/okian/evalfast/internal/domain/dedupe"
	"github.com/okian/evalfast/internal/domain/model"
	"github.com/okian/evalfast/internal/domain/step"
)

const maxReportedIDs = 20

// Record is one follow-up row as delivered by a Source, before coercion.
type Record struct {
	ID    string
	Event null.String
	Time  null.String
}

// Source fetches follow-up records for the given patient ids.
type Source interface {
	FetchFollowUp(ctx context.Context, ids []string) ([]Record, error)
}

// Outcome describes what the merge did.
type Outcome struct {
	Matched    int
	Duplicates int
	Added      []string
	// EventsWithTime counts source events that carry a time.
	EventsWithTime int
	InCohort       int
	// MissingFromCohort lists up to 20 event ids absent from the cohort.
	MissingFromCohort []string
}

// Needed reports whether the cohort lacks the canonical outcome columns.
func Needed(c *model.Cohort) bool {
	return !c.HasColumn(model.ColTimeToEvent) || !c.HasColumn(model.ColEvent)
}

// IDs returns the unique, non-empty patient ids in cohort order.
func IDs(ctx context.Context, c *model.Cohort) []string {
	d := dedupe.NewInMemoryDeduper()
	ids := make([]string, 0, len(c.Patients))
	for _, p := range c.Patients {
		id := strings.TrimSpace(p.ID)
		if id == "" || d.SeenAndRecord(ctx, id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

type coerced struct {
	id    string
	event int
	time  null.Float
}

// Merge left-joins source records onto the cohort by id. Only canonical
// columns the cohort lacks are filled; unmatched patients get missing values.
// Duplicate source ids keep their first record.
func Merge(ctx context.Context, c *model.Cohort, src Source) step.Result[Outcome] {
	if src == nil {
		return step.Unavailable[Outcome](ErrUnavailable.Error())
	}
	ids := IDs(ctx, c)
	if len(ids) == 0 {
		return step.Unavailable[Outcome](ErrNoIDs.Error())
	}

	records, err := src.FetchFollowUp(ctx, ids)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return step.Unavailable[Outcome](err.Error())
		}
		return step.Unavailable[Outcome](fmt.Errorf("could not fetch follow-up data: %w", err).Error())
	}
	if len(records) == 0 {
		return step.Unavailable[Outcome](ErrNoRows.Error())
	}

	rows := make([]coerced, len(records))
	for i, r := range records {
		rows[i] = coerced{
			id:    strings.TrimSpace(r.ID),
			event: model.CoerceEvent(r.Event),
			time:  parseTime(r.Time),
		}
	}
	rows, dup := dedupe.Unique(ctx, dedupe.NewInMemoryDeduper(), rows, func(r coerced) string { return r.id })

	byID := make(map[string]coerced, len(rows))
	for _, r := range rows {
		byID[r.id] = r
	}

	fillTime := !c.HasColumn(model.ColTimeToEvent)
	fillEvent := !c.HasColumn(model.ColEvent)
	out := Outcome{Matched: len(byID), Duplicates: dup}
	for _, col := range []string{model.ColEvent, model.ColTimeToEvent} {
		if c.AddColumn(col) {
			out.Added = append(out.Added, col)
		}
	}
	sort.Strings(out.Added)

	cohortIDs := make(map[string]struct{}, len(c.Patients))
	for i := range c.Patients {
		p := &c.Patients[i]
		id := strings.TrimSpace(p.ID)
		cohortIDs[id] = struct{}{}
		r, ok := byID[id]
		if fillTime {
			p.TimeToEvent = null.Float{}
			if ok {
				p.TimeToEvent = r.time
			}
		}
		if fillEvent {
			p.Event = null.String{}
			if ok {
				p.Event = null.StringFrom(strconv.Itoa(r.event))
			}
		}
	}
	c.ResolveOutcomeColumns()

	var missing []string
	for _, r := range rows {
		if r.event != 1 || !r.time.Valid {
			continue
		}
		out.EventsWithTime++
		if _, ok := cohortIDs[r.id]; ok {
			out.InCohort++
		} else {
			missing = append(missing, r.id)
		}
	}
	sort.Strings(missing)
	if len(missing) > maxReportedIDs {
		missing = missing[:maxReportedIDs]
	}
	out.MissingFromCohort = missing
	return step.Computed(out)
}

func parseTime(s null.String) null.Float {
	if !s.Valid {
		return null.Float{}
	}
	return model.ParseNumber(s.String)
}
