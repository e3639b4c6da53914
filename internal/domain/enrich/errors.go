package enrich

import "errors"

// Sentinel kinds for the enrichment step.
var (
	ErrNoIDs       = errors.New("no patient ids in cohort to match against follow-up data")
	ErrNoRows      = errors.New("no matching follow-up rows for the cohort ids")
	ErrUnavailable = errors.New("follow-up source unavailable")
)
