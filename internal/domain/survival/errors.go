package survival

import "errors"

// Sentinel kinds for the observed-survival step.
var (
	ErrMissingTimeColumn  = errors.New("missing time-to-event column")
	ErrMissingEventColumn = errors.New("missing event column")
	ErrNoValidRows        = errors.New("no valid rows for KM after cleaning")
	ErrFit                = errors.New("fit survival function")
)
