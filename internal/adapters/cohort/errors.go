package cohort

import "errors"

// Sentinel kinds for cohort table errors.
var (
	ErrRead            = errors.New("read cohort table")
	ErrMissingColumns  = errors.New("cohort table is missing required columns")
	ErrWrite           = errors.New("write cohort table")
	ErrUnknownEncoding = errors.New("unknown text encoding")
	ErrRaggedRow       = errors.New("row has more fields than the header")
)
