package followup

import "errors"

var (
	ErrMissingCredentials = errors.New("database credentials missing")
	ErrInvalidTable       = errors.New("invalid follow-up table name")
	ErrConnect            = errors.New("connect follow-up database")
	ErrQuery              = errors.New("query follow-up table")
)
