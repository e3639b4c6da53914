package followup

import (
	"gorm.io/gorm"

	"github.com/okian/evalfast/pkg/logger"
)

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithLogger sets the logger used for connection events and SQL traces.
func WithLogger(l logger.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDialector replaces the postgres dialector built from the DSN.
func WithDialector(d gorm.Dialector) Option {
	return func(s *Source) {
		if d != nil {
			s.dialector = d
		}
	}
}
