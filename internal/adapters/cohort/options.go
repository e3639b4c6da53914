package cohort

import (
	"golang.org/x/text/encoding"

	"github.com/okian/evalfast/pkg/logger"
)

// Option applies a configuration option to the Table.
type Option func(*Table)

// WithDelimiter sets the field separator (';' by default).
func WithDelimiter(comma rune) Option {
	return func(t *Table) {
		if comma != 0 {
			t.comma = comma
		}
	}
}

// WithEncoding sets the text encoding of files read and written.
func WithEncoding(enc encoding.Encoding) Option {
	return func(t *Table) {
		if enc != nil {
			t.enc = enc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.logger = l
		}
	}
}
