// Package step models the outcome of one optional pipeline step: either a
// computed value or the reason it could not be produced.
package step

import "fmt"

// Status labels a Result for logs and metrics.
type Status string

// Result statuses.
const (
	StatusComputed    Status = "computed"
	StatusUnavailable Status = "unavailable"
)

// Result is Computed(value) or Unavailable(reason). The zero value is
// Unavailable with an empty reason.
type Result[T any] struct {
	value  T
	reason string
	ok     bool
}

// Computed wraps a successfully produced value.
func Computed[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Unavailable records why a value could not be produced.
func Unavailable[T any](reason string) Result[T] {
	return Result[T]{reason: reason}
}

// Unavailablef is Unavailable with a formatted reason.
func Unavailablef[T any](format string, args ...any) Result[T] {
	return Unavailable[T](fmt.Sprintf(format, args...))
}

// Get returns the value and whether it was computed.
func (r Result[T]) Get() (T, bool) { return r.value, r.ok }

// OK reports whether the value was computed.
func (r Result[T]) OK() bool { return r.ok }

// Reason is empty for computed results.
func (r Result[T]) Reason() string { return r.reason }

// Status returns the label for this result.
func (r Result[T]) Status() Status {
	if r.ok {
		return StatusComputed
	}
	return StatusUnavailable
}

// ValueOr returns the value, or fallback when unavailable.
func (r Result[T]) ValueOr(fallback T) T {
	if r.ok {
		return r.value
	}
	return fallback
}

func (r Result[T]) String() string {
	if r.ok {
		return fmt.Sprintf("computed(%v)", r.value)
	}
	return "unavailable: " + r.reason
}
