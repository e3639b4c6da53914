// Package dedupe tracks patient identifiers already merged so each one is
// taken at most once.
package dedupe

import (
	"context"
	"strings"
)

// Deduper records seen identifiers.
type Deduper interface {
	// SeenAndRecord checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool
}

// InMemoryDeduper implements Deduper with a set of identifiers compared
// after trimming surrounding whitespace. It is not safe for concurrent use.
type InMemoryDeduper struct {
	seen map[string]struct{}
}

// NewInMemoryDeduper creates an empty deduper.
func NewInMemoryDeduper() *InMemoryDeduper {
	return &InMemoryDeduper{seen: make(map[string]struct{})}
}

func (d *InMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	key := strings.TrimSpace(id)
	if _, exists := d.seen[key]; exists {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

// Unique keeps the first item for every key and reports how many were dropped.
func Unique[T any](ctx context.Context, d Deduper, items []T, key func(T) string) ([]T, int) {
	kept := make([]T, 0, len(items))
	dropped := 0
	for _, it := range items {
		if d.SeenAndRecord(ctx, key(it)) {
			dropped++
			continue
		}
		kept = append(kept, it)
	}
	return kept, dropped
}
