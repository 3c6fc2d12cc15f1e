// Package profiling provides the ordered timer registry
package profiling

import (
	"fmt"
	"iter"
)

// Registry holds one Timer per algorithm identifier.
//
// Timers live by value in a single slice in build order; index maps an
// identifier to its slot. The registry is built once and never grows, so the
// pointers handed out by Get stay valid for its lifetime.
type Registry struct {
	timers []Timer
	index  map[string]int
}

// BuildRegistry creates one timer per identifier, in the given order.
// Repeated identifiers reuse the first timer. An empty identifier is a
// configuration error.
func BuildRegistry(ids []string, clock Clock) (*Registry, error) {
	if clock == nil {
		clock = NewMonotonicClock()
	}

	r := &Registry{
		timers: make([]Timer, 0, len(ids)),
		index:  make(map[string]int, len(ids)),
	}

	for i, id := range ids {
		if id == "" {
			return nil, &Error{
				Code:    ErrCodeConfiguration,
				Message: "empty algorithm identifier",
				Key:     fmt.Sprintf("algorithms[%d]", i),
			}
		}
		if _, exists := r.index[id]; exists {
			continue
		}
		r.timers = append(r.timers, Timer{})
		r.timers[len(r.timers)-1].init(id, clock)
		r.index[id] = len(r.timers) - 1
	}

	return r, nil
}

// Get returns the timer for id
func (r *Registry) Get(id string) (*Timer, error) {
	i, ok := r.index[id]
	if !ok {
		return nil, NewError(ErrCodeUnknownAlgorithm, id, ErrUnknownAlgorithm.Message)
	}
	return &r.timers[i], nil
}

// Len returns the number of distinct timers
func (r *Registry) Len() int {
	return len(r.timers)
}

// Keys returns the identifiers in build order
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.timers))
	for i := range r.timers {
		keys[i] = r.timers[i].name
	}
	return keys
}

// All iterates over (identifier, timer) pairs in build order.
// The sequence can be ranged over any number of times.
func (r *Registry) All() iter.Seq2[string, *Timer] {
	return func(yield func(string, *Timer) bool) {
		for i := range r.timers {
			if !yield(r.timers[i].name, &r.timers[i]) {
				return
			}
		}
	}
}

// Stats returns a statistics snapshot per timer, in build order
func (r *Registry) Stats() []Stats {
	out := make([]Stats, 0, len(r.timers))
	for _, t := range r.All() {
		out = append(out, t.Stats())
	}
	return out
}
