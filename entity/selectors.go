package entity

import (
	"github.com/jilio/statebus/selector"
)

// Selectors holds the standard projections of one collection-bearing state.
type Selectors[S any, K comparable, E any] struct {
	// All returns every entity, ordered by the adapter's comparer if it has one.
	All selector.Selector[S, []E]
	// IDs returns every key in the same order as All.
	IDs selector.Selector[S, []K]
	// Entities returns a key to entity map.
	Entities selector.Selector[S, map[K]E]
	// Total returns the number of entities.
	Total selector.Selector[S, int]
}

// Selectors builds the standard projections for sa.
func (sa *StateAdapter[S, K, E]) Selectors() Selectors[S, K, E] {
	return Selectors[S, K, E]{
		All:      func(s S) []E { return sa.Sorted(sa.get(s)) },
		IDs:      func(s S) []K { return sa.IDs(sa.get(s)) },
		Entities: func(s S) map[K]E { return sa.get(s).ToMap() },
		Total:    func(s S) int { return sa.get(s).Len() },
	}
}

// ByID returns a selector for the entity stored under id.
func (sa *StateAdapter[S, K, E]) ByID(id K) selector.Selector[S, E] {
	return func(s S) E {
		e, _ := sa.get(s).Get(id)
		return e
	}
}

// Count returns a selector counting the entities matching pred.
func (sa *StateAdapter[S, K, E]) Count(pred func(E) bool) selector.Selector[S, int] {
	return func(s S) int {
		n := 0
		for _, e := range sa.get(s).All() {
			if pred(e) {
				n++
			}
		}
		return n
	}
}
