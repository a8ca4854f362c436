// Package selector turns pure projections of a state value into
// change-detecting cached projections.
//
// A Selector is any func(S) T. Create wraps one so that every evaluation is
// compared with the previous result and a callback fires only when the result
// really changed:
//
//	total := selector.Create(func(s TodoState) int { return s.Todos.Len() },
//	    func(n int) { fmt.Println("total is now", n) },
//	)
//	total.Select(state) // prints on the first call
//	total.Select(state) // silent while the count stays the same
//
// Equality defaults to reflect.DeepEqual and can be replaced per wrapper with
// WithEqual. Memoized values are not safe for concurrent use; the store that
// drives them is single-writer.
package selector

import (
	"reflect"
)

// Selector is a pure projection from a state value to a derived value.
type Selector[S, T any] func(S) T

// Memoized is a Selector wrapped with a cache of its last result.
// It is not safe for concurrent use; callers serialize Evaluate.
type Memoized[S, T any] struct {
	base     Selector[S, T]
	onChange func(T)
	equal    func(a, b T) bool
	last     T
	has      bool
	changes  int
}

// Option configures a Memoized selector.
type Option[T any] func(*config[T])

type config[T any] struct {
	equal func(a, b T) bool
}

// Create wraps base. onChange may be nil.
func Create[S, T any](base Selector[S, T], onChange func(T), opts ...Option[T]) *Memoized[S, T] {
	if base == nil {
		panic("selector: base selector cannot be nil")
	}

	cfg := &config[T]{equal: deepEqual[T]}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Memoized[S, T]{
		base:     base,
		onChange: onChange,
		equal:    cfg.equal,
	}
}

// WithEqual replaces the equality used to detect a change.
func WithEqual[T any](equal func(a, b T) bool) Option[T] {
	return func(c *config[T]) {
		if equal != nil {
			c.equal = equal
		}
	}
}

// Comparable returns an Option that compares results with ==.
func Comparable[T comparable]() Option[T] {
	return WithEqual(func(a, b T) bool { return a == b })
}

func deepEqual[T any](a, b T) bool {
	return reflect.DeepEqual(a, b)
}

// Select evaluates the base selector against s. When the result differs from
// the cached one (or nothing is cached yet) the cache is replaced, onChange is
// called and the new value returned; otherwise the cached value is returned.
func (m *Memoized[S, T]) Select(s S) T {
	v, _ := m.Evaluate(s)
	return v
}

// Evaluate is Select that also reports whether the value changed.
func (m *Memoized[S, T]) Evaluate(s S) (T, bool) {
	v := m.base(s)
	if m.has && m.equal(m.last, v) {
		return m.last, false
	}

	m.last = v
	m.has = true
	m.changes++
	if m.onChange != nil {
		m.onChange(v)
	}
	return v, true
}

// Last returns the cached value and whether one exists.
func (m *Memoized[S, T]) Last() (T, bool) {
	return m.last, m.has
}

// Changes returns how many evaluations produced a new value.
func (m *Memoized[S, T]) Changes() int {
	return m.changes
}

// Reset drops the cached value; the next evaluation counts as a change.
func (m *Memoized[S, T]) Reset() {
	var zero T
	m.last = zero
	m.has = false
}

// Base returns the wrapped selector.
func (m *Memoized[S, T]) Base() Selector[S, T] {
	return m.base
}

// SameAs reports whether both wrappers wrap the same underlying function.
func (m *Memoized[S, T]) SameAs(other *Memoized[S, T]) bool {
	if m == nil || other == nil {
		return m == other
	}
	return reflect.ValueOf(m.base).Pointer() == reflect.ValueOf(other.base).Pointer()
}
