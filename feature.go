package statebus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrFeatureExists is returned when a feature name is registered twice.
var ErrFeatureExists = errors.New("statebus: feature already registered")

// Reducer computes the next feature state for an action
type Reducer[S, A any] func(state S, action A) S

// FallibleReducer is a reducer that can reject an action
type FallibleReducer[S, A any] func(state S, action A) (S, error)

// Slice is the observable face of a feature: a name and a change signal.
type Slice interface {
	Name() string
	// Changed fires after every dispatch that changed the feature.
	// The payload is the feature name; observers re-read the store state.
	Changed() *Signal[string]
}

// featureSlot is the untyped view the store keeps of every feature.
type featureSlot interface {
	Slice
	initialValue() any
	reduce(state any, actionType reflect.Type, action any) (next any, handled bool, err error)
	differs(old, next any) bool
}

// reducerFunc wraps a typed reducer with the action assertion
type reducerFunc[S any] func(state S, action any) (S, error)

// Feature is an independently observable slice of the store state.
type Feature[S any] struct {
	name     string
	initial  S
	equal    func(a, b S) bool
	reducers map[reflect.Type][]reducerFunc[S]
	changed  Signal[string]
	store    *Store
	mu       sync.RWMutex
}

// FeatureOption configures a feature
type FeatureOption[S any] func(*Feature[S])

// WithStateEqual suppresses the change signal when a reducer returns a state
// equal to the previous one. Without it every handled action counts as a change.
func WithStateEqual[S any](equal func(a, b S) bool) FeatureOption[S] {
	return func(f *Feature[S]) {
		f.equal = equal
	}
}

// AddFeature registers a feature with its initial state.
func AddFeature[S any](st *Store, name string, initial S, opts ...FeatureOption[S]) (*Feature[S], error) {
	if name == "" {
		return nil, errors.New("statebus: feature name cannot be empty")
	}

	f := &Feature[S]{
		name:     name,
		initial:  initial,
		reducers: make(map[reflect.Type][]reducerFunc[S]),
		store:    st,
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := st.addFeature(f); err != nil {
		return nil, err
	}
	return f, nil
}

// MustAddFeature is like AddFeature but panics on error.
func MustAddFeature[S any](st *Store, name string, initial S, opts ...FeatureOption[S]) *Feature[S] {
	f, err := AddFeature(st, name, initial, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// On registers a reducer for actions of type A
func On[S, A any](f *Feature[S], reducer Reducer[S, A]) {
	OnE(f, func(state S, action A) (S, error) {
		return reducer(state, action), nil
	})
}

// OnE registers a reducer for actions of type A that may fail.
// A failing reducer aborts the whole dispatch and no state changes.
func OnE[S, A any](f *Feature[S], reducer FallibleReducer[S, A]) {
	actionType := typeOf[A]()

	wrapped := func(state S, action any) (S, error) {
		return reducer(state, action.(A))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.reducers[actionType] = append(f.reducers[actionType], wrapped)
}

// Name returns the feature name.
func (f *Feature[S]) Name() string {
	return f.name
}

// Changed returns the feature's change signal.
func (f *Feature[S]) Changed() *Signal[string] {
	return &f.changed
}

// State returns the feature's current state.
func (f *Feature[S]) State() S {
	return Get(f.store.State(), f)
}

// Select reads the feature's value out of a snapshot.
// It has the selector shape func(State) S.
func (f *Feature[S]) Select(s State) S {
	return Get(s, f)
}

func (f *Feature[S]) initialValue() any {
	return f.initial
}

func (f *Feature[S]) reduce(state any, actionType reflect.Type, action any) (any, bool, error) {
	f.mu.RLock()
	reducers := f.reducers[actionType]
	f.mu.RUnlock()

	if len(reducers) == 0 {
		return state, false, nil
	}

	current, _ := state.(S)
	for _, r := range reducers {
		next, err := r(current, action)
		if err != nil {
			return state, false, fmt.Errorf("feature %q: %w", f.name, err)
		}
		current = next
	}
	return current, true, nil
}

func (f *Feature[S]) differs(old, next any) bool {
	if f.equal == nil {
		return true
	}
	a, _ := old.(S)
	b, _ := next.(S)
	return !f.equal(a, b)
}
