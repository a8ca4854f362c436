package statebus

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// Dispatcher is the write side of the store handed to effects.
type Dispatcher interface {
	Dispatch(ctx context.Context, action any) error
}

// PanicHandler is called when an effect panics
type PanicHandler func(action any, panicValue any)

// Store holds the application state as a set of features and serializes
// every write. Change signals fire synchronously on the dispatching goroutine
// after the new snapshot is in place.
type Store struct {
	state    State
	features []featureSlot
	names    map[string]struct{}
	mu       sync.RWMutex

	effects   map[reflect.Type][]*internalEffect
	effectsMu sync.RWMutex
	wg        sync.WaitGroup

	logger       *slog.Logger
	obs          Observability
	panicHandler PanicHandler
	beforeHook   func(ctx context.Context, action any)
	dispatches   atomic.Int64
}

// New creates a new empty Store
func New(opts ...Option) *Store {
	st := &Store{
		state:   emptyState(),
		names:   make(map[string]struct{}),
		effects: make(map[reflect.Type][]*internalEffect),
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(st)
	}

	return st
}

func (st *Store) addFeature(f featureSlot) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.names[f.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrFeatureExists, f.Name())
	}

	st.names[f.Name()] = struct{}{}
	st.features = append(st.features, f)
	st.state = st.state.with(f.Name(), f.initialValue())

	st.logger.Debug("feature registered", "feature", f.Name())
	return nil
}

// State returns the current whole-store snapshot
func (st *Store) State() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state
}

// Features returns every registered feature in registration order
func (st *Store) Features() []Slice {
	st.mu.RLock()
	defer st.mu.RUnlock()

	slices := make([]Slice, len(st.features))
	for i, f := range st.features {
		slices[i] = f
	}
	return slices
}

// Dispatches returns the number of successful dispatches
func (st *Store) Dispatches() int64 {
	return st.dispatches.Load()
}

// Dispatch runs the reducers of every feature for action, installs the new
// snapshot and then emits the change signal of each changed feature.
// A reducer error aborts the dispatch with no state change. Panics raised by
// reducers or by change handlers propagate to the caller.
func (st *Store) Dispatch(ctx context.Context, action any) (err error) {
	if action == nil {
		return ErrNilAction
	}

	actionType := ActionType(action)
	start := time.Now()
	changedCount := 0

	if st.obs != nil {
		ctx = st.obs.OnDispatchStart(ctx, actionType)
		defer func() {
			st.obs.OnDispatchComplete(ctx, actionType, changedCount, time.Since(start), err)
		}()
	}

	if st.beforeHook != nil {
		st.beforeHook(ctx, action)
	}

	changed, err := st.reduce(action)
	if err != nil {
		st.logger.Debug("dispatch rejected", "action", actionType, "error", err)
		return fmt.Errorf("statebus: dispatch %s: %w", actionType, err)
	}
	changedCount = len(changed)
	st.dispatches.Add(1)

	st.logger.Debug("dispatch", "action", actionType, "changed", changedCount)

	for _, f := range changed {
		f.Changed().Emit(f.Name())
	}

	st.runEffects(ctx, action)
	return nil
}

// reduce computes and installs the next snapshot under the write lock.
func (st *Store) reduce(action any) ([]featureSlot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	actionType := typeOfValue(action)
	next := st.state
	var changed []featureSlot

	for _, f := range st.features {
		old, _ := st.state.Lookup(f.Name())
		value, handled, err := f.reduce(old, actionType, action)
		if err != nil {
			return nil, err
		}
		if !handled || !f.differs(old, value) {
			continue
		}
		next = next.with(f.Name(), value)
		changed = append(changed, f)
	}

	if len(changed) > 0 {
		st.state = next
	}
	return changed, nil
}

// WaitEffects waits for all async effects to complete
func (st *Store) WaitEffects() {
	st.wg.Wait()
}

// SetPanicHandler sets a function to be called when an effect panics
func (st *Store) SetPanicHandler(handler PanicHandler) {
	st.effectsMu.Lock()
	defer st.effectsMu.Unlock()

	st.panicHandler = handler
}
