package statebus

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jilio/statebus/selector"
)

// ValueProperty is the property name PropertyChanged reports.
const ValueProperty = "Value"

// SubscriptionState is the lifecycle state of a Subscription.
type SubscriptionState int32

const (
	// Active subscriptions re-evaluate on every feature change.
	Active SubscriptionState = iota
	// Paused subscriptions ignore feature changes until Resume.
	Paused
	// Disposed subscriptions are detached for good.
	Disposed
)

func (s SubscriptionState) String() string {
	switch s {
	case Active:
		return "active"
	case Paused:
		return "paused"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// SubscriptionOption configures a Subscription
type SubscriptionOption[T any] func(*subscriptionConfig[T])

type subscriptionConfig[T any] struct {
	selectorOpts []selector.Option[T]
	name         string
}

// WithEqual sets the equality the memoized selector uses
func WithEqual[T any](equal func(a, b T) bool) SubscriptionOption[T] {
	return func(c *subscriptionConfig[T]) {
		c.selectorOpts = append(c.selectorOpts, selector.WithEqual(equal))
	}
}

// WithSelectorOption passes opt through to the memoized selector
func WithSelectorOption[T any](opt selector.Option[T]) SubscriptionOption[T] {
	return func(c *subscriptionConfig[T]) {
		c.selectorOpts = append(c.selectorOpts, opt)
	}
}

// WithName labels the subscription in logs
func WithName[T any](name string) SubscriptionOption[T] {
	return func(c *subscriptionConfig[T]) {
		c.name = name
	}
}

// Subscription binds a memoized selector to a store. It listens to every
// feature that existed when it was created, re-evaluates on each change and
// fires Changed only when the selected value really changed.
//
// Evaluation is serialized per subscription and always reads the newest
// snapshot, so concurrent dispatches leave Value at the store's latest state.
// Handlers run after the lock is released and may dispatch again.
type Subscription[T any] struct {
	id       string
	name     string
	store    *Store
	raw      selector.Selector[State, T]
	memo     *selector.Memoized[State, T]
	tokens   []*Token
	mu       sync.Mutex // guards memo and value
	value    T
	state    atomic.Int32
	changed  Signal[T]
	property Signal[string]
}

// Subscribe creates a subscription and evaluates the selector once, so Value
// is valid as soon as it returns.
func Subscribe[T any](st *Store, sel selector.Selector[State, T], opts ...SubscriptionOption[T]) *Subscription[T] {
	if sel == nil {
		panic("statebus: selector cannot be nil")
	}

	cfg := &subscriptionConfig[T]{}
	for _, opt := range opts {
		opt(cfg)
	}

	sub := &Subscription[T]{
		id:    uuid.NewString(),
		name:  cfg.name,
		store: st,
		raw:   sel,
	}

	sub.memo = selector.Create(sel, sub.onValueChanged, cfg.selectorOpts...)

	for _, f := range st.Features() {
		sub.tokens = append(sub.tokens, f.Changed().Subscribe(sub.onFeatureChanged))
	}
	sub.evaluate()

	st.logger.Debug("subscription created", "subscription", sub.id, "name", sub.name, "features", len(sub.tokens))
	return sub
}

// ID returns the subscription's unique identifier
func (s *Subscription[T]) ID() string {
	return s.id
}

// Value returns the last selected value
func (s *Subscription[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// State returns the lifecycle state
func (s *Subscription[T]) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// Changed fires with the new value after every real change
func (s *Subscription[T]) Changed() *Signal[T] {
	return &s.changed
}

// PropertyChanged fires with ValueProperty after every real change
func (s *Subscription[T]) PropertyChanged() *Signal[string] {
	return &s.property
}

// Pause stops evaluation; Value goes stale until Resume.
func (s *Subscription[T]) Pause() {
	s.state.CompareAndSwap(int32(Active), int32(Paused))
}

// Resume re-activates the subscription and evaluates once, so drift
// accumulated while paused is reported exactly once.
func (s *Subscription[T]) Resume() {
	if !s.state.CompareAndSwap(int32(Paused), int32(Active)) {
		return
	}
	s.evaluate()
}

// Dispose detaches from every feature. It must be called once; later calls
// return ErrTokenReleased.
func (s *Subscription[T]) Dispose() error {
	s.state.Store(int32(Disposed))

	var errs []error
	for _, t := range s.tokens {
		if err := t.Release(); err != nil {
			errs = append(errs, err)
		}
	}

	s.store.logger.Debug("subscription disposed", "subscription", s.id, "name", s.name)
	return errors.Join(errs...)
}

func (s *Subscription[T]) onFeatureChanged(string) {
	if s.State() != Active {
		return
	}
	s.evaluate()
}

func (s *Subscription[T]) evaluate() {
	start := time.Now()
	v, changed := s.reevaluate()
	if s.store.obs != nil {
		s.store.obs.OnEvaluate(s.id, changed, time.Since(start))
	}
	if changed {
		s.changed.Emit(v)
		s.property.Emit(ValueProperty)
	}
}

// reevaluate reads the snapshot under the lock, so whichever evaluation runs
// last sees the newest state.
func (s *Subscription[T]) reevaluate() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memo.Evaluate(s.store.State())
}

// onValueChanged runs inside memo.Evaluate with s.mu held.
func (s *Subscription[T]) onValueChanged(v T) {
	s.value = v
}
