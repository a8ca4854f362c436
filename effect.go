package statebus

import (
	"context"
	"fmt"
	"sync"
)

// Effect reacts to an action after the reducers ran and the change signals
// fired. Effects may dispatch follow-up actions.
type Effect[A any] func(ctx context.Context, action A, d Dispatcher) error

// EffectOption configures an effect
type EffectOption func(*internalEffect)

// internalEffect wraps an effect with metadata
type internalEffect struct {
	run        func(ctx context.Context, action any, d Dispatcher) error
	name       string
	async      bool
	sequential bool
	mu         sync.Mutex
}

// Async configures the effect to run asynchronously
// If sequential is true, actions are processed one at a time (no concurrency)
func Async(sequential bool) EffectOption {
	return func(e *internalEffect) {
		e.async = true
		e.sequential = sequential
	}
}

// AddEffect registers an effect for actions of type A.
// Releasing the returned token removes the effect.
func AddEffect[A any](st *Store, effect Effect[A], opts ...EffectOption) *Token {
	if effect == nil {
		panic("statebus: effect cannot be nil")
	}

	actionType := typeOf[A]()
	e := &internalEffect{
		run: func(ctx context.Context, action any, d Dispatcher) error {
			return effect(ctx, action.(A), d)
		},
		name: actionType.String(),
	}

	for _, opt := range opts {
		opt(e)
	}

	st.effectsMu.Lock()
	st.effects[actionType] = append(st.effects[actionType], e)
	st.effectsMu.Unlock()

	return &Token{release: func() {
		st.effectsMu.Lock()
		defer st.effectsMu.Unlock()

		effects := st.effects[actionType]
		kept := make([]*internalEffect, 0, len(effects))
		for _, other := range effects {
			if other != e {
				kept = append(kept, other)
			}
		}
		st.effects[actionType] = kept
	}}
}

// runEffects starts every effect registered for the action's type
func (st *Store) runEffects(ctx context.Context, action any) {
	st.effectsMu.RLock()
	effects, exists := st.effects[typeOfValue(action)]
	if !exists || len(effects) == 0 {
		st.effectsMu.RUnlock()
		return
	}

	// Copy effects slice to avoid holding lock during execution
	effectsCopy := make([]*internalEffect, len(effects))
	copy(effectsCopy, effects)
	panicHandler := st.panicHandler
	st.effectsMu.RUnlock()

	for _, e := range effectsCopy {
		if ctx.Err() != nil {
			break
		}

		if e.async {
			st.wg.Add(1)
			go func(effect *internalEffect, capturedCtx context.Context) {
				defer st.wg.Done()
				if effect.sequential {
					effect.mu.Lock()
					defer effect.mu.Unlock()
				}
				if capturedCtx.Err() != nil {
					return
				}
				st.callEffect(effect, capturedCtx, action, panicHandler)
			}(e, ctx)
		} else {
			st.callEffect(e, ctx, action, panicHandler)
		}
	}
}

// callEffect executes an effect, logging its error and recovering its panic
func (st *Store) callEffect(e *internalEffect, ctx context.Context, action any, panicHandler PanicHandler) {
	defer func() {
		if r := recover(); r != nil {
			st.logger.Error("effect panicked", "effect", e.name, "action", ActionType(action), "panic", fmt.Sprint(r))
			if panicHandler != nil {
				panicHandler(action, r)
			}
		}
	}()

	if err := e.run(ctx, action, st); err != nil {
		st.logger.Error("effect failed", "effect", e.name, "action", ActionType(action), "error", err)
	}
}
