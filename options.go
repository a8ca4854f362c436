package statebus

import (
	"context"
	"log/slog"
)

// Option configures a Store
type Option func(*Store)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(st *Store) {
		if logger != nil {
			st.logger = logger
		}
	}
}

// WithObservability installs dispatch and evaluation hooks
func WithObservability(obs Observability) Option {
	return func(st *Store) {
		st.obs = obs
	}
}

// WithPanicHandler sets a function to be called when an effect panics
func WithPanicHandler(handler PanicHandler) Option {
	return func(st *Store) {
		st.panicHandler = handler
	}
}

// WithBeforeDispatch runs hook before the reducers of every dispatch
func WithBeforeDispatch(hook func(ctx context.Context, action any)) Option {
	return func(st *Store) {
		// Chain with any existing hook
		existing := st.beforeHook
		st.beforeHook = func(ctx context.Context, action any) {
			if existing != nil {
				existing(ctx, action)
			}
			hook(ctx, action)
		}
	}
}

// Logger returns the store's logger
func (st *Store) Logger() *slog.Logger {
	return st.logger
}
