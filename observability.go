package statebus

import (
	"context"
	"time"
)

// Observability receives hooks around dispatches and selector evaluations.
// Implementations must be cheap: every hook runs on the dispatching goroutine.
type Observability interface {
	// OnDispatchStart is called before the reducers run
	OnDispatchStart(ctx context.Context, actionType string) context.Context
	// OnDispatchComplete is called after the change signals and sync effects ran
	OnDispatchComplete(ctx context.Context, actionType string, changedFeatures int, duration time.Duration, err error)
	// OnEvaluate is called after a subscription re-ran its selector
	OnEvaluate(subscriptionID string, changed bool, duration time.Duration)
}
