package prometheus

import (
	"context"
	"fmt"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/jilio/statebus"
)

const defaultNamespace = "statebus"

// Observability implements statebus.Observability with Prometheus collectors
type Observability struct {
	registerer prom.Registerer
	namespace  string
	buckets    []float64

	dispatches         *prom.CounterVec
	dispatchErrors     *prom.CounterVec
	dispatchDuration   *prom.HistogramVec
	featureChanges     *prom.CounterVec
	evaluations        *prom.CounterVec
	evaluationDuration prom.Histogram
}

// Option configures the Observability
type Option func(*Observability)

// WithRegisterer registers the collectors on r instead of the default registerer
func WithRegisterer(r prom.Registerer) Option {
	return func(o *Observability) {
		if r != nil {
			o.registerer = r
		}
	}
}

// WithNamespace sets the metric namespace. The default is "statebus".
func WithNamespace(namespace string) Option {
	return func(o *Observability) {
		o.namespace = namespace
	}
}

// WithBuckets sets the histogram buckets, in seconds
func WithBuckets(buckets []float64) Option {
	return func(o *Observability) {
		o.buckets = buckets
	}
}

// New creates the collectors and registers them
func New(opts ...Option) (*Observability, error) {
	obs := &Observability{
		registerer: prom.DefaultRegisterer,
		namespace:  defaultNamespace,
		buckets:    []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}

	for _, opt := range opts {
		opt(obs)
	}

	obs.dispatches = prom.NewCounterVec(prom.CounterOpts{
		Namespace: obs.namespace,
		Name:      "dispatch_total",
		Help:      "Number of actions dispatched.",
	}, []string{"action"})

	obs.dispatchErrors = prom.NewCounterVec(prom.CounterOpts{
		Namespace: obs.namespace,
		Name:      "dispatch_errors_total",
		Help:      "Number of rejected dispatches.",
	}, []string{"action"})

	obs.dispatchDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: obs.namespace,
		Name:      "dispatch_duration_seconds",
		Help:      "Dispatch duration including change notifications.",
		Buckets:   obs.buckets,
	}, []string{"action"})

	obs.featureChanges = prom.NewCounterVec(prom.CounterOpts{
		Namespace: obs.namespace,
		Name:      "feature_changes_total",
		Help:      "Number of feature change notifications.",
	}, []string{"action"})

	obs.evaluations = prom.NewCounterVec(prom.CounterOpts{
		Namespace: obs.namespace,
		Name:      "selector_evaluations_total",
		Help:      "Number of subscription selector evaluations.",
	}, []string{"changed"})

	obs.evaluationDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: obs.namespace,
		Name:      "selector_duration_seconds",
		Help:      "Subscription selector evaluation duration.",
		Buckets:   obs.buckets,
	})

	for _, c := range obs.collectors() {
		if err := obs.registerer.Register(c); err != nil {
			return nil, fmt.Errorf("prometheus: register collector: %w", err)
		}
	}

	return obs, nil
}

// Unregister removes every collector from the registerer
func (o *Observability) Unregister() {
	for _, c := range o.collectors() {
		o.registerer.Unregister(c)
	}
}

func (o *Observability) collectors() []prom.Collector {
	return []prom.Collector{
		o.dispatches,
		o.dispatchErrors,
		o.dispatchDuration,
		o.featureChanges,
		o.evaluations,
		o.evaluationDuration,
	}
}

// OnDispatchStart is called when an action starts dispatching
func (o *Observability) OnDispatchStart(ctx context.Context, actionType string) context.Context {
	o.dispatches.WithLabelValues(actionType).Inc()
	return ctx
}

// OnDispatchComplete is called when a dispatch finished (with or without error)
func (o *Observability) OnDispatchComplete(ctx context.Context, actionType string, changedFeatures int, duration time.Duration, err error) {
	o.dispatchDuration.WithLabelValues(actionType).Observe(duration.Seconds())

	if err != nil {
		o.dispatchErrors.WithLabelValues(actionType).Inc()
		return
	}
	if changedFeatures > 0 {
		o.featureChanges.WithLabelValues(actionType).Add(float64(changedFeatures))
	}
}

// OnEvaluate is called after a subscription re-ran its selector
func (o *Observability) OnEvaluate(subscriptionID string, changed bool, duration time.Duration) {
	o.evaluations.WithLabelValues(strconv.FormatBool(changed)).Inc()
	o.evaluationDuration.Observe(duration.Seconds())
}

// Ensure Observability implements statebus.Observability
var _ statebus.Observability = (*Observability)(nil)
