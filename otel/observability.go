package otel

import (
	"context"
	"time"

	"github.com/jilio/statebus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/jilio/statebus"
)

// Observability implements statebus.Observability using OpenTelemetry
type Observability struct {
	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	dispatchCounter    metric.Int64Counter
	dispatchDuration   metric.Float64Histogram
	dispatchErrors     metric.Int64Counter
	featureChanges     metric.Int64Counter
	evaluationCounter  metric.Int64Counter
	evaluationDuration metric.Float64Histogram
}

// Option configures the Observability
type Option func(*Observability)

// WithTracerProvider sets a custom tracer provider
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *Observability) {
		o.tracer = provider.Tracer(instrumentationName)
	}
}

// WithMeterProvider sets a custom meter provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *Observability) {
		o.meter = provider.Meter(instrumentationName)
	}
}

// New creates a new OpenTelemetry observability implementation
func New(opts ...Option) (*Observability, error) {
	obs := &Observability{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	// Apply options
	for _, opt := range opts {
		opt(obs)
	}

	// Initialize metrics
	var err error

	obs.dispatchCounter, err = obs.meter.Int64Counter(
		"statebus.dispatch.count",
		metric.WithDescription("Number of actions dispatched"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, err
	}

	obs.dispatchDuration, err = obs.meter.Float64Histogram(
		"statebus.dispatch.duration",
		metric.WithDescription("Dispatch duration including change notifications"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	obs.dispatchErrors, err = obs.meter.Int64Counter(
		"statebus.dispatch.errors",
		metric.WithDescription("Number of rejected dispatches"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	obs.featureChanges, err = obs.meter.Int64Counter(
		"statebus.feature.changes",
		metric.WithDescription("Number of feature change notifications"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, err
	}

	obs.evaluationCounter, err = obs.meter.Int64Counter(
		"statebus.selector.evaluations",
		metric.WithDescription("Number of subscription selector evaluations"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return nil, err
	}

	obs.evaluationDuration, err = obs.meter.Float64Histogram(
		"statebus.selector.duration",
		metric.WithDescription("Subscription selector evaluation duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return obs, nil
}

// OnDispatchStart is called when an action starts dispatching
func (o *Observability) OnDispatchStart(ctx context.Context, actionType string) context.Context {
	ctx, _ = o.tracer.Start(ctx, "statebus.dispatch: "+actionType,
		trace.WithAttributes(
			attribute.String("action.type", actionType),
		),
	)

	o.dispatchCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action.type", actionType),
		),
	)

	return ctx
}

// OnDispatchComplete is called when a dispatch finished (with or without error)
func (o *Observability) OnDispatchComplete(ctx context.Context, actionType string, changedFeatures int, duration time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	attrs := metric.WithAttributes(attribute.String("action.type", actionType))

	span.SetAttributes(attribute.Int("features.changed", changedFeatures))
	o.dispatchDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		o.dispatchErrors.Add(ctx, 1, attrs)
	} else {
		span.SetStatus(codes.Ok, "")
		if changedFeatures > 0 {
			o.featureChanges.Add(ctx, int64(changedFeatures), attrs)
		}
	}

	span.End()
}

// OnEvaluate is called after a subscription re-ran its selector
func (o *Observability) OnEvaluate(subscriptionID string, changed bool, duration time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.Bool("changed", changed))

	o.evaluationCounter.Add(ctx, 1, attrs)
	o.evaluationDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

// Ensure Observability implements statebus.Observability
var _ statebus.Observability = (*Observability)(nil)
