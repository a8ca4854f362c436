package otel

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jilio/statebus"
)

// errorMeterProvider wraps a real MeterProvider and returns an errorMeter
type errorMeterProvider struct {
	metric.MeterProvider
	failOn string
}

func (e *errorMeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	return &errorMeter{
		Meter:  e.MeterProvider.Meter(name, opts...),
		failOn: e.failOn,
	}
}

// errorMeter wraps a real Meter and returns errors for specific metric names
type errorMeter struct {
	metric.Meter
	failOn string
}

func (e *errorMeter) Int64Counter(name string, options ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	if name == e.failOn {
		return nil, fmt.Errorf("failed to create counter: %s", name)
	}
	return e.Meter.Int64Counter(name, options...)
}

func (e *errorMeter) Float64Histogram(name string, options ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	if name == e.failOn {
		return nil, fmt.Errorf("failed to create histogram: %s", name)
	}
	return e.Meter.Float64Histogram(name, options...)
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byName := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			byName[m.Name] = m
		}
	}
	return byName
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNew(t *testing.T) {
	t.Run("default_providers", func(t *testing.T) {
		obs, err := New()
		require.NoError(t, err)
		require.NotNil(t, obs)
	})

	t.Run("custom_providers", func(t *testing.T) {
		obs, err := New(
			WithTracerProvider(sdktrace.NewTracerProvider()),
			WithMeterProvider(sdkmetric.NewMeterProvider()),
		)
		require.NoError(t, err)
		assert.NotNil(t, obs.tracer)
		assert.NotNil(t, obs.meter)
	})

	for _, name := range []string{
		"statebus.dispatch.count",
		"statebus.dispatch.duration",
		"statebus.dispatch.errors",
		"statebus.feature.changes",
		"statebus.selector.evaluations",
		"statebus.selector.duration",
	} {
		t.Run("metric_creation_error_"+name, func(t *testing.T) {
			mp := &errorMeterProvider{
				MeterProvider: sdkmetric.NewMeterProvider(),
				failOn:        name,
			}
			obs, err := New(WithMeterProvider(mp))
			require.Error(t, err)
			assert.Nil(t, obs)
		})
	}
}

func TestDispatchTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	obs, err := New(WithTracerProvider(tp))
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		exporter.Reset()

		ctx := obs.OnDispatchStart(context.Background(), "todos/add")
		obs.OnDispatchComplete(ctx, "todos/add", 2, 3*time.Millisecond, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "statebus.dispatch: todos/add", spans[0].Name)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)

		found := false
		for _, attr := range spans[0].Attributes {
			if string(attr.Key) == "features.changed" {
				found = true
				assert.Equal(t, int64(2), attr.Value.AsInt64())
			}
		}
		assert.True(t, found, "span missing features.changed attribute")
	})

	t.Run("error", func(t *testing.T) {
		exporter.Reset()

		ctx := obs.OnDispatchStart(context.Background(), "todos/map")
		obs.OnDispatchComplete(ctx, "todos/map", 0, time.Millisecond, errors.New("key out of range"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		assert.NotEmpty(t, spans[0].Events, "expected error event in span")
	})
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	obs, err := New(WithMeterProvider(mp))
	require.NoError(t, err)

	ctx := obs.OnDispatchStart(context.Background(), "a")
	obs.OnDispatchComplete(ctx, "a", 1, time.Millisecond, nil)
	ctx = obs.OnDispatchStart(context.Background(), "b")
	obs.OnDispatchComplete(ctx, "b", 0, time.Millisecond, errors.New("boom"))
	obs.OnEvaluate("sub-1", true, time.Microsecond)
	obs.OnEvaluate("sub-1", false, time.Microsecond)
	obs.OnEvaluate("sub-1", false, time.Microsecond)

	metrics := collect(t, reader)

	assert.Equal(t, int64(2), sumOf(t, metrics["statebus.dispatch.count"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["statebus.dispatch.errors"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["statebus.feature.changes"]))
	assert.Equal(t, int64(3), sumOf(t, metrics["statebus.selector.evaluations"]))

	histo, ok := metrics["statebus.dispatch.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range histo.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}

type counterSet struct {
	Count int
}

func TestStoreIntegration(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	obs, err := New(WithTracerProvider(tp), WithMeterProvider(mp))
	require.NoError(t, err)

	st := statebus.New(statebus.WithObservability(obs))
	counter := statebus.MustAddFeature(st, "counter", counterSet{})
	statebus.On(counter, func(s counterSet, n int) counterSet {
		s.Count += n
		return s
	})

	sub := statebus.Subscribe(st, func(s statebus.State) int { return counter.Select(s).Count })
	defer sub.Dispose()

	require.NoError(t, st.Dispatch(context.Background(), 1))
	require.NoError(t, st.Dispatch(context.Background(), 0))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "statebus.dispatch: int", spans[0].Name)

	metrics := collect(t, reader)
	// one evaluation at subscribe time plus one per dispatch
	assert.Equal(t, int64(3), sumOf(t, metrics["statebus.selector.evaluations"]))
}
