// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package boards

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// =============================================================================
// Helpers
// =============================================================================

func newMeteredService(t *testing.T) (*Service, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	svc := NewService(NewMemoryStore(), DefaultServiceConfig(), nil, WithMeterProvider(mp))
	t.Cleanup(func() { _ = svc.Close() })
	return svc, reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return metricdata.Metrics{}
}

// counterValue returns the counter value for the exact attribute set, or 0.
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := findMetric(t, reader, name).Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", name)

	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

// histogramPoint returns the data point for the exact attribute set.
func histogramPoint(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) metricdata.HistogramDataPoint[int64] {
	t.Helper()
	hist, ok := findMetric(t, reader, name).Data.(metricdata.Histogram[int64])
	require.True(t, ok, "%s is not an int64 histogram", name)

	want := attribute.NewSet(attrs...)
	for _, dp := range hist.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp
		}
	}
	t.Fatalf("%s has no point for %v", name, attrs)
	return metricdata.HistogramDataPoint[int64]{}
}

// =============================================================================
// Tests
// =============================================================================

func TestServiceMetrics_Generations(t *testing.T) {
	svc, reader := newMeteredService(t)
	ctx := context.Background()

	b, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)

	_, err = svc.Next(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counterValue(t, reader, "life_generations_computed_total",
		attribute.String("operation", "next")))

	_, err = svc.Advance(ctx, b.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), counterValue(t, reader, "life_generations_computed_total",
		attribute.String("operation", "advance")))

	res, err := svc.Final(ctx, b.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(res.Attempts), counterValue(t, reader, "life_generations_computed_total",
		attribute.String("operation", "final")))

	// Zero steps computes nothing.
	_, err = svc.Advance(ctx, b.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), counterValue(t, reader, "life_generations_computed_total",
		attribute.String("operation", "advance")))
}

func TestServiceMetrics_Convergence(t *testing.T) {
	svc, reader := newMeteredService(t)
	ctx := context.Background()

	b, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)

	res, err := svc.Final(ctx, b.ID, 10)
	require.NoError(t, err)
	require.Equal(t, 2, res.Attempts)

	converged := histogramPoint(t, reader, "life_convergence_attempts", attribute.Bool("converged", true))
	assert.Equal(t, uint64(1), converged.Count)
	assert.Equal(t, int64(2), converged.Sum)

	_, err = svc.Final(ctx, b.ID, 1)
	require.Error(t, err)

	failed := histogramPoint(t, reader, "life_convergence_attempts", attribute.Bool("converged", false))
	assert.Equal(t, uint64(1), failed.Count)
	assert.Equal(t, int64(1), failed.Sum)

	// The exhausted budget still counts as computed generations.
	assert.Equal(t, int64(3), counterValue(t, reader, "life_generations_computed_total",
		attribute.String("operation", "final")))
}

func TestServiceMetrics_Operations(t *testing.T) {
	svc, reader := newMeteredService(t)
	ctx := context.Background()

	b, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)
	_, err = svc.Next(ctx, b.ID)
	require.NoError(t, err)
	_, err = svc.Final(ctx, b.ID, 1)
	require.Error(t, err)

	ok := func(op string) []attribute.KeyValue {
		return []attribute.KeyValue{attribute.String("operation", op), attribute.Bool("success", true)}
	}
	failed := func(op string) []attribute.KeyValue {
		return []attribute.KeyValue{attribute.String("operation", op), attribute.Bool("success", false)}
	}

	assert.Equal(t, int64(1), counterValue(t, reader, "life_board_operations_total", ok("upload")...))
	assert.Equal(t, int64(1), counterValue(t, reader, "life_board_operations_total", ok("next")...))
	assert.Equal(t, int64(1), counterValue(t, reader, "life_board_operations_total", failed("final")...))
	assert.Equal(t, int64(0), counterValue(t, reader, "life_board_operations_total", ok("final")...))

	latency := histogramFloatCount(t, reader, "life_board_operation_duration_seconds", ok("next")...)
	assert.Equal(t, uint64(1), latency)
}

func histogramFloatCount(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) uint64 {
	t.Helper()
	hist, ok := findMetric(t, reader, name).Data.(metricdata.Histogram[float64])
	require.True(t, ok, "%s is not a float64 histogram", name)

	want := attribute.NewSet(attrs...)
	for _, dp := range hist.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Count
		}
	}
	return 0
}
