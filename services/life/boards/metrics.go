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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const tracerName = "aleutian.life.boards"

// serviceMetrics holds the engine instruments of one Service.
type serviceMetrics struct {
	opLatency           metric.Float64Histogram
	opTotal             metric.Int64Counter
	generationsTotal    metric.Int64Counter
	convergenceAttempts metric.Int64Histogram
}

// newServiceMetrics creates the instruments from mp.
func newServiceMetrics(mp metric.MeterProvider) (*serviceMetrics, error) {
	meter := mp.Meter(tracerName)
	m := &serviceMetrics{}
	var err error

	m.opLatency, err = meter.Float64Histogram(
		"life_board_operation_duration_seconds",
		metric.WithDescription("Duration of board service operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.opTotal, err = meter.Int64Counter(
		"life_board_operations_total",
		metric.WithDescription("Total board service operations"),
	)
	if err != nil {
		return nil, err
	}

	m.generationsTotal, err = meter.Int64Counter(
		"life_generations_computed_total",
		metric.WithDescription("Total generations computed by the engine"),
	)
	if err != nil {
		return nil, err
	}

	m.convergenceAttempts, err = meter.Int64Histogram(
		"life_convergence_attempts",
		metric.WithDescription("Generations computed per final-state search"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// recordOperation records latency and outcome of one service call.
func (m *serviceMetrics) recordOperation(ctx context.Context, op string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.Bool("success", err == nil),
	)
	m.opLatency.Record(ctx, time.Since(start).Seconds(), attrs)
	m.opTotal.Add(ctx, 1, attrs)
}

func (m *serviceMetrics) recordGenerations(ctx context.Context, op string, n int) {
	if n <= 0 {
		return
	}
	m.generationsTotal.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("operation", op),
	))
}

func (m *serviceMetrics) recordConvergence(ctx context.Context, attempts int, converged bool) {
	m.convergenceAttempts.Record(ctx, int64(attempts), metric.WithAttributes(
		attribute.Bool("converged", converged),
	))
}
