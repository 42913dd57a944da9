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
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianLife/services/life/engine"
	"github.com/AleutianAI/AleutianLife/services/life/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// Configuration
// =============================================================================

// ServiceConfig configures the board Service.
type ServiceConfig struct {
	// MaxSteps caps the step count accepted by Advance. Zero means no cap.
	MaxSteps int `yaml:"max_steps" validate:"gte=0"`

	// MaxAttempts caps the attempt budget accepted by Final. Zero means no cap.
	MaxAttempts int `yaml:"max_attempts" validate:"gte=0"`

	// MaxList caps the limit accepted by List. Zero means no cap.
	MaxList int `yaml:"max_list" validate:"gte=0"`

	// MaxCells caps the area (rows * cols) of uploaded boards. Zero means no
	// cap. Final keeps one fingerprint of area/8 bytes per generation, so
	// MaxCells * MaxAttempts / 8 bounds its memory.
	MaxCells int `yaml:"max_cells" validate:"gte=0"`

	// Workers bounds the goroutines used to step one generation.
	Workers int `yaml:"workers" validate:"gte=0"`

	// ParallelThreshold is the board area at which stepping goes parallel.
	// Zero keeps stepping sequential.
	ParallelThreshold int `yaml:"parallel_threshold" validate:"gte=0"`
}

// DefaultServiceConfig returns the caps used by the server.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxSteps:          100_000,
		MaxAttempts:       10_000,
		MaxList:           500,
		MaxCells:          65_536,
		ParallelThreshold: engine.DefaultParallelThreshold,
	}
}

// =============================================================================
// Service
// =============================================================================

// FinalResult is the outcome of a successful Final.
type FinalResult struct {
	// Board is the stored board after the terminal grid was written back.
	Board *Board

	// Attempts is the number of generations computed to reach the repeat.
	Attempts int

	// CycleStart is the generation at which the repeated grid first appeared,
	// counted from the board's state before the call.
	CycleStart int

	// Period is 1 for a still life, p for an oscillator of period p.
	Period int
}

// Service runs the engine against stored boards.
//
// # Description
//
// Each operation fetches the board, computes new grids outside any store
// transaction, then replaces the stored grid with the result. A failed
// Final writes nothing back.
//
// # Thread Safety
//
// Safe for concurrent use. Concurrent updates of one board are
// last-writer-wins.
type Service struct {
	store   Store
	stepper engine.Stepper
	cfg     ServiceConfig
	logger  *slog.Logger
	metrics *serviceMetrics
}

// ServiceOption configures optional Service dependencies.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	meterProvider metric.MeterProvider
}

// WithMeterProvider records engine metrics through mp instead of the global
// OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) ServiceOption {
	return func(o *serviceOptions) {
		o.meterProvider = mp
	}
}

// NewService creates a Service over store.
//
// # Inputs
//
//   - store: Board persistence. Must not be nil.
//   - cfg: Caps and stepping parallelism.
//   - logger: Structured logger. Nil uses slog.Default().
//   - opts: Optional dependencies, such as WithMeterProvider.
func NewService(store Store, cfg ServiceConfig, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "boards.Service")

	o := serviceOptions{meterProvider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}
	metrics, err := newServiceMetrics(o.meterProvider)
	if err != nil {
		logger.Warn("Engine metrics disabled", "error", err)
		metrics, _ = newServiceMetrics(noop.NewMeterProvider())
	}

	return &Service{
		store: store,
		stepper: engine.Stepper{
			Workers:           cfg.Workers,
			ParallelThreshold: cfg.ParallelThreshold,
		},
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Upload validates cells and stores them as a new board.
//
// # Outputs
//
//   - *Board: The stored board with a fresh id and generation 0.
//   - error: Matches engine.ErrInvalidBoard for input with no rows or jagged
//     rows, ErrLimitExceeded above MaxCells.
func (s *Service) Upload(ctx context.Context, cells [][]bool) (b *Board, err error) {
	ctx, span := s.startSpan(ctx, "Upload")
	defer s.finish(ctx, span, "upload", time.Now(), &err)

	g, err := engine.NewGrid(cells)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxCells > 0 && g.Area() > s.cfg.MaxCells {
		return nil, fmt.Errorf("%w: board has %d cells, maximum %d", ErrLimitExceeded, g.Area(), s.cfg.MaxCells)
	}

	now := time.Now().UTC()
	b = &Board{
		ID:        uuid.New(),
		Grid:      g,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}

	span.SetAttributes(
		attribute.String("board.id", b.ID.String()),
		attribute.Int("board.rows", g.Rows()),
		attribute.Int("board.cols", g.Cols()),
	)
	telemetry.LoggerWithTrace(ctx, s.logger).Debug("board uploaded",
		"board_id", b.ID, "rows", g.Rows(), "cols", g.Cols())
	return b, nil
}

// Get returns the stored board.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (b *Board, err error) {
	ctx, span := s.startSpan(ctx, "Get", attribute.String("board.id", id.String()))
	defer s.finish(ctx, span, "get", time.Now(), &err)

	return s.store.Get(ctx, id)
}

// Next advances the board one generation and stores the result.
func (s *Service) Next(ctx context.Context, id uuid.UUID) (b *Board, err error) {
	ctx, span := s.startSpan(ctx, "Next", attribute.String("board.id", id.String()))
	defer s.finish(ctx, span, "next", time.Now(), &err)

	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := s.stepper.Step(cur.Grid)
	s.metrics.recordGenerations(ctx, "next", 1)

	return s.store.Replace(ctx, id, next, 1)
}

// Advance advances the board steps generations and stores the result.
//
// # Outputs
//
//   - *Board: The board after the write-back.
//   - error: engine.ErrInvalidStepCount for negative steps, ErrLimitExceeded
//     above MaxSteps, ErrBoardNotFound for an unknown id.
func (s *Service) Advance(ctx context.Context, id uuid.UUID, steps int) (b *Board, err error) {
	ctx, span := s.startSpan(ctx, "Advance",
		attribute.String("board.id", id.String()),
		attribute.Int("life.steps", steps),
	)
	defer s.finish(ctx, span, "advance", time.Now(), &err)

	if s.cfg.MaxSteps > 0 && steps > s.cfg.MaxSteps {
		return nil, fmt.Errorf("%w: steps %d above maximum %d", ErrLimitExceeded, steps, s.cfg.MaxSteps)
	}

	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	g, err := s.stepper.Advance(cur.Grid, steps)
	if err != nil {
		return nil, err
	}
	s.metrics.recordGenerations(ctx, "advance", steps)

	return s.store.Replace(ctx, id, g, int64(steps))
}

// Final searches for the board's terminal configuration and stores it.
//
// # Description
//
// Runs engine FindStable with maxAttempts. On success the repeated grid
// replaces the stored grid and the generation counter grows by Attempts.
// On failure the stored board is left untouched.
//
// # Outputs
//
//   - *FinalResult: The stored board plus the attempt count and cycle shape.
//   - error: engine.ErrConvergenceNotReached (as *engine.ConvergenceNotReachedError)
//     when the budget ran out, engine.ErrInvalidAttemptBudget for a negative
//     budget, ErrLimitExceeded above MaxAttempts.
func (s *Service) Final(ctx context.Context, id uuid.UUID, maxAttempts int) (res *FinalResult, err error) {
	ctx, span := s.startSpan(ctx, "Final",
		attribute.String("board.id", id.String()),
		attribute.Int("life.max_attempts", maxAttempts),
	)
	defer s.finish(ctx, span, "final", time.Now(), &err)

	if s.cfg.MaxAttempts > 0 && maxAttempts > s.cfg.MaxAttempts {
		return nil, fmt.Errorf("%w: maxAttempts %d above maximum %d", ErrLimitExceeded, maxAttempts, s.cfg.MaxAttempts)
	}

	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	conv, err := s.stepper.FindStableDetailed(cur.Grid, maxAttempts)
	if err != nil {
		if maxAttempts > 0 {
			s.metrics.recordGenerations(ctx, "final", maxAttempts)
			s.metrics.recordConvergence(ctx, maxAttempts, false)
		}
		return nil, err
	}
	s.metrics.recordGenerations(ctx, "final", conv.Attempts)
	s.metrics.recordConvergence(ctx, conv.Attempts, true)
	span.SetAttributes(
		attribute.Int("life.attempts", conv.Attempts),
		attribute.Int("life.period", conv.Period),
	)

	b, err := s.store.Replace(ctx, id, conv.Grid, int64(conv.Attempts))
	if err != nil {
		return nil, err
	}
	return &FinalResult{
		Board:      b,
		Attempts:   conv.Attempts,
		CycleStart: conv.CycleStart,
		Period:     conv.Period,
	}, nil
}

// Delete removes the board.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := s.startSpan(ctx, "Delete", attribute.String("board.id", id.String()))
	defer s.finish(ctx, span, "delete", time.Now(), &err)

	return s.store.Delete(ctx, id)
}

// List returns up to limit boards, oldest first. Returns ErrLimitExceeded
// when limit is above MaxList.
func (s *Service) List(ctx context.Context, limit int) (out []*Board, err error) {
	ctx, span := s.startSpan(ctx, "List", attribute.Int("life.limit", limit))
	defer s.finish(ctx, span, "list", time.Now(), &err)

	if s.cfg.MaxList > 0 && limit > s.cfg.MaxList {
		return nil, fmt.Errorf("%w: limit %d above maximum %d", ErrLimitExceeded, limit, s.cfg.MaxList)
	}
	return s.store.List(ctx, limit)
}

// Close closes the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

func (s *Service) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, tracerName, "boards.Service."+op, trace.WithAttributes(attrs...))
}

// finish ends span, records the outcome and logs failures other than the
// expected client errors.
func (s *Service) finish(ctx context.Context, span trace.Span, op string, start time.Time, errp *error) {
	err := *errp
	s.metrics.recordOperation(ctx, op, start, err)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.LoggerWithTrace(ctx, s.logger).Debug("board operation failed",
			"operation", op, "error", err)
	} else {
		telemetry.SetSpanOK(span)
	}
	span.End()
}
