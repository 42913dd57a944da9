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
	"errors"
	"testing"

	"github.com/AleutianAI/AleutianLife/services/life/engine"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/sync/errgroup"
)

var square = [][]bool{
	{F, F, F, F},
	{F, T, T, F},
	{F, T, T, F},
	{F, F, F, F},
}

func newTestService(t *testing.T, cfg ServiceConfig) *Service {
	t.Helper()
	svc := NewService(NewMemoryStore(), cfg, nil)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestService_Upload(t *testing.T) {
	svc := newTestService(t, DefaultServiceConfig())
	ctx := context.Background()

	b, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, int64(0), b.Generation)
	assert.Equal(t, blinker, b.Grid.Cells())

	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Grid.Equal(b.Grid))
}

func TestService_UploadInvalid(t *testing.T) {
	svc := newTestService(t, DefaultServiceConfig())

	_, err := svc.Upload(context.Background(), [][]bool{{T, T}, {T}})
	assert.ErrorIs(t, err, engine.ErrInvalidBoard)

	_, err = svc.Upload(context.Background(), nil)
	assert.ErrorIs(t, err, engine.ErrInvalidBoard)

	boards, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, boards)
}

func TestService_UploadTooManyCells(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.MaxCells = 9
	svc := newTestService(t, cfg)
	ctx := context.Background()

	_, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)

	_, err = svc.Upload(ctx, square)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	all, err := svc.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_NextWritesBack(t *testing.T) {
	svc := newTestService(t, DefaultServiceConfig())
	ctx := context.Background()

	b, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)

	next, err := svc.Next(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, next.Grid.Equal(engine.Step(b.Grid)))
	assert.Equal(t, int64(1), next.Generation)

	stored, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, stored.Grid.Equal(next.Grid))

	// A second Next returns the blinker to its starting phase.
	again, err := svc.Next(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, again.Grid.Equal(b.Grid))
	assert.Equal(t, int64(2), again.Generation)
}

func TestService_Advance(t *testing.T) {
	svc := newTestService(t, DefaultServiceConfig())
	ctx := context.Background()

	b, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)

	adv, err := svc.Advance(ctx, b.ID, 3)
	require.NoError(t, err)
	assert.True(t, adv.Grid.Equal(engine.Step(b.Grid)))
	assert.Equal(t, int64(3), adv.Generation)

	zero, err := svc.Advance(ctx, b.ID, 0)
	require.NoError(t, err)
	assert.True(t, zero.Grid.Equal(adv.Grid))
	assert.Equal(t, int64(3), zero.Generation)
}

func TestService_AdvanceErrors(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.MaxSteps = 10
	svc := newTestService(t, cfg)
	ctx := context.Background()

	b, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)

	_, err = svc.Advance(ctx, b.ID, -1)
	assert.ErrorIs(t, err, engine.ErrInvalidStepCount)

	_, err = svc.Advance(ctx, b.ID, 11)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	_, err = svc.Advance(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrBoardNotFound)

	stored, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Generation)
}

func TestService_FinalWritesBack(t *testing.T) {
	svc := newTestService(t, DefaultServiceConfig())
	ctx := context.Background()

	b, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)

	res, err := svc.Final(ctx, b.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 2, res.Period)
	assert.Equal(t, 0, res.CycleStart)
	assert.True(t, res.Board.Grid.Equal(b.Grid))
	assert.Equal(t, int64(2), res.Board.Generation)

	stored, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Generation)
}

func TestService_FinalStillLife(t *testing.T) {
	svc := newTestService(t, DefaultServiceConfig())
	ctx := context.Background()

	b, err := svc.Upload(ctx, square)
	require.NoError(t, err)

	res, err := svc.Final(ctx, b.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, res.Period)
}

// TestService_FinalFailureLeavesBoard verifies a failed search writes nothing.
func TestService_FinalFailureLeavesBoard(t *testing.T) {
	svc := newTestService(t, DefaultServiceConfig())
	ctx := context.Background()

	b, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)

	_, err = svc.Final(ctx, b.ID, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrConvergenceNotReached)

	var cnr *engine.ConvergenceNotReachedError
	require.True(t, errors.As(err, &cnr))
	assert.Equal(t, 1, cnr.Attempts)

	stored, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, stored.Grid.Equal(b.Grid))
	assert.Equal(t, int64(0), stored.Generation)
	assert.True(t, stored.UpdatedAt.Equal(b.UpdatedAt))
}

func TestService_FinalErrors(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.MaxAttempts = 50
	svc := newTestService(t, cfg)
	ctx := context.Background()

	b, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)

	_, err = svc.Final(ctx, b.ID, -1)
	assert.ErrorIs(t, err, engine.ErrInvalidAttemptBudget)

	_, err = svc.Final(ctx, b.ID, 51)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	_, err = svc.Final(ctx, uuid.New(), 10)
	assert.ErrorIs(t, err, ErrBoardNotFound)
	assert.NotErrorIs(t, err, engine.ErrConvergenceNotReached)
}

func TestService_DeleteAndList(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.MaxList = 5
	svc := newTestService(t, cfg)
	ctx := context.Background()

	a, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, square)
	require.NoError(t, err)

	all, err := svc.List(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(ctx, 6)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), ErrBoardNotFound)

	all, err = svc.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_ParallelStepper(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.Workers = 4
	cfg.ParallelThreshold = 1
	svc := newTestService(t, cfg)
	ctx := context.Background()

	b, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)

	next, err := svc.Next(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, next.Grid.Equal(engine.Step(b.Grid)))
}

// TestService_ConcurrentNext verifies concurrent updates of one board all
// succeed and every generation is counted, for both stores.
func TestService_ConcurrentNext(t *testing.T) {
	const callers = 64

	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			svc := NewService(newStore(), DefaultServiceConfig(), nil)
			t.Cleanup(func() { _ = svc.Close() })
			ctx := context.Background()

			b, err := svc.Upload(ctx, blinker)
			require.NoError(t, err)

			var g errgroup.Group
			for i := 0; i < callers; i++ {
				g.Go(func() error {
					_, err := svc.Next(ctx, b.ID)
					return err
				})
			}
			require.NoError(t, g.Wait())

			got, err := svc.Get(ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(callers), got.Generation)
		})
	}
}

// TestService_Spans verifies operations are traced and failures marked.
func TestService_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	svc := newTestService(t, DefaultServiceConfig())
	ctx := context.Background()

	b, err := svc.Upload(ctx, blinker)
	require.NoError(t, err)
	_, err = svc.Final(ctx, b.ID, 1)
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "boards.Service.Upload", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, "boards.Service.Final", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
