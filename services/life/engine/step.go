// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultParallelThreshold is the minimum cell count at which the default
// Stepper evaluates row bands concurrently.
const DefaultParallelThreshold = 256 * 256

// Stepper computes generations.
//
// # Description
//
// A Stepper applies the Conway rule once per call to Step. Small grids are
// evaluated on the calling goroutine. Grids with at least ParallelThreshold
// cells are split into horizontal bands that are evaluated concurrently;
// every band reads only the previous generation and writes only its own rows
// of the new one, so the result is bit-identical to the sequential path.
//
// # Fields
//
//   - Workers: Maximum concurrent bands. Zero means runtime.GOMAXPROCS(0).
//   - ParallelThreshold: Minimum cell count for the banded path. Zero or
//     negative disables banding.
//
// # Thread Safety
//
// A Stepper holds no mutable state and may be shared.
type Stepper struct {
	Workers           int
	ParallelThreshold int
}

// DefaultStepper returns the Stepper used by the package-level functions.
func DefaultStepper() Stepper {
	return Stepper{ParallelThreshold: DefaultParallelThreshold}
}

// Step computes the next generation of g using DefaultStepper.
func Step(g Grid) Grid {
	return DefaultStepper().Step(g)
}

// Step computes the next generation of g.
//
// # Description
//
// For each cell, live neighbors are counted among the up to eight in-bounds
// surrounding cells. A live cell survives with 2 or 3 live neighbors; a dead
// cell becomes live with exactly 3; every other cell is dead in the result.
//
// # Inputs
//
//   - g: The current generation. Not modified.
//
// # Outputs
//
//   - Grid: A newly allocated next generation with the same dimensions.
//     Zero-area grids are returned as-is.
func (s Stepper) Step(g Grid) Grid {
	if g.Area() == 0 {
		return g
	}

	next := newBlankGrid(g.rows, g.cols)

	workers := s.workers()
	if s.ParallelThreshold <= 0 || g.Area() < s.ParallelThreshold || workers < 2 || g.rows < 2 {
		stepRows(g, next, 0, g.rows)
		return next
	}

	bands := workers
	if bands > g.rows {
		bands = g.rows
	}
	bandHeight := (g.rows + bands - 1) / bands

	var eg errgroup.Group
	eg.SetLimit(workers)
	for start := 0; start < g.rows; start += bandHeight {
		end := min(start+bandHeight, g.rows)
		eg.Go(func() error {
			stepRows(g, next, start, end)
			return nil
		})
	}
	// Bands never fail; Wait only joins.
	_ = eg.Wait()

	return next
}

func (s Stepper) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// stepRows writes rows [start, end) of next from cur.
func stepRows(cur, next Grid, start, end int) {
	for r := start; r < end; r++ {
		for c := 0; c < cur.cols; c++ {
			n := liveNeighbors(cur, r, c)
			alive := cur.cells[r*cur.cols+c]
			next.cells[r*cur.cols+c] = n == 3 || (alive && n == 2)
		}
	}
}

// liveNeighbors counts live cells around (row, col), skipping coordinates
// outside the grid.
func liveNeighbors(g Grid, row, col int) int {
	count := 0
	for r := row - 1; r <= row+1; r++ {
		if r < 0 || r >= g.rows {
			continue
		}
		base := r * g.cols
		for c := col - 1; c <= col+1; c++ {
			if c < 0 || c >= g.cols || (r == row && c == col) {
				continue
			}
			if g.cells[base+c] {
				count++
			}
		}
	}
	return count
}
