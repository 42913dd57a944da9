// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine implements the Game of Life generation engine.
//
// The engine works on immutable Grid values on a finite, non-wrapping board:
//
//   - Step computes one generation.
//   - Advance applies Step a fixed number of times.
//   - FindStable steps until a previously seen generation recurs.
//
// # Boundary Policy
//
// Cells outside the grid are absent. They are neither alive nor dead and never
// contribute to a neighbor count, so a board edge behaves like a wall.
//
// # Thread Safety
//
// Every function in this package is pure. Grids are never mutated after
// construction, so they may be shared freely between goroutines.
package engine

import "fmt"

// Grid is an immutable rectangular matrix of cells.
//
// # Description
//
// Cells are stored row-major in a single slice. The zero value is a 0x0 grid.
// Grids escaping NewGrid are always rectangular; every transition allocates a
// fresh Grid, so no cell storage is shared between generations.
//
// # Thread Safety
//
// Safe for concurrent reads. There are no mutating methods.
type Grid struct {
	rows  int
	cols  int
	cells []bool
}

// NewGrid builds a Grid from a candidate matrix.
//
// # Description
//
// Validates that the matrix has at least one row and that every row has the
// same length as the first one. Jagged input is rejected, never padded or
// truncated. The input is copied, so later changes to cells do not affect the
// returned Grid.
//
// # Inputs
//
//   - cells: Row-major matrix. cells[r][c] is true when the cell is alive.
//
// # Outputs
//
//   - Grid: The validated grid.
//   - error: *InvalidBoardError (matches ErrInvalidBoard) when the matrix is
//     empty or non-rectangular.
//
// # Examples
//
//	g, err := engine.NewGrid([][]bool{
//	    {false, true, false},
//	    {false, true, false},
//	    {false, true, false},
//	})
//	if errors.Is(err, engine.ErrInvalidBoard) {
//	    // reject the upload
//	}
func NewGrid(cells [][]bool) (Grid, error) {
	if len(cells) == 0 {
		return Grid{}, &InvalidBoardError{Reason: "board has no rows", Row: -1}
	}

	cols := len(cells[0])
	for r, row := range cells {
		if len(row) != cols {
			return Grid{}, &InvalidBoardError{
				Reason: fmt.Sprintf("row has %d cells, expected %d", len(row), cols),
				Row:    r,
			}
		}
	}

	g := newBlankGrid(len(cells), cols)
	for r, row := range cells {
		copy(g.cells[r*cols:(r+1)*cols], row)
	}
	return g, nil
}

// MustGrid is like NewGrid but panics on invalid input.
// Intended for tests and fixed patterns.
func MustGrid(cells [][]bool) Grid {
	g, err := NewGrid(cells)
	if err != nil {
		panic(err)
	}
	return g
}

// newBlankGrid allocates an all-dead grid of the given size.
func newBlankGrid(rows, cols int) Grid {
	return Grid{
		rows:  rows,
		cols:  cols,
		cells: make([]bool, rows*cols),
	}
}

// Rows returns the number of rows.
func (g Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g Grid) Cols() int { return g.cols }

// Area returns rows*cols.
func (g Grid) Area() int { return g.rows * g.cols }

// At reports whether the cell at (row, col) is alive.
//
// Panics when the coordinate is outside [0, Rows()) x [0, Cols()).
func (g Grid) At(row, col int) bool {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		panic(fmt.Sprintf("engine: cell (%d,%d) outside %dx%d grid", row, col, g.rows, g.cols))
	}
	return g.cells[row*g.cols+col]
}

// Population returns the number of live cells.
func (g Grid) Population() int {
	n := 0
	for _, alive := range g.cells {
		if alive {
			n++
		}
	}
	return n
}

// Cells returns a freshly allocated copy of the grid as a row-major matrix.
//
// The returned slices are owned by the caller.
func (g Grid) Cells() [][]bool {
	out := make([][]bool, g.rows)
	for r := range out {
		row := make([]bool, g.cols)
		copy(row, g.cells[r*g.cols:(r+1)*g.cols])
		out[r] = row
	}
	return out
}

// Equal reports whether both grids have the same dimensions and cells.
func (g Grid) Equal(other Grid) bool {
	if g.rows != other.rows || g.cols != other.cols {
		return false
	}
	for i, alive := range g.cells {
		if other.cells[i] != alive {
			return false
		}
	}
	return true
}

// String renders the grid using '#' for live and '.' for dead cells,
// one line per row.
func (g Grid) String() string {
	buf := make([]byte, 0, g.rows*(g.cols+1))
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			if g.cells[r*g.cols+c] {
				buf = append(buf, '#')
			} else {
				buf = append(buf, '.')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}
