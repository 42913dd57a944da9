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
	"errors"
	"fmt"
)

// Sentinel errors for the generation engine.
var (
	// ErrInvalidBoard indicates the cell matrix is empty or not rectangular.
	ErrInvalidBoard = errors.New("invalid board")

	// ErrInvalidStepCount indicates a negative step count.
	ErrInvalidStepCount = errors.New("invalid step count")

	// ErrInvalidAttemptBudget indicates a negative attempt budget.
	ErrInvalidAttemptBudget = errors.New("invalid attempt budget")

	// ErrConvergenceNotReached indicates no generation repeated within the budget.
	ErrConvergenceNotReached = errors.New("convergence not reached")
)

// InvalidBoardError describes why a matrix was rejected by NewGrid.
type InvalidBoardError struct {
	// Reason is a human-readable description.
	Reason string

	// Row is the index of the offending row, or -1 when the matrix is empty.
	Row int
}

func (e *InvalidBoardError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%s: %s", ErrInvalidBoard, e.Reason)
	}
	return fmt.Sprintf("%s: row %d: %s", ErrInvalidBoard, e.Row, e.Reason)
}

func (e *InvalidBoardError) Unwrap() error { return ErrInvalidBoard }

// InvalidStepCountError is returned by Advance for a negative step count.
type InvalidStepCountError struct {
	Steps int
}

func (e *InvalidStepCountError) Error() string {
	return fmt.Sprintf("%s: %d (must be >= 0)", ErrInvalidStepCount, e.Steps)
}

func (e *InvalidStepCountError) Unwrap() error { return ErrInvalidStepCount }

// ConvergenceNotReachedError is returned by FindStable when the attempt
// budget runs out before any generation repeats.
type ConvergenceNotReachedError struct {
	// Attempts is the number of generations computed before giving up.
	Attempts int
}

func (e *ConvergenceNotReachedError) Error() string {
	return fmt.Sprintf("%s after %d attempts", ErrConvergenceNotReached, e.Attempts)
}

func (e *ConvergenceNotReachedError) Unwrap() error { return ErrConvergenceNotReached }
