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

import "encoding/binary"

// fingerprintHeader is the size of the dimension prefix in a Fingerprint.
const fingerprintHeader = 8

// Fingerprint is a canonical encoding of a Grid's dimensions and cells.
//
// Two grids have equal fingerprints if and only if they are Equal. It is a
// plain string so it can key a map; map lookups compare keys byte for byte,
// so a membership hit is always an exact match.
type Fingerprint string

// FingerprintOf encodes g as rows and cols (uint32 big-endian) followed by
// the cells packed eight per byte in row-major order.
func FingerprintOf(g Grid) Fingerprint {
	buf := make([]byte, fingerprintHeader+(g.Area()+7)/8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(g.rows))
	binary.BigEndian.PutUint32(buf[4:8], uint32(g.cols))

	bits := buf[fingerprintHeader:]
	for i, alive := range g.cells {
		if alive {
			bits[i>>3] |= 1 << (7 - uint(i&7))
		}
	}
	return Fingerprint(buf)
}

// Convergence is the detailed outcome of a successful FindStableDetailed.
type Convergence struct {
	// Grid is the first generation whose fingerprint had been seen before.
	Grid Grid

	// Attempts is the number of generations computed, counted from the
	// starting grid (generation 0), up to and including the repeat.
	Attempts int

	// CycleStart is the generation index where the repeated grid first
	// appeared.
	CycleStart int

	// Period is Attempts - CycleStart: 1 for a fixed point, p for an
	// oscillator of period p.
	Period int
}

// FindStable searches for a terminal configuration using DefaultStepper.
func FindStable(g Grid, maxAttempts int) (Grid, int, error) {
	return DefaultStepper().FindStable(g, maxAttempts)
}

// FindStable steps g until a generation repeats or the budget runs out.
//
// # Description
//
// Keeps the fingerprint of every distinct generation seen, starting with g
// itself. For attempt = 1..maxAttempts, computes the next generation and
// returns it as soon as its fingerprint is already known. Because the whole
// orbit is remembered, fixed points and oscillators of any period are found.
// The returned count is the cumulative number of generations advanced to
// the first repeat, not the cycle length; a blinker starting at generation 0
// reports 2.
//
// The visited set lives only for the duration of the call.
//
// # Inputs
//
//   - g: Starting generation.
//   - maxAttempts: Hard upper bound on generations computed. Must be >= 0.
//
// # Outputs
//
//   - Grid: The first repeated generation.
//   - int: The attempt at which the repeat was found.
//   - error: *ConvergenceNotReachedError carrying maxAttempts when no repeat
//     occurs within the budget (no grid is returned in that case), or
//     ErrInvalidAttemptBudget for a negative budget.
//
// # Limitations
//
//   - Memory grows with the number of distinct generations visited:
//     O(maxAttempts * rows * cols / 8) bytes in the worst case.
func (s Stepper) FindStable(g Grid, maxAttempts int) (Grid, int, error) {
	res, err := s.FindStableDetailed(g, maxAttempts)
	if err != nil {
		return Grid{}, 0, err
	}
	return res.Grid, res.Attempts, nil
}

// FindStableDetailed is FindStable that also reports where the cycle begins
// and its period.
func (s Stepper) FindStableDetailed(g Grid, maxAttempts int) (Convergence, error) {
	if maxAttempts < 0 {
		return Convergence{}, ErrInvalidAttemptBudget
	}

	seen := make(map[Fingerprint]int, min(maxAttempts, 1024)+1)
	seen[FingerprintOf(g)] = 0

	cur := g
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		cur = s.Step(cur)
		fp := FingerprintOf(cur)
		if first, ok := seen[fp]; ok {
			return Convergence{
				Grid:       cur,
				Attempts:   attempt,
				CycleStart: first,
				Period:     attempt - first,
			}, nil
		}
		seen[fp] = attempt
	}

	return Convergence{}, &ConvergenceNotReachedError{Attempts: maxAttempts}
}
