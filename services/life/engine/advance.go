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

// Advance applies Step to g exactly steps times using DefaultStepper.
func Advance(g Grid, steps int) (Grid, error) {
	return DefaultStepper().Advance(g, steps)
}

// Advance applies Step to g exactly steps times.
//
// # Description
//
// Each output feeds the next input and only the final generation is kept.
// steps == 0 returns a grid equal to g; callers should rely on value
// equality, not identity.
//
// # Inputs
//
//   - g: Starting generation.
//   - steps: Number of generations to compute. Must be >= 0.
//
// # Outputs
//
//   - Grid: The generation after steps applications.
//   - error: *InvalidStepCountError (matches ErrInvalidStepCount) when
//     steps is negative.
func (s Stepper) Advance(g Grid, steps int) (Grid, error) {
	if steps < 0 {
		return Grid{}, &InvalidStepCountError{Steps: steps}
	}

	cur := g
	for i := 0; i < steps; i++ {
		cur = s.Step(cur)
	}
	return cur, nil
}
