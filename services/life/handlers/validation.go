// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// rectangularTag is the binding tag for boards whose rows all have the
// same length.
const rectangularTag = "rectangular"

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators registers the custom binding tags on gin's validator
// engine. Safe to call multiple times.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		if err := v.RegisterValidation(rectangularTag, validateRectangular); err != nil {
			registerErr = fmt.Errorf("register %s: %w", rectangularTag, err)
		}
	})
	return registerErr
}

// validateRectangular reports whether a [][]bool field has equal-length rows.
func validateRectangular(fl validator.FieldLevel) bool {
	rows, ok := fl.Field().Interface().([][]bool)
	if !ok {
		return false
	}
	for _, row := range rows {
		if len(row) != len(rows[0]) {
			return false
		}
	}
	return true
}

// failedTag returns the first validation tag that failed in err, or "".
func failedTag(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Tag()
	}
	return ""
}
