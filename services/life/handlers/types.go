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
	"time"

	"github.com/AleutianAI/AleutianLife/services/life/boards"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

// =============================================================================
// Requests
// =============================================================================

// UploadRequest is the body of POST /v1/boards.
type UploadRequest struct {
	// State is the board, row-major. true is a live cell. Must have at least
	// one row and every row must have the same length.
	State [][]bool `json:"state" binding:"required,min=1,rectangular"`
}

// ListQuery is the query of GET /v1/boards.
type ListQuery struct {
	Limit int `form:"limit,default=50" binding:"gte=1"`
}

// FinalQuery is the query of GET /v1/boards/:id/final.
type FinalQuery struct {
	MaxAttempts int `form:"maxAttempts,default=100" binding:"gte=0"`
}

// =============================================================================
// Responses
// =============================================================================

// BoardResponse describes one board.
type BoardResponse struct {
	ID         string     `json:"id"`
	State      [][]bool   `json:"state"`
	Generation int64      `json:"generation"`
	Rows       int        `json:"rows"`
	Cols       int        `json:"cols"`
	Population int        `json:"population"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// FinalResponse is the body of a successful GET /v1/boards/:id/final.
type FinalResponse struct {
	ID         string   `json:"id"`
	State      [][]bool `json:"state"`
	Attempts   int      `json:"attempts"`
	Generation int64    `json:"generation"`

	// Period is 1 for a still life, p for an oscillator of period p.
	Period int `json:"period"`

	// CycleStart is the generation, relative to the request, where the
	// repeating grid first appeared.
	CycleStart int `json:"cycle_start"`
}

// ListResponse is the body of GET /v1/boards.
type ListResponse struct {
	Boards []BoardResponse `json:"boards"`
	Count  int             `json:"count"`
}

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the stable error code.
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`

	// Attempts is set for CONVERGENCE_NOT_REACHED.
	Attempts *int `json:"attempts,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func newBoardResponse(b *boards.Board) BoardResponse {
	created, updated := b.CreatedAt, b.UpdatedAt
	return BoardResponse{
		ID:         b.ID.String(),
		State:      b.Grid.Cells(),
		Generation: b.Generation,
		Rows:       b.Grid.Rows(),
		Cols:       b.Grid.Cols(),
		Population: b.Grid.Population(),
		CreatedAt:  &created,
		UpdatedAt:  &updated,
	}
}
