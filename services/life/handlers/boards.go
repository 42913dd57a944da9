// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP handlers for the board API.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AleutianAI/AleutianLife/services/life/boards"
	"github.com/AleutianAI/AleutianLife/services/life/engine"
	"github.com/AleutianAI/AleutianLife/services/life/middleware"
	"github.com/AleutianAI/AleutianLife/services/life/observability"
	"github.com/AleutianAI/AleutianLife/services/life/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers serves the /v1/boards endpoints.
type Handlers struct {
	svc     *boards.Service
	metrics *observability.HTTPMetrics
}

// NewHandlers creates handlers over svc and registers the custom binding
// tags. metrics may be nil.
func NewHandlers(svc *boards.Service, metrics *observability.HTTPMetrics) (*Handlers, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}
	return &Handlers{svc: svc, metrics: metrics}, nil
}

// HandleUpload handles POST /v1/boards.
//
// Description:
//
//	Validates and stores a new board.
//
// Request Body:
//
//	UploadRequest
//
// Response:
//
//	201 Created: BoardResponse
//	400 Bad Request: INVALID_REQUEST (missing or empty state), INVALID_BOARD (jagged rows),
//	                 LIMIT_EXCEEDED (more cells than allowed)
//	413 Request Entity Too Large: REQUEST_TOO_LARGE
func (h *Handlers) HandleUpload(c *gin.Context) {
	requestID := middleware.GetRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleUpload")

	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if failedTag(err) == rectangularTag {
			h.writeError(c, logger, engine.ErrInvalidBoard)
			return
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "Request body too large",
				Code:    "REQUEST_TOO_LARGE",
				Details: fmt.Sprintf("limit is %d bytes", tooLarge.Limit),
			})
			return
		}
		logger.Warn("Invalid request body", "error", err)
		h.respondError(c, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	b, err := h.svc.Upload(c.Request.Context(), req.State)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	logger.Info("Board uploaded",
		"board_id", b.ID,
		"rows", b.Grid.Rows(),
		"cols", b.Grid.Cols())

	c.JSON(http.StatusCreated, newBoardResponse(b))
}

// HandleList handles GET /v1/boards.
//
// Response:
//
//	200 OK: ListResponse
//	400 Bad Request: INVALID_REQUEST, LIMIT_EXCEEDED
func (h *Handlers) HandleList(c *gin.Context) {
	requestID := middleware.GetRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleList")

	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.respondError(c, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid limit",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	list, err := h.svc.List(c.Request.Context(), q.Limit)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	resp := ListResponse{Boards: make([]BoardResponse, 0, len(list))}
	for _, b := range list {
		resp.Boards = append(resp.Boards, newBoardResponse(b))
	}
	resp.Count = len(resp.Boards)
	c.JSON(http.StatusOK, resp)
}

// HandleGet handles GET /v1/boards/:id.
func (h *Handlers) HandleGet(c *gin.Context) {
	requestID := middleware.GetRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGet")

	id, ok := h.boardID(c)
	if !ok {
		return
	}

	b, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, newBoardResponse(b))
}

// HandleNext handles GET /v1/boards/:id/next.
//
// Description:
//
//	Computes the next generation and stores it as the board's current state.
func (h *Handlers) HandleNext(c *gin.Context) {
	requestID := middleware.GetRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleNext")

	id, ok := h.boardID(c)
	if !ok {
		return
	}

	b, err := h.svc.Next(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, newBoardResponse(b))
}

// HandleAdvance handles GET /v1/boards/:id/states/:steps.
//
// Description:
//
//	Computes the state steps generations ahead and stores it as the board's
//	current state.
//
// Response:
//
//	200 OK: BoardResponse
//	400 Bad Request: INVALID_STEPS, LIMIT_EXCEEDED
//	404 Not Found: BOARD_NOT_FOUND
func (h *Handlers) HandleAdvance(c *gin.Context) {
	requestID := middleware.GetRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAdvance")

	id, ok := h.boardID(c)
	if !ok {
		return
	}

	steps, err := strconv.Atoi(c.Param("steps"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, ErrorResponse{
			Error: "steps must be an integer",
			Code:  "INVALID_STEPS",
		})
		return
	}

	b, err := h.svc.Advance(c.Request.Context(), id, steps)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	logger.Debug("Board advanced", "board_id", id, "steps", steps)
	c.JSON(http.StatusOK, newBoardResponse(b))
}

// HandleFinal handles GET /v1/boards/:id/final.
//
// Description:
//
//	Searches for the board's terminal configuration within maxAttempts
//	generations (default 100). On success the terminal grid becomes the
//	board's current state. On failure the board is unchanged.
//
// Response:
//
//	200 OK: FinalResponse
//	400 Bad Request: INVALID_ATTEMPTS, LIMIT_EXCEEDED
//	404 Not Found: BOARD_NOT_FOUND
//	422 Unprocessable Entity: CONVERGENCE_NOT_REACHED
func (h *Handlers) HandleFinal(c *gin.Context) {
	requestID := middleware.GetRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleFinal")

	id, ok := h.boardID(c)
	if !ok {
		return
	}

	var q FinalQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.respondError(c, http.StatusBadRequest, ErrorResponse{
			Error:   "maxAttempts must be a non-negative integer",
			Code:    "INVALID_ATTEMPTS",
			Details: err.Error(),
		})
		return
	}

	res, err := h.svc.Final(c.Request.Context(), id, q.MaxAttempts)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	logger.Info("Final state found",
		"board_id", id,
		"attempts", res.Attempts,
		"period", res.Period)

	c.JSON(http.StatusOK, FinalResponse{
		ID:         res.Board.ID.String(),
		State:      res.Board.Grid.Cells(),
		Attempts:   res.Attempts,
		Generation: res.Board.Generation,
		Period:     res.Period,
		CycleStart: res.CycleStart,
	})
}

// HandleDelete handles DELETE /v1/boards/:id.
func (h *Handlers) HandleDelete(c *gin.Context) {
	requestID := middleware.GetRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDelete")

	id, ok := h.boardID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, logger, err)
		return
	}

	logger.Info("Board deleted", "board_id", id)
	c.Status(http.StatusNoContent)
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// =============================================================================
// Helpers
// =============================================================================

// boardID parses the :id path parameter, writing INVALID_ID on failure.
func (h *Handlers) boardID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, ErrorResponse{
			Error: "board id must be a UUID",
			Code:  "INVALID_ID",
		})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps a service error to its status and code.
func (h *Handlers) writeError(c *gin.Context, logger *slog.Logger, err error) {
	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var cnr *engine.ConvergenceNotReachedError
	switch {
	case errors.Is(err, boards.ErrBoardNotFound):
		status, resp.Code = http.StatusNotFound, "BOARD_NOT_FOUND"
	case errors.Is(err, engine.ErrInvalidBoard):
		status, resp.Code = http.StatusBadRequest, "INVALID_BOARD"
	case errors.Is(err, engine.ErrInvalidStepCount):
		status, resp.Code = http.StatusBadRequest, "INVALID_STEPS"
	case errors.Is(err, engine.ErrInvalidAttemptBudget):
		status, resp.Code = http.StatusBadRequest, "INVALID_ATTEMPTS"
	case errors.Is(err, boards.ErrLimitExceeded):
		status, resp.Code = http.StatusBadRequest, "LIMIT_EXCEEDED"
	case errors.Is(err, boards.ErrConflict):
		status, resp.Code = http.StatusConflict, "CONFLICT"
	case errors.As(err, &cnr):
		status, resp.Code = http.StatusUnprocessableEntity, "CONVERGENCE_NOT_REACHED"
		attempts := cnr.Attempts
		resp.Attempts = &attempts
	default:
		resp.Error = "internal error"
		resp.Code = "INTERNAL"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "trace_id", telemetry.TraceID(c.Request.Context()))
	} else {
		logger.Debug("Request rejected", "code", resp.Code, "error", err)
	}
	h.respondError(c, status, resp)
}

// respondError writes resp and records it.
func (h *Handlers) respondError(c *gin.Context, status int, resp ErrorResponse) {
	if h.metrics != nil {
		h.metrics.RecordError(c.FullPath(), resp.Code)
	}
	c.JSON(status, resp)
}
