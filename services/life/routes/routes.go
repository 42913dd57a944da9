// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"net/http"

	"github.com/AleutianAI/AleutianLife/services/life/handlers"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the board routes with the router group.
//
// Description:
//
//	Registers all /boards/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	h - The handlers instance
//
// Endpoints:
//
//	POST   /v1/boards                   - Upload a board
//	GET    /v1/boards                   - List boards
//	GET    /v1/boards/:id               - Get a board
//	GET    /v1/boards/:id/next          - Step one generation
//	GET    /v1/boards/:id/states/:steps - Advance N generations
//	GET    /v1/boards/:id/final         - Find the terminal configuration
//	DELETE /v1/boards/:id               - Delete a board
func RegisterRoutes(rg *gin.RouterGroup, h *handlers.Handlers) {
	b := rg.Group("/boards")
	{
		b.POST("", h.HandleUpload)
		b.GET("", h.HandleList)
		b.GET("/:id", h.HandleGet)
		b.GET("/:id/next", h.HandleNext)
		b.GET("/:id/states/:steps", h.HandleAdvance)
		b.GET("/:id/final", h.HandleFinal)
		b.DELETE("/:id", h.HandleDelete)
	}
}

// SetupRoutes registers the health and metrics endpoints and the /v1 API.
// metricsHandler may be nil to omit /metrics.
func SetupRoutes(router *gin.Engine, h *handlers.Handlers, metricsHandler http.Handler) {
	router.GET("/health", h.HandleHealth)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	v1 := router.Group("/v1")
	RegisterRoutes(v1, h)
}
