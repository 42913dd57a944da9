// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package boards persists Game of Life boards and orchestrates engine runs
// against them.
//
// A Board pairs an id with exactly one current engine.Grid. Grids are
// immutable, so updating a board always replaces the whole grid value;
// readers never observe a partially updated board.
//
// # Components
//
//   - Store: create, fetch, replace, delete and list boards.
//   - BadgerStore: Store backed by BadgerDB JSON documents.
//   - MemoryStore: Store backed by a map, for tests and ephemeral servers.
//   - Service: fetches a board, runs the engine, writes the result back.
package boards

import (
	"errors"
	"time"

	"github.com/AleutianAI/AleutianLife/services/life/engine"
	"github.com/google/uuid"
)

// Sentinel errors for board persistence and orchestration.
var (
	// ErrBoardNotFound indicates no board exists for the id.
	ErrBoardNotFound = errors.New("board not found")

	// ErrBoardExists indicates a board with the id already exists.
	ErrBoardExists = errors.New("board already exists")

	// ErrLimitExceeded indicates a step count, attempt budget, list limit or
	// board size above the configured maximum.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrConflict indicates concurrent updates to one board kept colliding
	// until the store gave up.
	ErrConflict = errors.New("board update conflict")
)

// Board is a stored board.
type Board struct {
	// ID is the board identity, assigned on upload.
	ID uuid.UUID

	// Grid is the current generation.
	Grid engine.Grid

	// Generation counts generations computed since upload.
	Generation int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// clone returns a shallow copy. Grid is immutable, so this is a full copy.
func (b *Board) clone() *Board {
	c := *b
	return &c
}

// document is the persisted JSON form of a Board.
type document struct {
	ID         string    `json:"id"`
	State      [][]bool  `json:"state"`
	Generation int64     `json:"generation"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toDocument(b *Board) document {
	return document{
		ID:         b.ID.String(),
		State:      b.Grid.Cells(),
		Generation: b.Generation,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

// fromDocument rebuilds a Board, revalidating the stored grid.
func fromDocument(d document) (*Board, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	g, err := engine.NewGrid(d.State)
	if err != nil {
		return nil, err
	}
	return &Board{
		ID:         id,
		Grid:       g,
		Generation: d.Generation,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}
