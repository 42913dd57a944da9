// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package boards

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianLife/services/life/engine"
	"github.com/google/uuid"
)

// Store persists boards.
//
// # Description
//
// Store is the keyed persistence contract the Service depends on. Every
// method returns copies; callers never share state with the store.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Create inserts a new board. Returns ErrBoardExists if the id is taken.
	Create(ctx context.Context, b *Board) error

	// Get fetches a board. Returns ErrBoardNotFound if absent.
	Get(ctx context.Context, id uuid.UUID) (*Board, error)

	// Replace swaps the board's grid for g, adds generations to its
	// generation counter and bumps UpdatedAt. Returns the updated board or
	// ErrBoardNotFound.
	Replace(ctx context.Context, id uuid.UUID, g engine.Grid, generations int64) (*Board, error)

	// Delete removes a board. Returns ErrBoardNotFound if absent.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns up to limit boards ordered by creation time, oldest first.
	// limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]*Board, error)

	// Close releases store resources.
	Close() error
}

// MemoryStore is a Store backed by a map.
//
// Data is lost when the process exits. Used by tests and by servers started
// with the memory store.
type MemoryStore struct {
	mu     sync.RWMutex
	boards map[uuid.UUID]*Board
	now    func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		boards: make(map[uuid.UUID]*Board),
		now:    time.Now,
	}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, b *Board) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boards[b.ID]; ok {
		return ErrBoardExists
	}
	s.boards[b.ID] = b.clone()
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Board, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[id]
	if !ok {
		return nil, ErrBoardNotFound
	}
	return b.clone(), nil
}

// Replace implements Store.
func (s *MemoryStore) Replace(ctx context.Context, id uuid.UUID, g engine.Grid, generations int64) (*Board, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.boards[id]
	if !ok {
		return nil, ErrBoardNotFound
	}

	next := cur.clone()
	next.Grid = g
	next.Generation += generations
	next.UpdatedAt = s.now().UTC()
	s.boards[id] = next
	return next.clone(), nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boards[id]; !ok {
		return ErrBoardNotFound
	}
	delete(s.boards, id)
	return nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]*Board, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*Board, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, b.clone())
	}
	s.mu.RUnlock()

	sortBoards(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements Store. It is a no-op.
func (s *MemoryStore) Close() error { return nil }

// sortBoards orders boards by creation time, then id for ties.
func sortBoards(bs []*Board) {
	sort.Slice(bs, func(i, j int) bool {
		if !bs[i].CreatedAt.Equal(bs[j].CreatedAt) {
			return bs[i].CreatedAt.Before(bs[j].CreatedAt)
		}
		return bs[i].ID.String() < bs[j].ID.String()
	})
}

var _ Store = (*MemoryStore)(nil)
