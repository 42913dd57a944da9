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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianLife/services/life/engine"
	lifebadger "github.com/AleutianAI/AleutianLife/services/life/storage/badger"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// boardKeyPrefix namespaces board documents in the database.
const boardKeyPrefix = "board:"

func boardKey(id uuid.UUID) []byte {
	return []byte(boardKeyPrefix + id.String())
}

// maxConflictRetries bounds the reruns of one Replace transaction.
const maxConflictRetries = 256

// BadgerStore is a Store backed by BadgerDB.
//
// # Description
//
// Each board is one JSON document under "board:<uuid>". Replace reads and
// writes the document inside a single read-write transaction. When Badger
// aborts a concurrent replacement with a conflict, the transaction is rerun
// against the newer document, so concurrent replacements are
// last-writer-wins and every generation delta is counted. ErrConflict is
// returned only after maxConflictRetries reruns.
//
// # Thread Safety
//
// Safe for concurrent use.
type BadgerStore struct {
	db  *lifebadger.DB
	now func() time.Time
}

// NewBadgerStore wraps an open database. The store takes ownership of db
// and closes it in Close.
func NewBadgerStore(db *lifebadger.DB) *BadgerStore {
	return &BadgerStore{db: db, now: time.Now}
}

// Create implements Store.
func (s *BadgerStore) Create(ctx context.Context, b *Board) error {
	data, err := json.Marshal(toDocument(b))
	if err != nil {
		return fmt.Errorf("encode board %s: %w", b.ID, err)
	}

	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(boardKey(b.ID))
		switch {
		case err == nil:
			return ErrBoardExists
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("check board %s: %w", b.ID, err)
		}
		return txn.Set(boardKey(b.ID), data)
	})
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, id uuid.UUID) (*Board, error) {
	var out *Board
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		b, err := readBoard(txn, id)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Replace implements Store.
func (s *BadgerStore) Replace(ctx context.Context, id uuid.UUID, g engine.Grid, generations int64) (*Board, error) {
	var out *Board
	err := s.db.WithTxnRetry(ctx, maxConflictRetries, func(txn *badger.Txn) error {
		b, err := readBoard(txn, id)
		if err != nil {
			return err
		}

		b.Grid = g
		b.Generation += generations
		b.UpdatedAt = s.now().UTC()

		data, err := json.Marshal(toDocument(b))
		if err != nil {
			return fmt.Errorf("encode board %s: %w", id, err)
		}
		if err := txn.Set(boardKey(id), data); err != nil {
			return err
		}
		out = b
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return nil, fmt.Errorf("%w: board %s: %v", ErrConflict, id, err)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(boardKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrBoardNotFound
			}
			return err
		}
		return txn.Delete(boardKey(id))
	})
}

// List implements Store.
func (s *BadgerStore) List(ctx context.Context, limit int) ([]*Board, error) {
	var out []*Board
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(boardKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var doc document
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			b, err := fromDocument(doc)
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortBoards(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func readBoard(txn *badger.Txn, id uuid.UUID) (*Board, error) {
	item, err := txn.Get(boardKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("get board %s: %w", id, err)
	}

	var doc document
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	}); err != nil {
		return nil, fmt.Errorf("decode board %s: %w", id, err)
	}

	b, err := fromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("decode board %s: %w", id, err)
	}
	return b, nil
}

var _ Store = (*BadgerStore)(nil)
