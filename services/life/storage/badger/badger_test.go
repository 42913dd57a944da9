// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOpenInMemory verifies in-memory database creation works.
func TestOpenInMemory(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.InMemory())
	assert.Empty(t, db.Path())

	err = db.WithTxn(context.Background(), func(txn *badger.Txn) error {
		return txn.Set([]byte("board:1"), []byte("value"))
	})
	require.NoError(t, err)

	err = db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("board:1"))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			assert.Equal(t, []byte("value"), val)
			return nil
		})
	})
	require.NoError(t, err)
}

// TestOpenPersistent verifies data survives a close and reopen.
func TestOpenPersistent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.SyncWrites = false
	cfg.GCInterval = time.Hour

	db, err := Open(cfg)
	require.NoError(t, err)
	require.NotNil(t, db.gcRunner)

	err = db.WithTxn(context.Background(), func(txn *badger.Txn) error {
		return txn.Set([]byte("k"), []byte("v"))
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	err = db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("k"))
		return err
	})
	assert.NoError(t, err)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestWithTxn_RollsBackOnError(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	err = db.WithTxn(context.Background(), func(txn *badger.Txn) error {
		if err := txn.Set([]byte("k"), []byte("v")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("k"))
		return err
	})
	assert.ErrorIs(t, err, badger.ErrKeyNotFound)
}

func TestWithTxn_CancelledContext(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = db.WithTxn(ctx, func(txn *badger.Txn) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)

	err = db.WithReadTxn(ctx, func(txn *badger.Txn) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewGCRunner_Validation(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewGCRunner(nil, time.Second, 0.5, nil)
	assert.Error(t, err)

	_, err = NewGCRunner(db.DB, 0, 0.5, nil)
	assert.Error(t, err)

	_, err = NewGCRunner(db.DB, time.Second, 1.5, nil)
	assert.Error(t, err)

	runner, err := NewGCRunner(db.DB, time.Millisecond, 0.5, nil)
	require.NoError(t, err)
	runner.Start()
	runner.Stop()
	runner.Stop()
}

// TestWithTxnRetry_Conflict verifies a conflicting commit is rerun against
// the newer value.
func TestWithTxnRetry_Conflict(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	key := []byte("board:1")
	require.NoError(t, db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(key, []byte("0"))
	}))

	// Writes key from a second transaction after fn has read it.
	interfere := func() {
		require.NoError(t, db.WithTxn(ctx, func(txn *badger.Txn) error {
			return txn.Set(key, []byte("other"))
		}))
	}

	calls := 0
	err = db.WithTxnRetry(ctx, 3, func(txn *badger.Txn) error {
		calls++
		if _, err := txn.Get(key); err != nil {
			return err
		}
		if calls == 1 {
			interfere()
		}
		return txn.Set(key, []byte("mine"))
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	err = db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			assert.Equal(t, []byte("mine"), val)
			return nil
		})
	})
	require.NoError(t, err)
}

// TestWithTxnRetry_Exhausted verifies the conflict surfaces once retries run out.
func TestWithTxnRetry_Exhausted(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	key := []byte("board:1")

	calls := 0
	err = db.WithTxnRetry(ctx, 2, func(txn *badger.Txn) error {
		calls++
		if _, err := txn.Get(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if werr := db.WithTxn(ctx, func(other *badger.Txn) error {
			return other.Set(key, []byte("other"))
		}); werr != nil {
			return werr
		}
		return txn.Set(key, []byte("mine"))
	})
	assert.ErrorIs(t, err, badger.ErrConflict)
	assert.Equal(t, 3, calls)

	// Errors other than conflicts are returned without a rerun.
	calls = 0
	sentinel := errors.New("boom")
	err = db.WithTxnRetry(ctx, 5, func(txn *badger.Txn) error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}
