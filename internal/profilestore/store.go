// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

/*
store.go - Badger-backed Taste Profile Store

Taste and group profiles are small versioned blobs read on every
recommendation request and rewritten after feedback. They live in an
embedded BadgerDB keyed by profile key:

	profile:<userID>                personal taste profile
	profile:group:<userID>:<company> group profile for a company context

Each value is a JSON envelope carrying the schema version, the serialized
profile and the time it was written. The recommendation service decides
whether a stored version is current; the store never interprets Data.

An empty StorePath opens Badger in memory, which is what tests and
ephemeral deployments use. On-disk stores run value log GC periodically
through GCService.
*/
//nolint:staticcheck // File documentation, not package doc
package profilestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/logging"
	"github.com/tomtom215/reelsense/internal/metrics"
	"github.com/tomtom215/reelsense/internal/recommend"
)

const (
	keyPrefix = "profile:"

	// gcDiscardRatio is the fraction of stale data a value log file must
	// hold before Badger rewrites it.
	gcDiscardRatio = 0.5
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("profile store is closed")

// envelope is the stored value format.
type envelope struct {
	Version   int       `json:"version"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists profile blobs in BadgerDB.
type Store struct {
	db       *badger.DB
	inMemory bool
	closed   atomic.Bool
}

// Open opens (or creates) the profile store described by cfg.
func Open(cfg config.ProfileConfig) (*Store, error) {
	var opts badger.Options
	inMemory := cfg.StorePath == ""
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.StorePath, 0o750); err != nil {
			return nil, fmt.Errorf("create profile store directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.StorePath)
		opts.SyncWrites = true
	}
	opts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open profile store: %w", err)
	}

	logging.Info().
		Str("path", cfg.StorePath).
		Bool("in_memory", inMemory).
		Msg("Profile store opened")

	return &Store{db: db, inMemory: inMemory}, nil
}

func profileKey(key string) []byte {
	return []byte(keyPrefix + key)
}

// LoadProfile returns the blob stored under key. A missing key is reported
// with ok=false and a nil error.
func (s *Store) LoadProfile(ctx context.Context, key string) (recommend.ProfileBlob, bool, error) {
	if s.closed.Load() {
		return recommend.ProfileBlob{}, false, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return recommend.ProfileBlob{}, false, err
	}

	var env envelope
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		metrics.RecordProfileStore("load", "miss")
		return recommend.ProfileBlob{}, false, nil
	}
	if err != nil {
		metrics.RecordProfileStore("load", "error")
		return recommend.ProfileBlob{}, false, fmt.Errorf("load profile %q: %w", key, err)
	}

	metrics.RecordProfileStore("load", "ok")
	return recommend.ProfileBlob{
		Version:   env.Version,
		Data:      env.Data,
		UpdatedAt: env.UpdatedAt,
	}, true, nil
}

// SaveProfile writes blob under key, replacing any previous value.
func (s *Store) SaveProfile(ctx context.Context, key string, blob recommend.ProfileBlob) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	updatedAt := blob.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	data, err := json.Marshal(envelope{
		Version:   blob.Version,
		Data:      blob.Data,
		UpdatedAt: updatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal profile envelope: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(key), data)
	})
	if err != nil {
		metrics.RecordProfileStore("save", "error")
		return fmt.Errorf("save profile %q: %w", key, err)
	}
	metrics.RecordProfileStore("save", "ok")
	return nil
}

// DeleteProfile removes key. Deleting a missing key is not an error.
func (s *Store) DeleteProfile(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(profileKey(key))
	})
	if err != nil {
		metrics.RecordProfileStore("delete", "error")
		return fmt.Errorf("delete profile %q: %w", key, err)
	}
	metrics.RecordProfileStore("delete", "ok")
	return nil
}

// Keys lists stored profile keys with the given prefix (without the
// internal key prefix), in key order.
func (s *Store) Keys(prefix string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = profileKey(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().KeyCopy(nil)
			keys = append(keys, string(k[len(keyPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return keys, nil
}

// RunGC runs value log garbage collection until Badger reports nothing left
// to rewrite. It is a no-op for in-memory stores.
func (s *Store) RunGC() error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if s.inMemory {
		return nil
	}
	defer metrics.ProfileStoreGCRuns.Inc()

	for {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database. Calling Close more than once is safe.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close profile store: %w", err)
	}
	return nil
}

var _ recommend.ProfileStore = (*Store)(nil)
