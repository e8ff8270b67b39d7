// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docimport/core"
	"github.com/poiesic/docimport/storage"
)

// Store is an embedded storage.Destination backed by BadgerDB.
// Each Commit is a single badger transaction.
type Store struct {
	backend *Backend
	path    string
	logger  *slog.Logger
}

var (
	_ storage.Destination = (*Store)(nil)
	_ storage.Describer   = (*Store)(nil)
)

// Open opens (or creates) a store at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	backend, err := OpenBackend(path, false, logger)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return NewStore(backend, path), nil
}

// NewStore wraps an open backend.
func NewStore(backend *Backend, path string) *Store {
	return &Store{
		backend: backend,
		path:    path,
		logger:  backend.logger,
	}
}

// Describe names the store for the confirmation prompt.
func (s *Store) Describe() string {
	if s.path == "" {
		return "in-memory badger store"
	}
	return "badger store at " + s.path
}

// Ping reports whether the store is open.
func (s *Store) Ping(ctx context.Context) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// Commit writes records in one transaction. Records whose key already exists,
// including earlier records in the same batch, are ignored.
func (s *Store) Commit(ctx context.Context, records []*core.Record) (storage.CommitResult, error) {
	var result storage.CommitResult
	if s.backend.IsClosed() {
		return result, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			key := makeRecordKey(record.ID)
			_, err := tx.Get(key)
			if err == nil {
				result.Ignored++
				result.IgnoredIDs = append(result.IgnoredIDs, record.ID)
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := tx.Set(key, storage.MarshalRecord(record)); err != nil {
				return err
			}
			result.Inserted++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return storage.CommitResult{}, fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}

	s.logger.Debug("batch committed", "inserted", result.Inserted, "ignored", result.Ignored)
	return result, nil
}

// Finalize adds committed to the edit counter.
func (s *Store) Finalize(ctx context.Context, committed int) error {
	if committed <= 0 {
		return nil
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		current, err := readCounter(tx)
		if err != nil {
			return err
		}
		if err := tx.Set([]byte(counterKey), storage.MarshalCounter(current+uint64(committed))); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return fmt.Errorf("%w: update edit count: %w", storage.ErrFinalizeFailed, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id string) (*core.Record, error) {
	var record *core.Record
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRecordKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			record, err = storage.UnmarshalRecord(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Records returns every stored record ordered by label then title.
func (s *Store) Records(ctx context.Context) ([]*core.Record, error) {
	var records []*core.Record

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := iter.Item().Value(func(val []byte) error {
				record, err := storage.UnmarshalRecord(val)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(records, func(a, b *core.Record) int {
		if c := strings.Compare(a.Label, b.Label); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	})
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// EditCount returns the current edit counter.
func (s *Store) EditCount(ctx context.Context) (uint64, error) {
	var n uint64
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		n, err = readCounter(tx)
		return err
	}, false)
	return n, err
}

func readCounter(tx *badger.Txn) (uint64, error) {
	item, err := tx.Get([]byte(counterKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var n uint64
	err = item.Value(func(val []byte) error {
		var err error
		n, err = storage.UnmarshalCounter(val)
		return err
	})
	return n, err
}
