// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/memdb"
)

const (
	KindMemory = "memory"
	KindBadger = "badger"
)

// Storage wraps luxfi's database interface
type Storage struct {
	// guards the index keys' read-modify-write
	mu sync.Mutex
	db database.Database
}

// NewStorage creates a new storage instance using luxfi/database
func NewStorage(kind string, path string) (*Storage, error) {
	var db database.Database
	var err error

	switch kind {
	case KindMemory:
		db = memdb.New()
	case "", KindBadger:
		db, err = badgerdb.New(path, nil, "", nil)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger at %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unknown database kind %q", kind)
	}

	return &Storage{db: db}, nil
}

// NewMemory returns an in-memory storage
func NewMemory() *Storage {
	return &Storage{db: memdb.New()}
}

// Get retrieves a value by key
func (s *Storage) Get(key []byte) ([]byte, error) {
	return s.db.Get(key)
}

// Has checks if a key exists
func (s *Storage) Has(key []byte) (bool, error) {
	return s.db.Has(key)
}

// NewBatch creates a new batch for atomic operations
func (s *Storage) NewBatch() database.Batch {
	return s.db.NewBatch()
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}
