// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/luxfi/database"

	"github.com/luxfi/sealbid/pkg/ids"
)

// Records are found through two index keys rather than prefix iteration: the
// highest auction id ever written and the set of accounts holding a claim.

var (
	auctionPrefix = []byte("auction/")
	claimPrefix   = []byte("claim/")

	lastAuctionKey = []byte("meta/last-auction")
	claimIndexKey  = []byte("meta/claims")
)

func auctionKey(id uint64) []byte {
	key := make([]byte, len(auctionPrefix)+8)
	copy(key, auctionPrefix)
	binary.BigEndian.PutUint64(key[len(auctionPrefix):], id)
	return key
}

func claimKey(owner ids.Address) []byte {
	return append(append([]byte{}, claimPrefix...), owner[:]...)
}

// SaveAuction writes the auction and the given claims in one batch. A claim
// with an empty or "0" amount is deleted.
func (s *Storage) SaveAuction(rec *AuctionRecord, claims ...ClaimRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode auction %d: %w", rec.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.NewBatch()
	if err := batch.Put(auctionKey(rec.ID), data); err != nil {
		return err
	}
	last, err := s.lastAuction()
	if err != nil {
		return err
	}
	if rec.ID > last {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], rec.ID)
		if err := batch.Put(lastAuctionKey, buf[:]); err != nil {
			return err
		}
	}
	if err := s.putClaims(batch, claims); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to write auction %d: %w", rec.ID, err)
	}
	return nil
}

// SaveClaims writes claims outside of any auction update
func (s *Storage) SaveClaims(claims ...ClaimRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.NewBatch()
	if err := s.putClaims(batch, claims); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to write claims: %w", err)
	}
	return nil
}

// LoadAuctions returns every stored auction ordered by id
func (s *Storage) LoadAuctions() ([]*AuctionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, err := s.lastAuction()
	if err != nil {
		return nil, err
	}

	var out []*AuctionRecord
	for id := uint64(1); id <= last; id++ {
		data, err := s.Get(auctionKey(id))
		if errors.Is(err, database.ErrNotFound) {
			// ids burned by an aborted create
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read auction %d: %w", id, err)
		}
		var rec AuctionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("corrupt auction record %d: %w", id, err)
		}
		out = append(out, &rec)
	}
	return out, nil
}

// LoadClaims returns every outstanding claim ordered by owner
func (s *Storage) LoadClaims() ([]ClaimRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := s.claimIndex()
	if err != nil {
		return nil, err
	}

	out := make([]ClaimRecord, 0, len(owners))
	for _, owner := range owners {
		data, err := s.Get(claimKey(owner))
		if err != nil {
			return nil, fmt.Errorf("failed to read claim %s: %w", owner, err)
		}
		var c ClaimRecord
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("corrupt claim record %s: %w", owner, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Storage) lastAuction() (uint64, error) {
	data, err := s.Get(lastAuctionKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("failed to read auction index: %w", err)
	case len(data) != 8:
		return 0, fmt.Errorf("corrupt auction index: %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func (s *Storage) claimIndex() ([]ids.Address, error) {
	data, err := s.Get(claimIndexKey)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read claim index: %w", err)
	}
	var owners []ids.Address
	if err := json.Unmarshal(data, &owners); err != nil {
		return nil, fmt.Errorf("corrupt claim index: %w", err)
	}
	return owners, nil
}

// putClaims stages claim updates and the rewritten claim index
func (s *Storage) putClaims(batch database.Batch, claims []ClaimRecord) error {
	if len(claims) == 0 {
		return nil
	}
	owners, err := s.claimIndex()
	if err != nil {
		return err
	}
	index := make(map[ids.Address]struct{}, len(owners)+len(claims))
	for _, owner := range owners {
		index[owner] = struct{}{}
	}

	for _, c := range claims {
		if c.Amount == "" || c.Amount == "0" {
			if err := batch.Delete(claimKey(c.Owner)); err != nil {
				return err
			}
			delete(index, c.Owner)
			continue
		}
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if err := batch.Put(claimKey(c.Owner), data); err != nil {
			return err
		}
		index[c.Owner] = struct{}{}
	}

	next := make([]ids.Address, 0, len(index))
	for owner := range index {
		next = append(next, owner)
	}
	sort.Slice(next, func(i, j int) bool { return bytes.Compare(next[i][:], next[j][:]) < 0 })
	data, err := json.Marshal(next)
	if err != nil {
		return err
	}
	return batch.Put(claimIndexKey, data)
}
