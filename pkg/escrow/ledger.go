// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package escrow

import (
	"bytes"
	"errors"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/ids"
	"github.com/luxfi/sealbid/pkg/log"
)

var (
	ErrZeroAmount      = errors.New("zero escrow amount")
	ErrOverflow        = errors.New("escrow balance overflow")
	ErrAlreadyReleased = errors.New("escrow already released for auction")
	ErrNoEscrow        = errors.New("no escrow for bidder")
	ErrNothingToClaim  = errors.New("nothing to claim")
	ErrNotRecorded     = errors.New("claim change not recorded")
)

// Entry is the locked balance of one bidder in one auction
type Entry struct {
	AuctionID uint64      `json:"auction_id"`
	Bidder    ids.Address `json:"bidder"`
	Amount    uint256.Int `json:"-"`
}

// Ledger tracks funds locked per (auction, bidder) and balances left
// claimable after a failed payout. All methods are safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	locked   map[uint64]map[ids.Address]*uint256.Int
	released map[uint64]bool
	claims   map[ids.Address]*uint256.Int
	log      log.Logger
}

// NewLedger creates an empty ledger
func NewLedger(logger log.Logger) *Ledger {
	return &Ledger{
		locked:   make(map[uint64]map[ids.Address]*uint256.Int),
		released: make(map[uint64]bool),
		claims:   make(map[ids.Address]*uint256.Int),
		log:      logger,
	}
}

// Lock adds amount to the bidder's escrow in auctionID and returns the new balance
func (l *Ledger) Lock(auctionID uint64, bidder ids.Address, amount *uint256.Int) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released[auctionID] {
		return nil, ErrAlreadyReleased
	}

	bidders, exists := l.locked[auctionID]
	if !exists {
		bidders = make(map[ids.Address]*uint256.Int)
		l.locked[auctionID] = bidders
	}

	balance, exists := bidders[bidder]
	if !exists {
		balance = new(uint256.Int)
	}
	next, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return nil, ErrOverflow
	}
	bidders[bidder] = next

	l.log.Debug("escrow locked",
		log.Uint64("auction", auctionID),
		log.Address("bidder", bidder),
		log.Amount("amount", amount),
		log.Amount("balance", next),
	)
	return next.Clone(), nil
}

// Unlock reverses a Lock of amount; used when a commit cannot be recorded
func (l *Ledger) Unlock(auctionID uint64, bidder ids.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, exists := l.locked[auctionID][bidder]
	if !exists || balance.Lt(amount) {
		return ErrNoEscrow
	}
	balance.Sub(balance, amount)
	if balance.IsZero() {
		delete(l.locked[auctionID], bidder)
	}
	return nil
}

// Escrowed returns the bidder's locked balance in auctionID
func (l *Ledger) Escrowed(auctionID uint64, bidder ids.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	balance, exists := l.locked[auctionID][bidder]
	if !exists {
		return new(uint256.Int)
	}
	return balance.Clone()
}

// Total returns the sum locked in auctionID
func (l *Ledger) Total(auctionID uint64) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := new(uint256.Int)
	for _, balance := range l.locked[auctionID] {
		total.Add(total, balance)
	}
	return total
}

// Entries returns the auction's escrow entries sorted by bidder
func (l *Ledger) Entries(auctionID uint64) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.entriesLocked(auctionID)
}

// Release removes every entry of auctionID from the ledger and returns them.
// A released auction accepts no further locks.
func (l *Ledger) Release(auctionID uint64) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released[auctionID] {
		return nil, ErrAlreadyReleased
	}
	entries := l.entriesLocked(auctionID)
	delete(l.locked, auctionID)
	l.released[auctionID] = true
	return entries, nil
}

// Credit adds amount to who's claimable balance
func (l *Ledger) Credit(who ids.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, exists := l.claims[who]
	if !exists {
		balance = new(uint256.Int)
	}
	next, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return ErrOverflow
	}
	l.claims[who] = next
	return nil
}

// Claimable returns who's claimable balance
func (l *Ledger) Claimable(who ids.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	balance, exists := l.claims[who]
	if !exists {
		return new(uint256.Int)
	}
	return balance.Clone()
}

// TakeClaim removes and returns who's claimable balance
func (l *Ledger) TakeClaim(who ids.Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, exists := l.claims[who]
	if !exists || balance.IsZero() {
		return nil, ErrNothingToClaim
	}
	delete(l.claims, who)
	return balance, nil
}

// Claims returns a copy of every non-zero claim
func (l *Ledger) Claims() map[ids.Address]*uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[ids.Address]*uint256.Int, len(l.claims))
	for who, balance := range l.claims {
		out[who] = balance.Clone()
	}
	return out
}

// Restore loads persisted state. Entries of released auctions must not be passed.
func (l *Ledger) Restore(entries []Entry, released []uint64, claims map[ids.Address]*uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range entries {
		bidders, exists := l.locked[e.AuctionID]
		if !exists {
			bidders = make(map[ids.Address]*uint256.Int)
			l.locked[e.AuctionID] = bidders
		}
		amount := e.Amount
		bidders[e.Bidder] = &amount
	}
	for _, id := range released {
		l.released[id] = true
	}
	for who, balance := range claims {
		l.claims[who] = balance.Clone()
	}
}

func (l *Ledger) entriesLocked(auctionID uint64) []Entry {
	bidders := l.locked[auctionID]
	out := make([]Entry, 0, len(bidders))
	for bidder, balance := range bidders {
		out = append(out, Entry{AuctionID: auctionID, Bidder: bidder, Amount: *balance})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bidder[:], out[j].Bidder[:]) < 0
	})
	return out
}
