// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package escrow

import (
	"context"
	"errors"
	"sync"

	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/ids"
	"github.com/luxfi/sealbid/pkg/log"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRecipientRejected = errors.New("recipient rejected transfer")
	ErrCustodyShortfall  = errors.New("custody balance too low for payout")
)

// Vault moves value between accounts and the auction house's custody
type Vault interface {
	// Collect moves amount from the account into custody
	Collect(ctx context.Context, from ids.Address, amount *uint256.Int) error
	// Pay moves amount from custody to the account
	Pay(ctx context.Context, to ids.Address, amount *uint256.Int) error
}

// MemoryVault keeps account balances in process
type MemoryVault struct {
	mu       sync.RWMutex
	balances map[ids.Address]*uint256.Int
	custody  uint256.Int
	rejects  map[ids.Address]bool
	log      log.Logger
}

// NewMemoryVault creates a vault with no balances
func NewMemoryVault(logger log.Logger) *MemoryVault {
	return &MemoryVault{
		balances: make(map[ids.Address]*uint256.Int),
		rejects:  make(map[ids.Address]bool),
		log:      logger,
	}
}

// Fund credits amount to who outside of custody
func (v *MemoryVault) Fund(who ids.Address, amount *uint256.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	balance := v.balanceLocked(who)
	balance.Add(balance, amount)
}

// Reject makes every Pay to who fail until cleared
func (v *MemoryVault) Reject(who ids.Address, reject bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if reject {
		v.rejects[who] = true
	} else {
		delete(v.rejects, who)
	}
}

// Balance returns who's free balance
func (v *MemoryVault) Balance(who ids.Address) *uint256.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if b, ok := v.balances[who]; ok {
		return b.Clone()
	}
	return new(uint256.Int)
}

// Custody returns the value currently held in custody
func (v *MemoryVault) Custody() *uint256.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.custody.Clone()
}

// Collect implements Vault
func (v *MemoryVault) Collect(_ context.Context, from ids.Address, amount *uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	balance := v.balanceLocked(from)
	if balance.Lt(amount) {
		return ErrInsufficientFunds
	}
	balance.Sub(balance, amount)
	v.custody.Add(&v.custody, amount)
	return nil
}

// Pay implements Vault
func (v *MemoryVault) Pay(_ context.Context, to ids.Address, amount *uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.rejects[to] {
		return ErrRecipientRejected
	}
	if v.custody.Lt(amount) {
		return ErrCustodyShortfall
	}
	v.custody.Sub(&v.custody, amount)
	balance := v.balanceLocked(to)
	balance.Add(balance, amount)
	v.log.Debug("vault payout", log.Address("to", to), log.Amount("amount", amount))
	return nil
}

func (v *MemoryVault) balanceLocked(who ids.Address) *uint256.Int {
	b, ok := v.balances[who]
	if !ok {
		b = new(uint256.Int)
		v.balances[who] = b
	}
	return b
}
