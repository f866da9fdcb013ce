// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/asset"
	"github.com/luxfi/sealbid/pkg/commit"
	"github.com/luxfi/sealbid/pkg/ids"
)

// State is the lifecycle position of an auction. It only moves forward.
type State int

const (
	StateCreated State = iota
	StateBiddingOpen
	StateRevealOpen
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateBiddingOpen:
		return "bidding_open"
	case StateRevealOpen:
		return "reveal_open"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateCreated, StateBiddingOpen, StateRevealOpen, StateEnded} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown auction state %q", text)
}

// CommitPolicy decides what a second commit from the same bidder does
type CommitPolicy string

const (
	PolicyReject  CommitPolicy = "reject"
	PolicyReplace CommitPolicy = "replace"
)

// Config is the auction house configuration
type Config struct {
	// Custodian is the auction house's own principal in the asset registry.
	// Sellers approve it; it holds assets between create and settlement.
	Custodian    ids.Address
	CommitPolicy CommitPolicy
	Scheme       string

	// Zero means unbounded
	MinBiddingDuration time.Duration
	MaxBiddingDuration time.Duration
	MinRevealDuration  time.Duration
	MaxRevealDuration  time.Duration
}

func DefaultConfig(custodian ids.Address) Config {
	return Config{
		Custodian:    custodian,
		CommitPolicy: PolicyReject,
		Scheme:       commit.Keccak256,
	}
}

func (c Config) Validate() error {
	if c.Custodian.IsEmpty() {
		return fmt.Errorf("%w: custodian is required", ErrInvalidConfig)
	}
	switch c.CommitPolicy {
	case "", PolicyReject, PolicyReplace:
	default:
		return fmt.Errorf("%w: unknown commit policy %q", ErrInvalidConfig, c.CommitPolicy)
	}
	if c.MaxBiddingDuration > 0 && c.MinBiddingDuration > c.MaxBiddingDuration {
		return fmt.Errorf("%w: min bidding duration exceeds max", ErrInvalidConfig)
	}
	if c.MaxRevealDuration > 0 && c.MinRevealDuration > c.MaxRevealDuration {
		return fmt.Errorf("%w: min reveal duration exceeds max", ErrInvalidConfig)
	}
	return nil
}

// CreateParams describes a new auction
type CreateParams struct {
	AssetID         asset.ID
	MinPrice        *uint256.Int
	BiddingDuration time.Duration
	RevealDuration  time.Duration
}

// HighestBid is the leading valid reveal
type HighestBid struct {
	Bidder ids.Address  `json:"bidder"`
	Amount *uint256.Int `json:"amount"`
}

// BidView is the public view of one bid. Amount is only set once revealed.
type BidView struct {
	Bidder       ids.Address       `json:"bidder"`
	Commitment   commit.Commitment `json:"commitment"`
	Escrowed     *uint256.Int      `json:"escrowed"`
	Revealed     bool              `json:"revealed"`
	Amount       *uint256.Int      `json:"amount,omitempty"`
	BelowMinimum bool              `json:"below_minimum,omitempty"`
}

// PayoutStatus is how far one settlement transfer got
type PayoutStatus string

const (
	// recorded before settlement started; still pending after a restart means unconfirmed
	PayoutPending PayoutStatus = "pending"
	PayoutPaid    PayoutStatus = "paid"
	// credited to the recipient's claimable balance
	PayoutFailed PayoutStatus = "failed"
)

// PayoutView is one settlement transfer of an ended auction
type PayoutView struct {
	To     ids.Address  `json:"to"`
	Amount *uint256.Int `json:"amount"`
	Reason string       `json:"reason"`
	Status PayoutStatus `json:"status"`
}

// Snapshot is a consistent copy of an auction
type Snapshot struct {
	ID              uint64       `json:"id"`
	Seller          ids.Address  `json:"seller"`
	AssetID         asset.ID     `json:"asset_id"`
	MinPrice        *uint256.Int `json:"min_price"`
	CreatedAt       time.Time    `json:"created_at"`
	BiddingDeadline time.Time    `json:"bidding_deadline"`
	RevealDeadline  time.Time    `json:"reveal_deadline"`
	State           State        `json:"state"`
	Ended           bool         `json:"ended"`
	Delivered       bool         `json:"delivered"`
	HighestBid      *HighestBid  `json:"highest_bid,omitempty"`
	TotalEscrowed   *uint256.Int `json:"total_escrowed"`
	Bids            []BidView    `json:"bids"`
	Settlement      []PayoutView `json:"settlement,omitempty"`
}

// Phase returns the state at now
func (s *Snapshot) Phase(now time.Time) State {
	return phase(s.Ended, s.BiddingDeadline, now)
}

// Settleable reports whether End would be accepted at now
func (s *Snapshot) Settleable(now time.Time) bool {
	return !s.Ended && !now.Before(s.RevealDeadline)
}

func phase(ended bool, biddingDeadline, now time.Time) State {
	switch {
	case ended:
		return StateEnded
	case now.Before(biddingDeadline):
		return StateBiddingOpen
	default:
		return StateRevealOpen
	}
}

type bid struct {
	commitment   commit.Commitment
	escrowed     uint256.Int
	revealed     bool
	amount       uint256.Int
	belowMinimum bool
	revealOrder  uint64
}

// auction is one arena entry; every field is guarded by mu
type auction struct {
	mu sync.Mutex

	id              uint64
	seller          ids.Address
	assetID         asset.ID
	minPrice        uint256.Int
	createdAt       time.Time
	biddingDeadline time.Time
	revealDeadline  time.Time

	bids      map[ids.Address]*bid
	order     []ids.Address
	highest   *HighestBid
	revealSeq uint64
	ended     bool
	delivered bool
	payouts   []PayoutView
}

// recipient is who the asset goes to at settlement
func (a *auction) recipient() ids.Address {
	if a.highest != nil {
		return a.highest.Bidder
	}
	return a.seller
}

func (a *auction) snapshot(now time.Time) *Snapshot {
	s := &Snapshot{
		ID:              a.id,
		Seller:          a.seller,
		AssetID:         a.assetID,
		MinPrice:        a.minPrice.Clone(),
		CreatedAt:       a.createdAt,
		BiddingDeadline: a.biddingDeadline,
		RevealDeadline:  a.revealDeadline,
		State:           phase(a.ended, a.biddingDeadline, now),
		Ended:           a.ended,
		Delivered:       a.delivered,
		TotalEscrowed:   new(uint256.Int),
		Bids:            make([]BidView, 0, len(a.order)),
	}
	if a.highest != nil {
		s.HighestBid = &HighestBid{Bidder: a.highest.Bidder, Amount: a.highest.Amount.Clone()}
	}
	for _, bidder := range a.order {
		b := a.bids[bidder]
		v := BidView{
			Bidder:       bidder,
			Commitment:   b.commitment,
			Escrowed:     b.escrowed.Clone(),
			Revealed:     b.revealed,
			BelowMinimum: b.belowMinimum,
		}
		if b.revealed {
			v.Amount = b.amount.Clone()
		}
		s.TotalEscrowed.Add(s.TotalEscrowed, &b.escrowed)
		s.Bids = append(s.Bids, v)
	}
	for _, p := range a.payouts {
		p.Amount = p.Amount.Clone()
		s.Settlement = append(s.Settlement, p)
	}
	return s
}
