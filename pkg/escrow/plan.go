package escrow

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/ids"
)

var (
	ErrWinnerNotEscrowed = errors.New("winner has no escrow entry")
	ErrWinnerUnderfunded = errors.New("winning amount exceeds winner escrow")
)

// Reason labels a payout
type Reason string

const (
	ReasonRefund   Reason = "refund"
	ReasonChange   Reason = "change"
	ReasonProceeds Reason = "proceeds"
)

// Payout is one value transfer out of escrow
type Payout struct {
	To     ids.Address `json:"to"`
	Amount uint256.Int `json:"-"`
	Reason Reason      `json:"reason"`
}

// Winner is the bidder holding the highest valid reveal
type Winner struct {
	Bidder ids.Address
	Amount *uint256.Int
}

// Settlement is the full set of payouts that closes an auction
type Settlement struct {
	AuctionID uint64
	Escrowed  uint256.Int
	Payouts   []Payout
}

// Total returns the sum of all payouts
func (s *Settlement) Total() *uint256.Int {
	total := new(uint256.Int)
	for i := range s.Payouts {
		total.Add(total, &s.Payouts[i].Amount)
	}
	return total
}

// Plan computes the payouts that close an auction without moving any value.
// With a winner, the seller receives the winning amount, the winner receives
// escrow minus that amount, and every other bidder is refunded in full.
// Without a winner every bidder is refunded in full. Zero payouts are omitted,
// so Total always equals the sum of entries.
func Plan(auctionID uint64, seller ids.Address, entries []Entry, winner *Winner) (*Settlement, error) {
	s := &Settlement{AuctionID: auctionID}
	for i := range entries {
		s.Escrowed.Add(&s.Escrowed, &entries[i].Amount)
	}

	found := winner == nil
	for _, e := range entries {
		if winner != nil && e.Bidder == winner.Bidder {
			found = true
			if e.Amount.Lt(winner.Amount) {
				return nil, ErrWinnerUnderfunded
			}
			if !winner.Amount.IsZero() {
				s.Payouts = append(s.Payouts, Payout{To: seller, Amount: *winner.Amount, Reason: ReasonProceeds})
			}
			change := new(uint256.Int).Sub(&e.Amount, winner.Amount)
			if !change.IsZero() {
				s.Payouts = append(s.Payouts, Payout{To: e.Bidder, Amount: *change, Reason: ReasonChange})
			}
			continue
		}
		if e.Amount.IsZero() {
			continue
		}
		s.Payouts = append(s.Payouts, Payout{To: e.Bidder, Amount: e.Amount, Reason: ReasonRefund})
	}
	if !found {
		return nil, ErrWinnerNotEscrowed
	}
	return s, nil
}
