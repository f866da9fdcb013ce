package storage

import (
	"time"

	"github.com/luxfi/sealbid/pkg/ids"
)

// Amounts are stored as decimal wei strings.

// AuctionRecord is the persisted form of one auction and its bids
type AuctionRecord struct {
	ID              uint64       `json:"id"`
	Seller          ids.Address  `json:"seller"`
	AssetID         string       `json:"asset_id"`
	MinPrice        string       `json:"min_price"`
	CreatedAt       time.Time    `json:"created_at"`
	BiddingDeadline time.Time    `json:"bidding_deadline"`
	RevealDeadline  time.Time    `json:"reveal_deadline"`
	Ended           bool         `json:"ended"`
	Delivered       bool         `json:"delivered"`
	HighestBidder   *ids.Address `json:"highest_bidder,omitempty"`
	HighestAmount   string       `json:"highest_amount,omitempty"`
	Bids            []BidRecord  `json:"bids"`
	RevealSeq       uint64       `json:"reveal_seq"`

	// Settlement payouts, written as pending before any value moves
	Payouts []PayoutRecord `json:"payouts,omitempty"`
}

// BidRecord is one bidder's commitment within an auction
type BidRecord struct {
	Bidder       ids.Address `json:"bidder"`
	Commitment   string      `json:"commitment"`
	Escrowed     string      `json:"escrowed"`
	Revealed     bool        `json:"revealed"`
	Amount       string      `json:"amount,omitempty"`
	BelowMinimum bool        `json:"below_minimum,omitempty"`
	RevealOrder  uint64      `json:"reveal_order,omitempty"`
}

// Payout states
const (
	PayoutPending = "pending"
	PayoutPaid    = "paid"
	PayoutFailed  = "failed"
)

// PayoutRecord is one settlement transfer and how far it got
type PayoutRecord struct {
	To     ids.Address `json:"to"`
	Amount string      `json:"amount"`
	Reason string      `json:"reason"`
	Status string      `json:"status"`
}

// ClaimRecord is a balance owed after a failed payout
type ClaimRecord struct {
	Owner  ids.Address `json:"owner"`
	Amount string      `json:"amount"`
}
