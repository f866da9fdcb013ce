// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package events defines the typed auction events and the bus that fans
// them out to external observers.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/ids"
)

// Type names an event on the wire
type Type string

const (
	TypeAuctionCreated Type = "auction.created"
	TypeBidCommitted   Type = "bid.committed"
	TypeBidRevealed    Type = "bid.revealed"
	TypeAuctionEnded   Type = "auction.ended"
	TypeTransferFailed Type = "transfer.failed"
	TypeAssetDelivered Type = "asset.delivered"
)

// Event is implemented by every typed event
type Event interface {
	EventType() Type
	Auction() uint64
}

type AuctionCreated struct {
	AuctionID       uint64       `json:"auction_id"`
	Seller          ids.Address  `json:"seller"`
	AssetID         string       `json:"asset_id"`
	MinPrice        *uint256.Int `json:"min_price"`
	BiddingDeadline time.Time    `json:"bidding_deadline"`
	RevealDeadline  time.Time    `json:"reveal_deadline"`
}

type BidCommitted struct {
	AuctionID uint64       `json:"auction_id"`
	Bidder    ids.Address  `json:"bidder"`
	Escrowed  *uint256.Int `json:"escrowed"`
	Replaced  bool         `json:"replaced,omitempty"`
}

type BidRevealed struct {
	AuctionID    uint64       `json:"auction_id"`
	Bidder       ids.Address  `json:"bidder"`
	Amount       *uint256.Int `json:"amount"`
	BelowMinimum bool         `json:"below_minimum"`
	Leading      bool         `json:"leading"`
}

// AuctionEnded carries the winner and winning amount; Winner is nil when the
// asset went back to the seller.
type AuctionEnded struct {
	AuctionID uint64           `json:"auction_id"`
	Winner    *ids.Address     `json:"winner,omitempty"`
	Amount    *uint256.Int     `json:"amount"`
	Delivered bool             `json:"delivered"`
	Failed    []TransferFailed `json:"failed,omitempty"`
}

// TransferFailed reports a settlement payout that became a claimable balance
type TransferFailed struct {
	AuctionID uint64       `json:"auction_id"`
	Recipient ids.Address  `json:"recipient"`
	Amount    *uint256.Int `json:"amount"`
	Reason    string       `json:"reason"`
}

type AssetDelivered struct {
	AuctionID uint64      `json:"auction_id"`
	AssetID   string      `json:"asset_id"`
	To        ids.Address `json:"to"`
}

func (*AuctionCreated) EventType() Type { return TypeAuctionCreated }
func (*BidCommitted) EventType() Type   { return TypeBidCommitted }
func (*BidRevealed) EventType() Type    { return TypeBidRevealed }
func (*AuctionEnded) EventType() Type   { return TypeAuctionEnded }
func (*TransferFailed) EventType() Type { return TypeTransferFailed }
func (*AssetDelivered) EventType() Type { return TypeAssetDelivered }

func (e *AuctionCreated) Auction() uint64 { return e.AuctionID }
func (e *BidCommitted) Auction() uint64   { return e.AuctionID }
func (e *BidRevealed) Auction() uint64    { return e.AuctionID }
func (e *AuctionEnded) Auction() uint64   { return e.AuctionID }
func (e *TransferFailed) Auction() uint64 { return e.AuctionID }
func (e *AssetDelivered) Auction() uint64 { return e.AuctionID }

// Envelope is the wire form published to sinks
type Envelope struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	AuctionID uint64          `json:"auction_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Wrap encodes ev into a new envelope
func Wrap(ev Event, now time.Time) (*Envelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:        uuid.New().String(),
		Type:      ev.EventType(),
		AuctionID: ev.Auction(),
		Timestamp: now.UTC(),
		Data:      data,
	}, nil
}
