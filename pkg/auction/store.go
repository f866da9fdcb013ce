// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/asset"
	"github.com/luxfi/sealbid/pkg/commit"
	"github.com/luxfi/sealbid/pkg/escrow"
	"github.com/luxfi/sealbid/pkg/ids"
	"github.com/luxfi/sealbid/pkg/log"
	"github.com/luxfi/sealbid/pkg/storage"
)

// Store is the durable backing of a Registry
type Store interface {
	SaveAuction(rec *storage.AuctionRecord, claims ...storage.ClaimRecord) error
	SaveClaims(claims ...storage.ClaimRecord) error
	LoadAuctions() ([]*storage.AuctionRecord, error)
	LoadClaims() ([]storage.ClaimRecord, error)
}

var _ Store = (*storage.Storage)(nil)

func payoutRecords(payouts []PayoutView) []storage.PayoutRecord {
	out := make([]storage.PayoutRecord, 0, len(payouts))
	for _, p := range payouts {
		out = append(out, storage.PayoutRecord{
			To:     p.To,
			Amount: p.Amount.Dec(),
			Reason: p.Reason,
			Status: string(p.Status),
		})
	}
	return out
}

func (a *auction) record() *storage.AuctionRecord {
	rec := &storage.AuctionRecord{
		ID:              a.id,
		Seller:          a.seller,
		AssetID:         string(a.assetID),
		MinPrice:        a.minPrice.Dec(),
		CreatedAt:       a.createdAt,
		BiddingDeadline: a.biddingDeadline,
		RevealDeadline:  a.revealDeadline,
		Ended:           a.ended,
		Delivered:       a.delivered,
		RevealSeq:       a.revealSeq,
		Bids:            make([]storage.BidRecord, 0, len(a.order)),
	}
	if a.highest != nil {
		bidder := a.highest.Bidder
		rec.HighestBidder = &bidder
		rec.HighestAmount = a.highest.Amount.Dec()
	}
	for _, bidder := range a.order {
		b := a.bids[bidder]
		br := storage.BidRecord{
			Bidder:       bidder,
			Commitment:   b.commitment.String(),
			Escrowed:     b.escrowed.Dec(),
			Revealed:     b.revealed,
			BelowMinimum: b.belowMinimum,
			RevealOrder:  b.revealOrder,
		}
		if b.revealed {
			br.Amount = b.amount.Dec()
		}
		rec.Bids = append(rec.Bids, br)
	}
	if len(a.payouts) > 0 {
		rec.Payouts = payoutRecords(a.payouts)
	}
	return rec
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	return uint256.FromDecimal(s)
}

func fromRecord(rec *storage.AuctionRecord) (*auction, error) {
	minPrice, err := parseAmount(rec.MinPrice)
	if err != nil {
		return nil, fmt.Errorf("auction %d min price: %w", rec.ID, err)
	}
	a := &auction{
		id:              rec.ID,
		seller:          rec.Seller,
		assetID:         asset.ID(rec.AssetID),
		minPrice:        *minPrice,
		createdAt:       rec.CreatedAt,
		biddingDeadline: rec.BiddingDeadline,
		revealDeadline:  rec.RevealDeadline,
		ended:           rec.Ended,
		delivered:       rec.Delivered,
		revealSeq:       rec.RevealSeq,
		bids:            make(map[ids.Address]*bid, len(rec.Bids)),
	}
	if rec.HighestBidder != nil {
		amount, err := parseAmount(rec.HighestAmount)
		if err != nil {
			return nil, fmt.Errorf("auction %d highest amount: %w", rec.ID, err)
		}
		a.highest = &HighestBid{Bidder: *rec.HighestBidder, Amount: amount}
	}
	for _, br := range rec.Bids {
		c, err := commit.FromString(br.Commitment)
		if err != nil {
			return nil, fmt.Errorf("auction %d bid %s: %w", rec.ID, br.Bidder, err)
		}
		escrowed, err := parseAmount(br.Escrowed)
		if err != nil {
			return nil, fmt.Errorf("auction %d bid %s escrow: %w", rec.ID, br.Bidder, err)
		}
		amount, err := parseAmount(br.Amount)
		if err != nil {
			return nil, fmt.Errorf("auction %d bid %s amount: %w", rec.ID, br.Bidder, err)
		}
		a.bids[br.Bidder] = &bid{
			commitment:   c,
			escrowed:     *escrowed,
			revealed:     br.Revealed,
			amount:       *amount,
			belowMinimum: br.BelowMinimum,
			revealOrder:  br.RevealOrder,
		}
		a.order = append(a.order, br.Bidder)
	}
	for _, pr := range rec.Payouts {
		amount, err := parseAmount(pr.Amount)
		if err != nil {
			return nil, fmt.Errorf("auction %d payout to %s: %w", rec.ID, pr.To, err)
		}
		a.payouts = append(a.payouts, PayoutView{
			To:     pr.To,
			Amount: amount,
			Reason: pr.Reason,
			Status: PayoutStatus(pr.Status),
		})
	}
	return a, nil
}

// persist writes the auction and the current claim of each given account in one batch
func (r *Registry) persist(a *auction, claimants ...ids.Address) error {
	return r.persistRecord(a.record(), claimants...)
}

func (r *Registry) persistRecord(rec *storage.AuctionRecord, claimants ...ids.Address) error {
	if r.store == nil {
		return nil
	}

	r.claimMu.Lock()
	defer r.claimMu.Unlock()

	if err := r.store.SaveAuction(rec, r.claimRecords(claimants)...); err != nil {
		return fmt.Errorf("failed to persist auction %d: %w", rec.ID, err)
	}
	return nil
}

func (r *Registry) persistClaim(who ids.Address) error {
	r.claimMu.Lock()
	defer r.claimMu.Unlock()

	return r.persistClaimLocked(who)
}

// persistClaimLocked requires claimMu
func (r *Registry) persistClaimLocked(who ids.Address) error {
	if r.store == nil {
		return nil
	}
	return r.store.SaveClaims(r.claimRecords([]ids.Address{who})...)
}

func (r *Registry) claimRecords(claimants []ids.Address) []storage.ClaimRecord {
	claims := make([]storage.ClaimRecord, 0, len(claimants))
	for _, who := range claimants {
		claims = append(claims, storage.ClaimRecord{Owner: who, Amount: r.ledger.Claimable(who).Dec()})
	}
	return claims
}

// restore rebuilds the arena, the escrow ledger and the id counter from the store
func (r *Registry) restore() error {
	recs, err := r.store.LoadAuctions()
	if err != nil {
		return fmt.Errorf("failed to load auctions: %w", err)
	}

	var (
		entries  []escrow.Entry
		released []uint64
	)
	for _, rec := range recs {
		a, err := fromRecord(rec)
		if err != nil {
			return err
		}
		r.auctions[a.id] = a
		if a.id > r.nextID {
			r.nextID = a.id
		}
		if a.ended {
			released = append(released, a.id)
			for _, p := range a.payouts {
				if p.Status == PayoutPending {
					r.log.Warn("settlement payout unconfirmed",
						log.Uint64("auction", a.id),
						log.Address("to", p.To),
						log.Amount("amount", p.Amount),
						log.String("reason", p.Reason),
					)
				}
			}
			continue
		}
		r.open++
		for _, bidder := range a.order {
			entries = append(entries, escrow.Entry{AuctionID: a.id, Bidder: bidder, Amount: a.bids[bidder].escrowed})
		}
	}

	stored, err := r.store.LoadClaims()
	if err != nil {
		return fmt.Errorf("failed to load claims: %w", err)
	}
	claims := make(map[ids.Address]*uint256.Int, len(stored))
	for _, c := range stored {
		amount, err := parseAmount(c.Amount)
		if err != nil {
			return fmt.Errorf("claim %s: %w", c.Owner, err)
		}
		claims[c.Owner] = amount
	}

	r.ledger.Restore(entries, released, claims)
	r.metrics.AuctionsOpen.Set(float64(r.open))
	r.metrics.ClaimsOutstanding.Set(float64(len(claims)))
	r.log.Info("registry restored",
		log.Int("auctions", len(recs)),
		log.Int("open", r.open),
		log.Int("claims", len(claims)),
		log.Uint64("nextID", r.nextID),
	)
	return nil
}
