// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/escrow"
	"github.com/luxfi/sealbid/pkg/events"
	"github.com/luxfi/sealbid/pkg/ids"
	"github.com/luxfi/sealbid/pkg/log"
)

// End closes the auction after the reveal deadline and settles it. Anyone may call it.
//
// Settlement is planned first without side effects and recorded as ended with
// every payout pending before any value moves. If that record cannot be
// written End fails and the auction is untouched. Payouts and the asset
// transfer then execute independently. A failed payout becomes a claimable
// balance; a failed asset transfer leaves the auction undelivered for Deliver.
func (r *Registry) End(ctx context.Context, id uint64) (*events.AuctionEnded, error) {
	defer r.metrics.ObserveOp("end", time.Now())

	a, err := r.get(id)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ended {
		return nil, ErrAlreadyEnded
	}
	if r.clock.Now().Before(a.revealDeadline) {
		return nil, ErrRevealPeriodNotEnded
	}

	var winner *escrow.Winner
	if a.highest != nil {
		winner = &escrow.Winner{Bidder: a.highest.Bidder, Amount: a.highest.Amount}
	}
	plan, err := escrow.Plan(id, a.seller, r.ledger.Entries(id), winner)
	if err != nil {
		return nil, fmt.Errorf("failed to plan settlement for auction %d: %w", id, err)
	}
	payouts := make([]PayoutView, 0, len(plan.Payouts))
	for i := range plan.Payouts {
		p := &plan.Payouts[i]
		payouts = append(payouts, PayoutView{
			To:     p.To,
			Amount: p.Amount.Clone(),
			Reason: string(p.Reason),
			Status: PayoutPending,
		})
	}
	pending := a.record()
	pending.Ended = true
	pending.Payouts = payoutRecords(payouts)
	if err := r.persistRecord(pending); err != nil {
		return nil, fmt.Errorf("failed to record settlement of auction %d: %w", id, err)
	}

	if _, err := r.ledger.Release(id); err != nil {
		return nil, fmt.Errorf("failed to release escrow for auction %d: %w", id, err)
	}
	a.ended = true
	a.payouts = payouts

	ev := &events.AuctionEnded{AuctionID: id, Amount: new(uint256.Int)}
	if a.highest != nil {
		w := a.highest.Bidder
		ev.Winner = &w
		ev.Amount = a.highest.Amount.Clone()
	}

	to := a.recipient()
	if err := r.assets.Transfer(ctx, r.cfg.Custodian, a.assetID, r.cfg.Custodian, to); err != nil {
		r.metrics.Transfers.WithLabelValues("asset", "failed").Inc()
		r.log.Warn("asset delivery failed",
			log.Uint64("auction", id),
			log.String("asset", string(a.assetID)),
			log.Address("to", to),
			log.Error(err),
		)
	} else {
		r.metrics.Transfers.WithLabelValues("asset", "ok").Inc()
		a.delivered = true
	}
	ev.Delivered = a.delivered

	var claimants []ids.Address
	for i, res := range r.ledger.Disburse(ctx, r.vault, plan) {
		if res.Err == nil {
			a.payouts[i].Status = PayoutPaid
			r.metrics.Transfers.WithLabelValues(string(res.Reason), "ok").Inc()
			continue
		}
		a.payouts[i].Status = PayoutFailed
		r.metrics.Transfers.WithLabelValues(string(res.Reason), "failed").Inc()
		amount := res.Amount
		ev.Failed = append(ev.Failed, events.TransferFailed{
			AuctionID: id,
			Recipient: res.To,
			Amount:    amount.Clone(),
			Reason:    res.Err.Error(),
		})
		claimants = append(claimants, res.To)
	}

	if err := r.persist(a, claimants...); err != nil {
		// value has moved; the stored payouts stay pending and the in-memory state is authoritative
		r.log.Error("failed to persist settled auction", log.Uint64("auction", id), log.Error(err))
	}

	r.mu.Lock()
	r.open--
	r.metrics.AuctionsOpen.Set(float64(r.open))
	r.mu.Unlock()
	outcome := "unsold"
	if a.highest != nil {
		outcome = "sold"
	}
	r.metrics.AuctionsEnded.WithLabelValues(outcome).Inc()
	if len(claimants) > 0 {
		r.metrics.ClaimsOutstanding.Set(float64(len(r.ledger.Claims())))
	}

	r.log.Info("auction ended",
		log.Uint64("auction", id),
		log.String("outcome", outcome),
		log.Address("assetTo", to),
		log.Amount("amount", ev.Amount),
		log.Bool("delivered", a.delivered),
		log.Int("failedTransfers", len(ev.Failed)),
	)
	r.publish(ev)
	for i := range ev.Failed {
		r.publish(&ev.Failed[i])
	}
	if a.delivered {
		r.publish(&events.AssetDelivered{AuctionID: id, AssetID: string(a.assetID), To: to})
	}
	return ev, nil
}

// Deliver retries the asset transfer of an ended auction whose delivery failed
func (r *Registry) Deliver(ctx context.Context, id uint64) (*events.AssetDelivered, error) {
	defer r.metrics.ObserveOp("deliver", time.Now())

	a, err := r.get(id)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ended {
		return nil, ErrNotEnded
	}
	if a.delivered {
		return nil, ErrAlreadyDelivered
	}

	to := a.recipient()
	if err := r.assets.Transfer(ctx, r.cfg.Custodian, a.assetID, r.cfg.Custodian, to); err != nil {
		r.metrics.Transfers.WithLabelValues("asset", "failed").Inc()
		return nil, fmt.Errorf("failed to deliver asset: %w", err)
	}
	r.metrics.Transfers.WithLabelValues("asset", "ok").Inc()
	a.delivered = true

	if err := r.persist(a); err != nil {
		r.log.Error("failed to persist delivery", log.Uint64("auction", id), log.Error(err))
	}

	ev := &events.AssetDelivered{AuctionID: id, AssetID: string(a.assetID), To: to}
	r.log.Debug("asset delivered", log.Uint64("auction", id), log.Address("to", to))
	r.publish(ev)
	return ev, nil
}
