// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package escrow

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/ids"
	"github.com/luxfi/sealbid/pkg/log"
)

// Result is the outcome of one executed payout
type Result struct {
	Payout
	Err error
}

// Disburse executes each payout independently. A failed payout is credited
// to the recipient's claimable balance and never blocks the others.
func (l *Ledger) Disburse(ctx context.Context, vault Vault, s *Settlement) []Result {
	results := make([]Result, 0, len(s.Payouts))
	for _, p := range s.Payouts {
		amount := p.Amount
		err := vault.Pay(ctx, p.To, &amount)
		if err != nil {
			l.log.Warn("payout failed, crediting claim",
				log.Uint64("auction", s.AuctionID),
				log.Address("to", p.To),
				log.Amount("amount", &amount),
				log.Error(err),
			)
			if cerr := l.Credit(p.To, &amount); cerr != nil {
				l.log.Error("claim credit failed", log.Address("to", p.To), log.Error(cerr))
			}
		}
		results = append(results, Result{Payout: p, Err: err})
	}
	return results
}

// Withdraw pays out who's claimable balance. record is called once the claim
// is taken and again if the payout fails and the claim is restored; a failure
// of the first call aborts the withdrawal before any value moves.
func (l *Ledger) Withdraw(ctx context.Context, vault Vault, who ids.Address, record func() error) (*uint256.Int, error) {
	amount, err := l.TakeClaim(who)
	if err != nil {
		return nil, err
	}
	if err := record(); err != nil {
		l.restoreClaim(who, amount)
		return nil, fmt.Errorf("%w: %w", ErrNotRecorded, err)
	}
	if err := vault.Pay(ctx, who, amount); err != nil {
		l.restoreClaim(who, amount)
		if rerr := record(); rerr != nil {
			l.log.Error("failed to record restored claim", log.Address("who", who), log.Error(rerr))
		}
		return nil, err
	}
	return amount, nil
}

func (l *Ledger) restoreClaim(who ids.Address, amount *uint256.Int) {
	if err := l.Credit(who, amount); err != nil {
		l.log.Error("claim restore failed", log.Address("who", who), log.Error(err))
	}
}
