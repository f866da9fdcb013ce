package escrow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/sealbid/pkg/ids"
	"github.com/luxfi/sealbid/pkg/log"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestLockAccumulates(t *testing.T) {
	require := require.New(t)

	l := NewLedger(log.NoOp())
	a := ids.GenerateTestAddress()
	b := ids.GenerateTestAddress()

	bal, err := l.Lock(1, a, u(10))
	require.NoError(err)
	require.Equal(uint64(10), bal.Uint64())

	bal, err = l.Lock(1, a, u(5))
	require.NoError(err)
	require.Equal(uint64(15), bal.Uint64())

	_, err = l.Lock(1, b, u(7))
	require.NoError(err)
	_, err = l.Lock(2, b, u(100))
	require.NoError(err)

	require.Equal(uint64(15), l.Escrowed(1, a).Uint64())
	require.Equal(uint64(22), l.Total(1).Uint64())
	require.Equal(uint64(100), l.Total(2).Uint64())
	require.Len(l.Entries(1), 2)

	_, err = l.Lock(1, a, u(0))
	require.ErrorIs(err, ErrZeroAmount)
}

func TestLockOverflow(t *testing.T) {
	l := NewLedger(log.NoOp())
	a := ids.GenerateTestAddress()
	max := new(uint256.Int).SetAllOne()

	_, err := l.Lock(1, a, max)
	require.NoError(t, err)
	_, err = l.Lock(1, a, u(1))
	require.ErrorIs(t, err, ErrOverflow)
	require.True(t, l.Escrowed(1, a).Eq(max))
}

func TestUnlock(t *testing.T) {
	require := require.New(t)

	l := NewLedger(log.NoOp())
	a := ids.GenerateTestAddress()
	_, err := l.Lock(1, a, u(10))
	require.NoError(err)

	require.ErrorIs(l.Unlock(1, a, u(11)), ErrNoEscrow)
	require.NoError(l.Unlock(1, a, u(10)))
	require.True(l.Escrowed(1, a).IsZero())
	require.Empty(l.Entries(1))
}

func TestReleaseOnce(t *testing.T) {
	require := require.New(t)

	l := NewLedger(log.NoOp())
	a := ids.GenerateTestAddress()
	_, err := l.Lock(1, a, u(10))
	require.NoError(err)

	entries, err := l.Release(1)
	require.NoError(err)
	require.Len(entries, 1)
	require.True(l.Total(1).IsZero())

	_, err = l.Release(1)
	require.ErrorIs(err, ErrAlreadyReleased)
	_, err = l.Lock(1, a, u(1))
	require.ErrorIs(err, ErrAlreadyReleased)
}

func TestPlanWithWinner(t *testing.T) {
	require := require.New(t)

	seller := ids.GenerateTestAddress()
	winner := ids.GenerateTestAddress()
	loser := ids.GenerateTestAddress()
	entries := []Entry{
		{AuctionID: 1, Bidder: winner, Amount: *u(10)},
		{AuctionID: 1, Bidder: loser, Amount: *u(5)},
	}

	s, err := Plan(1, seller, entries, &Winner{Bidder: winner, Amount: u(7)})
	require.NoError(err)
	require.Equal(uint64(15), s.Escrowed.Uint64())
	require.True(s.Total().Eq(&s.Escrowed))

	got := map[ids.Address]uint64{}
	for _, p := range s.Payouts {
		got[p.To] += p.Amount.Uint64()
	}
	require.Equal(uint64(7), got[seller])
	require.Equal(uint64(3), got[winner])
	require.Equal(uint64(5), got[loser])
}

func TestPlanExactWinnerHasNoChange(t *testing.T) {
	seller := ids.GenerateTestAddress()
	winner := ids.GenerateTestAddress()
	entries := []Entry{{AuctionID: 1, Bidder: winner, Amount: *u(10)}}

	s, err := Plan(1, seller, entries, &Winner{Bidder: winner, Amount: u(10)})
	require.NoError(t, err)
	require.Len(t, s.Payouts, 1)
	require.Equal(t, ReasonProceeds, s.Payouts[0].Reason)
}

func TestPlanWithoutWinner(t *testing.T) {
	require := require.New(t)

	seller := ids.GenerateTestAddress()
	entries := []Entry{
		{AuctionID: 1, Bidder: ids.GenerateTestAddress(), Amount: *u(4)},
		{AuctionID: 1, Bidder: ids.GenerateTestAddress(), Amount: *u(6)},
	}

	s, err := Plan(1, seller, entries, nil)
	require.NoError(err)
	require.Len(s.Payouts, 2)
	for _, p := range s.Payouts {
		require.Equal(ReasonRefund, p.Reason)
		require.NotEqual(seller, p.To)
	}
	require.Equal(uint64(10), s.Total().Uint64())

	empty, err := Plan(2, seller, nil, nil)
	require.NoError(err)
	require.Empty(empty.Payouts)
}

func TestPlanRejectsBadWinner(t *testing.T) {
	seller := ids.GenerateTestAddress()
	bidder := ids.GenerateTestAddress()
	entries := []Entry{{AuctionID: 1, Bidder: bidder, Amount: *u(5)}}

	_, err := Plan(1, seller, entries, &Winner{Bidder: ids.GenerateTestAddress(), Amount: u(1)})
	require.ErrorIs(t, err, ErrWinnerNotEscrowed)

	_, err = Plan(1, seller, entries, &Winner{Bidder: bidder, Amount: u(6)})
	require.ErrorIs(t, err, ErrWinnerUnderfunded)
}

func TestDisburseCreditsFailedPayouts(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	l := NewLedger(log.NoOp())
	vault := NewMemoryVault(log.NoOp())
	seller := ids.GenerateTestAddress()
	winner := ids.GenerateTestAddress()
	loser := ids.GenerateTestAddress()

	vault.Fund(winner, u(10))
	vault.Fund(loser, u(5))
	for _, who := range []ids.Address{winner, loser} {
		amount := vault.Balance(who)
		require.NoError(vault.Collect(ctx, who, amount))
		_, err := l.Lock(1, who, amount)
		require.NoError(err)
	}
	require.Equal(uint64(15), vault.Custody().Uint64())

	vault.Reject(loser, true)
	entries, err := l.Release(1)
	require.NoError(err)
	s, err := Plan(1, seller, entries, &Winner{Bidder: winner, Amount: u(8)})
	require.NoError(err)

	results := l.Disburse(ctx, vault, s)
	require.Len(results, 3)

	require.Equal(uint64(8), vault.Balance(seller).Uint64())
	require.Equal(uint64(2), vault.Balance(winner).Uint64())
	require.True(vault.Balance(loser).IsZero())
	require.Equal(uint64(5), l.Claimable(loser).Uint64())
	require.Equal(uint64(5), vault.Custody().Uint64())

	var recorded []uint64
	record := func() error {
		recorded = append(recorded, l.Claimable(loser).Uint64())
		return nil
	}

	_, err = l.Withdraw(ctx, vault, loser, record)
	require.ErrorIs(err, ErrRecipientRejected)
	require.Equal(uint64(5), l.Claimable(loser).Uint64())
	require.Equal([]uint64{0, 5}, recorded)

	vault.Reject(loser, false)
	paid, err := l.Withdraw(ctx, vault, loser, record)
	require.NoError(err)
	require.Equal(uint64(5), paid.Uint64())
	require.True(vault.Custody().IsZero())

	_, err = l.Withdraw(ctx, vault, loser, record)
	require.ErrorIs(err, ErrNothingToClaim)
}

func TestWithdrawUnrecorded(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	l := NewLedger(log.NoOp())
	vault := NewMemoryVault(log.NoOp())
	who := ids.GenerateTestAddress()
	require.NoError(l.Credit(who, u(4)))
	vault.Fund(who, u(4))
	require.NoError(vault.Collect(ctx, who, u(4)))

	_, err := l.Withdraw(ctx, vault, who, func() error { return errors.New("disk full") })
	require.ErrorIs(err, ErrNotRecorded)
	require.Equal(uint64(4), l.Claimable(who).Uint64())
	require.True(vault.Balance(who).IsZero())
	require.Equal(uint64(4), vault.Custody().Uint64())
}

func TestCollectInsufficient(t *testing.T) {
	vault := NewMemoryVault(log.NoOp())
	who := ids.GenerateTestAddress()
	vault.Fund(who, u(3))
	require.ErrorIs(t, vault.Collect(context.Background(), who, u(4)), ErrInsufficientFunds)
	require.Equal(t, uint64(3), vault.Balance(who).Uint64())
}

func TestRestore(t *testing.T) {
	require := require.New(t)

	a := ids.GenerateTestAddress()
	l := NewLedger(log.NoOp())
	l.Restore(
		[]Entry{{AuctionID: 3, Bidder: a, Amount: *u(9)}},
		[]uint64{1},
		map[ids.Address]*uint256.Int{a: u(4)},
	)
	require.Equal(uint64(9), l.Escrowed(3, a).Uint64())
	require.Equal(uint64(4), l.Claimable(a).Uint64())
	_, err := l.Lock(1, a, u(1))
	require.ErrorIs(err, ErrAlreadyReleased)
}

func TestConcurrentLocks(t *testing.T) {
	l := NewLedger(log.NoOp())
	a := ids.GenerateTestAddress()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Lock(1, a, u(1))
		}()
	}
	wg.Wait()
	require.Equal(t, uint64(100), l.Total(1).Uint64())
}

func BenchmarkPlan(b *testing.B) {
	seller := ids.GenerateTestAddress()
	entries := make([]Entry, 64)
	for i := range entries {
		entries[i] = Entry{AuctionID: 1, Bidder: ids.GenerateTestAddress(), Amount: *u(uint64(i + 1))}
	}
	winner := &Winner{Bidder: entries[63].Bidder, Amount: u(60)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Plan(1, seller, entries, winner)
	}
}
