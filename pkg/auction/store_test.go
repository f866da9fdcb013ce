package auction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/sealbid/pkg/asset"
	"github.com/luxfi/sealbid/pkg/escrow"
	"github.com/luxfi/sealbid/pkg/ids"
	"github.com/luxfi/sealbid/pkg/storage"
)

var errDiskFull = errors.New("disk full")

// failingStore passes through to a real store until broken
type failingStore struct {
	*storage.Storage

	mu     sync.Mutex
	broken bool
}

func newFailingStore() *failingStore {
	return &failingStore{Storage: storage.NewMemory()}
}

func (f *failingStore) breakWrites(broken bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broken = broken
}

func (f *failingStore) fail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.broken
}

func (f *failingStore) SaveAuction(rec *storage.AuctionRecord, claims ...storage.ClaimRecord) error {
	if f.fail() {
		return errDiskFull
	}
	return f.Storage.SaveAuction(rec, claims...)
}

func (f *failingStore) SaveClaims(claims ...storage.ClaimRecord) error {
	if f.fail() {
		return errDiskFull
	}
	return f.Storage.SaveClaims(claims...)
}

func TestCommitPersistFailure(t *testing.T) {
	require := require.New(t)
	store := newFailingStore()
	h := newHarness(t, nil, WithStorage(store))
	id := h.create(ether(1))

	bidder := h.bidder(ether(5))
	store.breakWrites(true)
	_, err := h.reg.Commit(h.ctx, id, bidder, h.reg.GenerateCommitment(ether(2), ids.GenerateTestID()), ether(3))
	require.ErrorIs(err, errDiskFull)

	snap, err := h.reg.Get(id)
	require.NoError(err)
	require.Empty(snap.Bids)
	require.True(h.reg.Escrowed(id, bidder).IsZero())
	require.True(h.vault.Balance(bidder).Eq(ether(5)))
	require.True(h.vault.Custody().IsZero())
}

func TestRevealPersistFailure(t *testing.T) {
	require := require.New(t)
	store := newFailingStore()
	h := newHarness(t, nil, WithStorage(store))
	id := h.create(ether(1))

	bidder := h.bidder(ether(5))
	nonce := h.commit(id, bidder, ether(2), ether(3))
	h.toReveal()

	store.breakWrites(true)
	_, err := h.reg.Reveal(h.ctx, id, bidder, ether(2), nonce)
	require.ErrorIs(err, errDiskFull)

	snap, err := h.reg.Get(id)
	require.NoError(err)
	require.False(snap.Bids[0].Revealed)
	require.Nil(snap.HighestBid)

	store.breakWrites(false)
	ev, err := h.reg.Reveal(h.ctx, id, bidder, ether(2), nonce)
	require.NoError(err)
	require.True(ev.Leading)
}

func TestEndPersistFailureMovesNothing(t *testing.T) {
	require := require.New(t)
	store := newFailingStore()
	h := newHarness(t, nil, WithStorage(store))
	id := h.create(ether(1))

	bidder := h.bidder(ether(5))
	nonce := h.commit(id, bidder, ether(2), ether(3))
	h.toReveal()
	_, err := h.reg.Reveal(h.ctx, id, bidder, ether(2), nonce)
	require.NoError(err)
	h.toSettle()

	store.breakWrites(true)
	_, err = h.reg.End(h.ctx, id)
	require.ErrorIs(err, errDiskFull)

	snap, err := h.reg.Get(id)
	require.NoError(err)
	require.False(snap.Ended)
	require.Empty(snap.Settlement)
	require.True(h.reg.Escrowed(id, bidder).Eq(ether(3)))
	require.True(h.vault.Custody().Eq(ether(3)))
	require.Equal(h.house, h.owner())

	store.breakWrites(false)
	ended, err := h.reg.End(h.ctx, id)
	require.NoError(err)
	require.Equal(bidder, *ended.Winner)
	require.True(h.vault.Balance(h.seller).Eq(ether(2)))
}

func TestEndRecordsSettlement(t *testing.T) {
	require := require.New(t)
	store := newFailingStore()
	h := newHarness(t, nil, WithStorage(store))
	id := h.create(ether(1))

	winner := h.bidder(ether(5))
	loser := h.bidder(ether(5))
	nonceW := h.commit(id, winner, ether(2), ether(3))
	nonceL := h.commit(id, loser, ether(1), ether(1))
	h.toReveal()
	_, err := h.reg.Reveal(h.ctx, id, winner, ether(2), nonceW)
	require.NoError(err)
	_, err = h.reg.Reveal(h.ctx, id, loser, ether(1), nonceL)
	require.NoError(err)
	h.toSettle()

	h.vault.Reject(loser, true)
	_, err = h.reg.End(h.ctx, id)
	require.NoError(err)

	status := func(s *Snapshot) map[string]PayoutStatus {
		out := make(map[string]PayoutStatus)
		for _, p := range s.Settlement {
			out[p.Reason] = p.Status
		}
		return out
	}
	want := map[string]PayoutStatus{
		string(escrow.ReasonProceeds): PayoutPaid,
		string(escrow.ReasonChange):   PayoutPaid,
		string(escrow.ReasonRefund):   PayoutFailed,
	}
	snap, err := h.reg.Get(id)
	require.NoError(err)
	require.Equal(want, status(snap))

	// a restart sees the same settlement and never pays it again
	again, err := NewRegistry(DefaultConfig(h.house), h.assets, h.vault, WithClock(h.clock), WithStorage(store))
	require.NoError(err)
	restored, err := again.Get(id)
	require.NoError(err)
	require.True(restored.Ended)
	require.Equal(want, status(restored))
	require.True(again.Claimable(loser).Eq(ether(1)))

	_, err = again.End(h.ctx, id)
	require.ErrorIs(err, ErrAlreadyEnded)
	require.True(h.vault.Balance(h.seller).Eq(ether(2)))
}

// breakingAssets breaks the store once the asset moves at settlement
type breakingAssets struct {
	*asset.MemoryRegistry
	store *failingStore
}

func (b *breakingAssets) Transfer(ctx context.Context, operator ids.Address, id asset.ID, from, to ids.Address) error {
	if err := b.MemoryRegistry.Transfer(ctx, operator, id, from, to); err != nil {
		return err
	}
	b.store.breakWrites(true)
	return nil
}

func TestEndUnconfirmedAfterRestart(t *testing.T) {
	require := require.New(t)
	store := newFailingStore()
	h := newHarness(t, nil, WithStorage(store))
	id := h.create(ether(1))

	bidder := h.bidder(ether(5))
	nonce := h.commit(id, bidder, ether(2), ether(3))
	h.toReveal()
	_, err := h.reg.Reveal(h.ctx, id, bidder, ether(2), nonce)
	require.NoError(err)
	h.toSettle()

	// the pending record lands, the final one does not
	reg, err := NewRegistry(DefaultConfig(h.house), &breakingAssets{h.assets, store}, h.vault, WithClock(h.clock), WithStorage(store))
	require.NoError(err)
	_, err = reg.End(h.ctx, id)
	require.NoError(err)
	require.True(h.vault.Balance(h.seller).Eq(ether(2)))
	store.breakWrites(false)

	again, err := NewRegistry(DefaultConfig(h.house), h.assets, h.vault, WithClock(h.clock), WithStorage(store))
	require.NoError(err)
	snap, err := again.Get(id)
	require.NoError(err)
	require.True(snap.Ended)
	require.Len(snap.Settlement, 2)
	for _, p := range snap.Settlement {
		require.Equal(PayoutPending, p.Status)
	}
	require.True(again.Escrowed(id, bidder).IsZero())

	_, err = again.End(h.ctx, id)
	require.ErrorIs(err, ErrAlreadyEnded)
	require.True(h.vault.Balance(h.seller).Eq(ether(2)))
	require.True(h.vault.Balance(bidder).Eq(ether(3)))
}

func TestWithdrawPersistFailureKeepsClaim(t *testing.T) {
	require := require.New(t)
	store := newFailingStore()
	h := newHarness(t, nil, WithStorage(store))
	id := h.create(ether(1))

	bidder := h.bidder(ether(5))
	h.commit(id, bidder, ether(2), ether(2))
	h.toSettle()
	h.vault.Reject(bidder, true)
	_, err := h.reg.End(h.ctx, id)
	require.NoError(err)
	require.True(h.reg.Claimable(bidder).Eq(ether(2)))
	h.vault.Reject(bidder, false)

	store.breakWrites(true)
	_, err = h.reg.Withdraw(h.ctx, bidder)
	require.ErrorIs(err, errDiskFull)
	require.True(h.reg.Claimable(bidder).Eq(ether(2)))
	require.True(h.vault.Balance(bidder).Eq(ether(3)))

	store.breakWrites(false)
	paid, err := h.reg.Withdraw(h.ctx, bidder)
	require.NoError(err)
	require.True(paid.Eq(ether(2)))

	// the withdrawn claim stays gone after a restart
	again, err := NewRegistry(DefaultConfig(h.house), h.assets, h.vault, WithClock(h.clock), WithStorage(store))
	require.NoError(err)
	require.True(again.Claimable(bidder).IsZero())
}

func TestRestoreFromBadger(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	open := func() *storage.Storage {
		s, err := storage.NewStorage(storage.KindBadger, dir)
		require.NoError(err)
		return s
	}

	// a fresh data dir restores to an empty registry
	store := open()
	h := newHarness(t, nil, WithStorage(store))
	require.Empty(h.reg.List())

	id := h.create(ether(1))
	bidder := h.bidder(ether(5))
	nonce := h.commit(id, bidder, ether(2), ether(3))
	require.NoError(store.Close())

	// auctions but no claims
	store = open()
	reg, err := NewRegistry(DefaultConfig(h.house), h.assets, h.vault, WithClock(h.clock), WithStorage(store))
	require.NoError(err)
	require.True(reg.Escrowed(id, bidder).Eq(ether(3)))

	h.toReveal()
	_, err = reg.Reveal(h.ctx, id, bidder, ether(2), nonce)
	require.NoError(err)
	h.toSettle()
	_, err = reg.End(h.ctx, id)
	require.NoError(err)
	require.NoError(store.Close())

	store = open()
	defer store.Close()
	reg, err = NewRegistry(DefaultConfig(h.house), h.assets, h.vault, WithClock(h.clock), WithStorage(store))
	require.NoError(err)
	_, err = reg.End(h.ctx, id)
	require.ErrorIs(err, ErrAlreadyEnded)
	require.True(h.vault.Balance(h.seller).Eq(ether(2)))
	require.True(h.vault.Balance(bidder).Eq(ether(3)))
}
