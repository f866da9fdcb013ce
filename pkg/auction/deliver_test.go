package auction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/sealbid/internal/testing/mocks"
	"github.com/luxfi/sealbid/pkg/escrow"
	"github.com/luxfi/sealbid/pkg/events"
	"github.com/luxfi/sealbid/pkg/ids"
	"github.com/luxfi/sealbid/pkg/log"
)

func TestDeliveryRetry(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	house := ids.GenerateTestAddress()
	seller := ids.GenerateTestAddress()
	clock := NewManualClock(genesis)
	vault := escrow.NewMemoryVault(log.NoOp())
	bidder := ids.GenerateTestAddress()
	vault.Fund(bidder, ether(5))

	assets := &mocks.AssetRegistry{}
	assets.On("OwnerOf", mock.Anything, testAsset).Return(seller, nil)
	assets.On("IsApproved", mock.Anything, testAsset, house).Return(true, nil)
	assets.On("Transfer", mock.Anything, house, testAsset, seller, house).Return(nil).Once()
	assets.On("Transfer", mock.Anything, house, testAsset, house, bidder).Return(errors.New("registry paused")).Once()
	assets.On("Transfer", mock.Anything, house, testAsset, house, bidder).Return(nil).Once()

	pub := &capture{}
	reg, err := NewRegistry(DefaultConfig(house), assets, vault, WithClock(clock), WithPublisher(pub))
	require.NoError(err)

	created, err := reg.Create(ctx, seller, CreateParams{AssetID: testAsset, BiddingDuration: biddingPeriod, RevealDuration: revealPeriod})
	require.NoError(err)
	id := created.AuctionID

	_, err = reg.Deliver(ctx, id)
	require.ErrorIs(err, ErrNotEnded)

	nonce := ids.GenerateTestID()
	_, err = reg.Commit(ctx, id, bidder, reg.GenerateCommitment(ether(2), nonce), ether(2))
	require.NoError(err)
	clock.Advance(biddingPeriod)
	_, err = reg.Reveal(ctx, id, bidder, ether(2), nonce)
	require.NoError(err)
	clock.Advance(revealPeriod)

	ended, err := reg.End(ctx, id)
	require.NoError(err)
	require.False(ended.Delivered)
	// funds settle even though the asset is stuck
	require.True(vault.Balance(seller).Eq(ether(2)))
	require.NotContains(pub.types(), events.TypeAssetDelivered)

	delivered, err := reg.Deliver(ctx, id)
	require.NoError(err)
	require.Equal(bidder, delivered.To)

	_, err = reg.Deliver(ctx, id)
	require.ErrorIs(err, ErrAlreadyDelivered)

	snap, err := reg.Get(id)
	require.NoError(err)
	require.True(snap.Delivered)
	assets.AssertExpectations(t)
}

func TestCollectFailureLeavesNoBid(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	house := ids.GenerateTestAddress()
	seller := ids.GenerateTestAddress()
	bidder := ids.GenerateTestAddress()

	assets := &mocks.AssetRegistry{}
	assets.On("OwnerOf", mock.Anything, testAsset).Return(seller, nil)
	assets.On("IsApproved", mock.Anything, testAsset, house).Return(true, nil)
	assets.On("Transfer", mock.Anything, house, testAsset, seller, house).Return(nil)

	vault := &mocks.Vault{}
	vault.On("Collect", mock.Anything, bidder, ether(1)).Return(errors.New("node unavailable"))

	reg, err := NewRegistry(DefaultConfig(house), assets, vault, WithClock(NewManualClock(genesis)))
	require.NoError(err)
	created, err := reg.Create(ctx, seller, CreateParams{AssetID: testAsset, BiddingDuration: biddingPeriod, RevealDuration: revealPeriod})
	require.NoError(err)

	_, err = reg.Commit(ctx, created.AuctionID, bidder, reg.GenerateCommitment(ether(1), ids.GenerateTestID()), ether(1))
	require.Error(err)
	require.Equal(KindUnknown, KindOf(err))

	snap, err := reg.Get(created.AuctionID)
	require.NoError(err)
	require.Empty(snap.Bids)
	require.True(reg.Escrowed(created.AuctionID, bidder).IsZero())
	vault.AssertExpectations(t)
}
