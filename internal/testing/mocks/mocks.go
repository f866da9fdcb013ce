// Package mocks holds testify doubles for the auction house collaborators
package mocks

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/mock"

	"github.com/luxfi/sealbid/pkg/asset"
	"github.com/luxfi/sealbid/pkg/ids"
)

// AssetRegistry mocks asset.Registry
type AssetRegistry struct {
	mock.Mock
}

func (m *AssetRegistry) OwnerOf(ctx context.Context, id asset.ID) (ids.Address, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(ids.Address), args.Error(1)
}

func (m *AssetRegistry) IsApproved(ctx context.Context, id asset.ID, operator ids.Address) (bool, error) {
	args := m.Called(ctx, id, operator)
	return args.Bool(0), args.Error(1)
}

func (m *AssetRegistry) Transfer(ctx context.Context, operator ids.Address, id asset.ID, from, to ids.Address) error {
	args := m.Called(ctx, operator, id, from, to)
	return args.Error(0)
}

// Vault mocks escrow.Vault
type Vault struct {
	mock.Mock
}

func (m *Vault) Collect(ctx context.Context, from ids.Address, amount *uint256.Int) error {
	args := m.Called(ctx, from, amount)
	return args.Error(0)
}

func (m *Vault) Pay(ctx context.Context, to ids.Address, amount *uint256.Int) error {
	args := m.Called(ctx, to, amount)
	return args.Error(0)
}
