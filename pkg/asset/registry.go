// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package asset

import (
	"context"
	"errors"

	"github.com/luxfi/sealbid/pkg/ids"
)

var (
	ErrUnknownAsset  = errors.New("unknown asset")
	ErrAssetExists   = errors.New("asset already exists")
	ErrNotOwner      = errors.New("from is not the asset owner")
	ErrNotAuthorized = errors.New("operator is neither owner nor approved")
	ErrEmptyID       = errors.New("empty asset id")
	ErrZeroAddress   = errors.New("transfer to zero address")
)

// ID references an item held by an asset registry, e.g. "collection/1"
type ID string

// Registry owns the auctioned items. The auction house only checks ownership
// and approval and moves custody; minting and burning are the registry's business.
type Registry interface {
	// OwnerOf returns the current owner of id
	OwnerOf(ctx context.Context, id ID) (ids.Address, error)
	// IsApproved reports whether operator may move id on behalf of its owner
	IsApproved(ctx context.Context, id ID, operator ids.Address) (bool, error)
	// Transfer moves id from from to to; operator must be from or approved by from
	Transfer(ctx context.Context, operator ids.Address, id ID, from, to ids.Address) error
}
