// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import "errors"

// Kind classifies a rejected operation so callers can decide whether to
// wait and retry or give up.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthorization
	KindTiming
	KindProtocol
	KindValue
	KindNotFound
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindTiming:
		return "timing"
	case KindProtocol:
		return "protocol"
	case KindValue:
		return "value"
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is a typed rejection. Sentinels compare with errors.Is.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

var (
	// Authorization
	ErrAssetNotOwned    = &Error{KindAuthorization, "AssetNotOwned", "seller does not own the asset"}
	ErrAssetNotApproved = &Error{KindAuthorization, "AssetNotApproved", "auction house is not approved to transfer the asset"}

	// Timing
	ErrBiddingPeriodEnded    = &Error{KindTiming, "BiddingPeriodEnded", "bidding period has ended"}
	ErrBiddingPeriodNotEnded = &Error{KindTiming, "BiddingPeriodNotEnded", "bidding period has not ended"}
	ErrRevealPeriodEnded     = &Error{KindTiming, "RevealPeriodEnded", "reveal period has ended"}
	ErrRevealPeriodNotEnded  = &Error{KindTiming, "RevealPeriodNotEnded", "reveal period has not ended"}

	// Protocol
	ErrNoSuchCommitment   = &Error{KindProtocol, "NoSuchCommitment", "no commitment from bidder"}
	ErrAlreadyRevealed    = &Error{KindProtocol, "AlreadyRevealed", "bid already revealed"}
	ErrCommitmentMismatch = &Error{KindProtocol, "CommitmentMismatch", "reveal does not match commitment"}
	ErrAlreadyEnded       = &Error{KindProtocol, "AlreadyEnded", "auction already ended"}
	ErrAlreadyCommitted   = &Error{KindProtocol, "AlreadyCommitted", "bidder already committed"}
	ErrNotEnded           = &Error{KindProtocol, "NotEnded", "auction has not ended"}
	ErrAlreadyDelivered   = &Error{KindProtocol, "AlreadyDelivered", "asset already delivered"}

	// Value
	ErrZeroValue         = &Error{KindValue, "ZeroValue", "commit requires attached funds"}
	ErrInsufficientFunds = &Error{KindValue, "InsufficientFunds", "insufficient funds for escrow"}
	ErrNothingToClaim    = &Error{KindValue, "NothingToClaim", "nothing to claim"}

	// NotFound
	ErrAuctionNotFound = &Error{KindNotFound, "AuctionNotFound", "auction not found"}
	ErrAssetNotFound   = &Error{KindNotFound, "AssetNotFound", "asset not found"}

	// Invalid
	ErrInvalidDuration = &Error{KindInvalid, "InvalidDuration", "invalid auction duration"}
	ErrInvalidConfig   = &Error{KindInvalid, "InvalidConfig", "invalid auction config"}
)

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first *Error in err's chain, or "Internal"
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "Internal"
}

// IsRetryable reports whether err may succeed once the clock advances
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBiddingPeriodNotEnded) || errors.Is(err, ErrRevealPeriodNotEnded)
}
