// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package commit

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/ids"
)

// Size is the byte length of every commitment produced by this package
const Size = 32

var ErrUnknownScheme = errors.New("unknown commitment scheme")

// Scheme names accepted by New
const (
	Keccak256 = "keccak256"
	SHA3256   = "sha3-256"
	Pedersen  = "pedersen"
)

// Commitment binds a bidder to an (amount, nonce) pair without revealing either
type Commitment [Size]byte

// String returns the 0x-prefixed hex form
func (c Commitment) String() string {
	return "0x" + hex.EncodeToString(c[:])
}

// IsZero reports whether c is the zero commitment
func (c Commitment) IsZero() bool {
	return c == Commitment{}
}

// MarshalText implements encoding.TextMarshaler
func (c Commitment) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Commitment) UnmarshalText(text []byte) error {
	parsed, err := FromString(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// FromString parses a hex commitment, 0x prefix optional
func FromString(s string) (Commitment, error) {
	var c Commitment
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("invalid commitment: %w", err)
	}
	if len(b) != Size {
		return c, fmt.Errorf("invalid commitment length: expected %d, got %d", Size, len(b))
	}
	copy(c[:], b)
	return c, nil
}

// Scheme produces and checks commitments. Implementations are stateless and
// safe for concurrent use.
type Scheme interface {
	// Name returns the scheme identifier accepted by New
	Name() string
	// Commit deterministically commits to amount under nonce
	Commit(amount *uint256.Int, nonce ids.ID) Commitment
	// Verify reports whether Commit(amount, nonce) == c
	Verify(c Commitment, amount *uint256.Int, nonce ids.ID) bool
}

// New returns the scheme registered under name. An empty name selects keccak256.
// The pedersen scheme only accepts amounts below 2^PedersenMaxBits.
func New(name string) (Scheme, error) {
	switch strings.ToLower(name) {
	case "", Keccak256:
		return keccakScheme{}, nil
	case SHA3256:
		return sha3Scheme{}, nil
	case Pedersen:
		return newPedersenScheme(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
}

// Names lists the supported schemes
func Names() []string {
	return []string{Keccak256, SHA3256, Pedersen}
}

// RandomNonce draws a fresh 32 byte nonce from crypto/rand
func RandomNonce() (ids.ID, error) {
	return ids.GenerateID()
}

// packed lays out amount and nonce the way abi.encodePacked(uint256, bytes32) does
func packed(amount *uint256.Int, nonce ids.ID) []byte {
	if amount == nil {
		amount = new(uint256.Int)
	}
	word := amount.Bytes32()
	buf := make([]byte, 0, 64)
	buf = append(buf, word[:]...)
	buf = append(buf, nonce[:]...)
	return buf
}

func equal(a, b Commitment) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
