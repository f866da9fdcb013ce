// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package commit

import (
	"github.com/holiman/uint256"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"

	"github.com/luxfi/sealbid/pkg/ids"
)

// pedersenSeed derives the second generator; nobody knows log_g(h).
const pedersenSeed = "sealbid/pedersen/h/v1"

var suite = edwards25519.NewBlakeSHA256Ed25519()

// PedersenMaxBits bounds pedersen amounts: they must be below 2^252 so no two
// distinct amounts share a scalar modulo the group order.
const PedersenMaxBits = 252

// pedersenScheme commits with C = a*G + r*H over ed25519. An amount at or
// above 2^PedersenMaxBits commits to the zero Commitment and never verifies.
type pedersenScheme struct {
	g kyber.Point
	h kyber.Point
}

func newPedersenScheme() *pedersenScheme {
	return &pedersenScheme{
		g: suite.Point().Base(),
		h: suite.Point().Pick(suite.XOF([]byte(pedersenSeed))),
	}
}

func (*pedersenScheme) Name() string { return Pedersen }

func (p *pedersenScheme) Commit(amount *uint256.Int, nonce ids.ID) Commitment {
	if amount == nil {
		amount = new(uint256.Int)
	}
	if amount.BitLen() > PedersenMaxBits {
		return Commitment{}
	}
	word := amount.Bytes32()
	a := suite.Scalar().SetBytes(reversed(word[:]))
	r := suite.Scalar().SetBytes(reversed(nonce[:]))

	point := suite.Point().Add(
		suite.Point().Mul(a, p.g),
		suite.Point().Mul(r, p.h),
	)
	raw, err := point.MarshalBinary()
	if err != nil {
		// ed25519 points always encode to 32 bytes
		panic(err)
	}
	var c Commitment
	copy(c[:], raw)
	return c
}

func (p *pedersenScheme) Verify(c Commitment, amount *uint256.Int, nonce ids.ID) bool {
	if amount != nil && amount.BitLen() > PedersenMaxBits {
		return false
	}
	return equal(p.Commit(amount, nonce), c)
}

// reversed turns a big-endian word into the little-endian form kyber scalars expect
func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}
