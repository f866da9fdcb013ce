package commit

import (
	"github.com/holiman/uint256"
	luxcrypto "github.com/luxfi/crypto"
	"golang.org/x/crypto/sha3"

	"github.com/luxfi/sealbid/pkg/ids"
)

// keccakScheme commits with keccak256(amount || nonce). The output matches
// keccak256(abi.encodePacked(amount, nonce)) computed by an EVM contract.
type keccakScheme struct{}

func (keccakScheme) Name() string { return Keccak256 }

func (keccakScheme) Commit(amount *uint256.Int, nonce ids.ID) Commitment {
	var c Commitment
	copy(c[:], luxcrypto.Keccak256(packed(amount, nonce)))
	return c
}

func (s keccakScheme) Verify(c Commitment, amount *uint256.Int, nonce ids.ID) bool {
	return equal(s.Commit(amount, nonce), c)
}

// sha3Scheme commits with FIPS-202 SHA3-256(amount || nonce)
type sha3Scheme struct{}

func (sha3Scheme) Name() string { return SHA3256 }

func (sha3Scheme) Commit(amount *uint256.Int, nonce ids.ID) Commitment {
	return Commitment(sha3.Sum256(packed(amount, nonce)))
}

func (s sha3Scheme) Verify(c Commitment, amount *uint256.Int, nonce ids.ID) bool {
	return equal(s.Commit(amount, nonce), c)
}
