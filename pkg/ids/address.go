// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ids

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLen is the length of an Address in bytes
const AddressLen = 20

// Address identifies a principal: a seller, a bidder or the custodian.
type Address [AddressLen]byte

// EmptyAddress is the zero Address
var EmptyAddress = Address{}

// String returns the 0x-prefixed hex form of the address
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsEmpty returns true if the Address is the zero address
func (a Address) IsEmpty() bool {
	return a == EmptyAddress
}

// Bytes returns the byte representation of an Address
func (a Address) Bytes() []byte {
	return a[:]
}

// MarshalText implements encoding.TextMarshaler
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := AddressFromString(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AddressFromString parses an Address from a hex string with or without 0x prefix
func AddressFromString(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(b) != AddressLen {
		return a, fmt.Errorf("invalid address length: expected %d, got %d", AddressLen, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// AddressFromBytes creates an Address from bytes
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLen {
		return a, fmt.Errorf("invalid address length: expected %d, got %d", AddressLen, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// GenerateTestAddress generates a random Address
func GenerateTestAddress() Address {
	var a Address
	testID := GenerateTestID()
	copy(a[:], testID[:AddressLen])
	return a
}
