package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// ID represents a 32 byte value such as a commitment nonce
type ID [32]byte

// Empty is the zero ID
var Empty = ID{}

// GenerateID draws a random ID from crypto/rand
func GenerateID() (ID, error) {
	var id ID
	if _, err := rand.Read(id[:]); err != nil {
		return Empty, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return id, nil
}

// GenerateTestID creates a random ID, panicking on failure. Only for tests.
func GenerateTestID() ID {
	id, err := GenerateID()
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the 0x-prefixed hex representation of the ID
func (id ID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Bytes returns the byte representation of the ID
func (id ID) Bytes() []byte {
	return id[:]
}

// MarshalText implements encoding.TextMarshaler
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := FromString(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// FromString creates an ID from a hex string, 0x prefix optional
func FromString(s string) (ID, error) {
	var id ID
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	bytes, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(bytes) != 32 {
		return id, fmt.Errorf("invalid ID length: expected 32, got %d", len(bytes))
	}
	copy(id[:], bytes)
	return id, nil
}
