// Package units converts between human ether amounts and wei.
package units

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of decimal places between ether and wei
const EtherDecimals = 18

var (
	ErrNegative   = errors.New("amount must not be negative")
	ErrFractional = errors.New("amount has more precision than wei")
	ErrOverflow   = errors.New("amount does not fit in 256 bits")
)

// ParseEther parses a decimal ether string such as "1.5" into wei
func ParseEther(s string) (*uint256.Int, error) {
	return ParseUnits(s, EtherDecimals)
}

// ParseUnits parses a decimal string scaled by 10^decimals into an integer amount
func ParseUnits(s string, decimals int32) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, ErrNegative
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, ErrFractional
	}
	v, err := uint256.FromDecimal(scaled.StringFixed(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOverflow, err)
	}
	return v, nil
}

// FormatEther renders a wei amount in ether without trailing zeros
func FormatEther(wei *uint256.Int) string {
	return FormatUnits(wei, EtherDecimals)
}

// FormatUnits renders an integer amount scaled down by 10^decimals
func FormatUnits(v *uint256.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.RequireFromString(v.Dec()).Shift(-decimals).String()
}

// ParseWei parses a base-10 wei amount
func ParseWei(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid wei amount %q: %w", s, err)
	}
	return v, nil
}
