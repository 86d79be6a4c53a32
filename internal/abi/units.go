// Package abi provides the unit codec and the fixed-table call encoder used to
// talk to ERC20-style contracts without a full contract-binding library.
package abi

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrMalformedAmount is returned when a decimal amount string is not numeric.
var ErrMalformedAmount = errors.New("malformed amount")

// FormatUnits converts raw base units into a human decimal string.
// The fractional part is stripped of trailing zeros; "<int>" is returned when
// the remainder is zero.
func FormatUnits(raw *big.Int, decimals int) string {
	if raw == nil {
		return "0"
	}
	if decimals <= 0 {
		return raw.String()
	}

	neg := raw.Sign() < 0
	abs := new(big.Int).Abs(raw)

	divisor := pow10(decimals)
	whole, rem := new(big.Int).QuoRem(abs, divisor, new(big.Int))

	sign := ""
	if neg {
		sign = "-"
	}
	if rem.Sign() == 0 {
		return sign + whole.String()
	}

	frac := rem.String()
	if len(frac) < decimals {
		frac = strings.Repeat("0", decimals-len(frac)) + frac
	}
	frac = strings.TrimRight(frac, "0")

	return fmt.Sprintf("%s%s.%s", sign, whole.String(), frac)
}

// ParseUnits converts a human decimal string into raw base units.
// The fractional part is padded or truncated to exactly decimals digits.
func ParseUnits(value string, decimals int) (*big.Int, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrMalformedAmount)
	}
	if decimals < 0 {
		return nil, fmt.Errorf("%w: negative decimals %d", ErrMalformedAmount, decimals)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, value)
	}

	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, value)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, value)
	}

	if len(frac) < decimals {
		frac += strings.Repeat("0", decimals-len(frac))
	}
	frac = frac[:decimals]

	combined := whole + frac
	if combined == "" {
		combined = "0"
	}

	n, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, value)
	}
	return n, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
