package abi

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// UnknownSymbol is returned by DecodeShortString when the payload cannot be read.
const UnknownSymbol = "UNKNOWN"

const wordSize = 32

// DecodeWord decodes a single returned word as an unsigned big-endian integer.
// An empty result ("0x" or "") decodes to zero.
func DecodeWord(data string) (*big.Int, error) {
	digits := strip0x(data)
	if digits == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, fmt.Errorf("decode word %q: invalid hex", data)
	}
	return n, nil
}

// DecodeShortString decodes an ABI-encoded dynamic string return value
// (offset word, length word, data). Decoding stops at the first NUL byte.
func DecodeShortString(data string) string {
	raw, err := hex.DecodeString(strip0x(data))
	if err != nil || len(raw) <= 2*wordSize {
		return UnknownSymbol
	}

	body := raw[2*wordSize:]

	offset := new(big.Int).SetBytes(raw[:wordSize])
	if offset.IsInt64() && offset.Int64() == wordSize {
		length := new(big.Int).SetBytes(raw[wordSize : 2*wordSize])
		if !length.IsInt64() || length.Int64() > int64(len(body)) {
			return UnknownSymbol
		}
		body = body[:length.Int64()]
	}

	var b strings.Builder
	for _, c := range body {
		if c == 0 {
			break
		}
		b.WriteByte(c)
	}
	if b.Len() == 0 {
		return UnknownSymbol
	}
	return b.String()
}

func strip0x(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
