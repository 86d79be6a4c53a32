package abi

import (
	"fmt"
	"math/big"
	"strings"
)

// Function signatures understood by the fixed selector table.
const (
	SigBalanceOf   = "balanceOf(address)"
	SigDecimals    = "decimals()"
	SigSymbol      = "symbol()"
	SigTotalSupply = "totalSupply()"
	SigStake       = "stake()"
	SigUnstake     = "unstake(uint256)"
	SigDeposit     = "deposit(uint256)"
	SigWithdraw    = "withdraw(uint256)"
)

// ZeroSelector is emitted for signatures missing from the table.
const ZeroSelector = "0x00000000"

// selectors are hard-coded rather than hashed. unstake(uint256) shares the
// withdraw(uint256) selector.
var selectors = map[string]string{
	SigBalanceOf:   "0x70a08231",
	SigDecimals:    "0x313ce567",
	SigSymbol:      "0x95d89b41",
	SigTotalSupply: "0x18160ddd",
	SigStake:       "0x3a4b66f1",
	SigUnstake:     "0x2e1a7d4d",
	SigDeposit:     "0xb6b55f25",
	SigWithdraw:    "0x2e1a7d4d",
}

// Encoder builds call data for a contract function.
type Encoder interface {
	EncodeCall(signature string, args ...Arg) string
}

// Arg is a single static ABI argument encoded as one 32-byte word.
type Arg interface {
	word() string
}

type addressArg string

func (a addressArg) word() string {
	return leftPad(strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(string(a), "0x"), "0X")))
}

type uintArg struct{ n *big.Int }

func (u uintArg) word() string {
	if u.n == nil {
		return leftPad("0")
	}
	return leftPad(u.n.Text(16))
}

// Address wraps a 0x-prefixed address as a call argument.
func Address(addr string) Arg { return addressArg(addr) }

// Uint wraps an unsigned integer as a call argument.
func Uint(n *big.Int) Arg { return uintArg{n: n} }

// FixedTable encodes calls using the hard-coded selector table.
type FixedTable struct{}

// EncodeCall implements Encoder.
func (FixedTable) EncodeCall(signature string, args ...Arg) string {
	return EncodeCall(signature, args...)
}

// Lookup returns the selector for signature and whether it is known.
func Lookup(signature string) (string, bool) {
	sel, ok := selectors[signature]
	return sel, ok
}

// EncodeCall returns 0x-prefixed call data: selector followed by one word per arg.
// Unknown signatures silently yield ZeroSelector.
func EncodeCall(signature string, args ...Arg) string {
	sel, ok := selectors[signature]
	if !ok {
		sel = ZeroSelector
	}
	if len(args) == 0 {
		return sel
	}

	var b strings.Builder
	b.Grow(len(sel) + 64*len(args))
	b.WriteString(sel)
	for _, arg := range args {
		b.WriteString(arg.word())
	}
	return b.String()
}

func leftPad(hexDigits string) string {
	if len(hexDigits) >= 64 {
		return hexDigits
	}
	return fmt.Sprintf("%064s", hexDigits)
}
