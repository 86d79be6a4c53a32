// Package chain talks to a Mantle (EVM) node over JSON-RPC.
package chain

import (
	"context"
	"fmt"
	"math/big"
)

// RPCClient defines the node reads the adapters depend on.
type RPCClient interface {
	// Call executes eth_call against the latest block and returns the raw hex result.
	Call(ctx context.Context, to, data string) (string, error)

	// GetBalance returns the native balance of addr in wei.
	GetBalance(ctx context.Context, addr string) (*big.Int, error)

	// GetBlockNumber returns the latest block number.
	GetBlockNumber(ctx context.Context) (uint64, error)

	// ReadERC20Balance returns balanceOf(owner). An empty result reads as zero.
	ReadERC20Balance(ctx context.Context, token, owner string) (*big.Int, error)

	// ReadERC20Decimals returns decimals(), or 18 when the read fails or is empty.
	ReadERC20Decimals(ctx context.Context, token string) int

	// ReadERC20Symbol returns symbol(), or "UNKNOWN" when the read fails.
	ReadERC20Symbol(ctx context.Context, token string) string

	// ChainID returns the chain id this client was configured for.
	ChainID() int64
}

// DefaultDecimals is assumed when a token does not report decimals.
const DefaultDecimals = 18

// RPCError is a JSON-RPC 2.0 error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}
