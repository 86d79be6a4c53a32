// Package stub provides an in-memory chain.RPCClient for tests.
package stub

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"mantle-yield-lab/internal/chain"
)

// ErrNotFound is returned when no canned eth_call result exists.
var ErrNotFound = errors.New("not found")

// RPCClient implements chain.RPCClient for testing. Addresses are
// matched case-insensitively.
type RPCClient struct {
	mu sync.Mutex

	ChainIDValue int64
	BlockNumber  uint64
	CallResults  map[string]string   // key: lower(to)+"|"+data
	Native       map[string]*big.Int // key: lower(owner)
	Balances     map[string]*big.Int // key: lower(token)+"|"+lower(owner)
	Decimals     map[string]int      // key: lower(token)
	Symbols      map[string]string   // key: lower(token)
	Failures     map[string]error    // key: lower(token) or lower(owner)
	BlockErr     error

	calls int
}

var _ chain.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client on mainnet.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		ChainIDValue: 5000,
		CallResults:  make(map[string]string),
		Native:       make(map[string]*big.Int),
		Balances:     make(map[string]*big.Int),
		Decimals:     make(map[string]int),
		Symbols:      make(map[string]string),
		Failures:     make(map[string]error),
	}
}

func key(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, "|")
}

func (c *RPCClient) record() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

// Calls returns how many reads were served.
func (c *RPCClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *RPCClient) failure(addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Failures[key(addr)]
}

// Call returns the canned eth_call result.
func (c *RPCClient) Call(_ context.Context, to, data string) (string, error) {
	c.record()
	if err := c.failure(to); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.CallResults[key(to, data)]
	if !ok {
		return "", ErrNotFound
	}
	return res, nil
}

// GetBalance returns the native balance, zero when unset.
func (c *RPCClient) GetBalance(_ context.Context, addr string) (*big.Int, error) {
	c.record()
	if err := c.failure(addr); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.Native[key(addr)]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

// GetBlockNumber returns BlockNumber or BlockErr.
func (c *RPCClient) GetBlockNumber(_ context.Context) (uint64, error) {
	c.record()
	if c.BlockErr != nil {
		return 0, c.BlockErr
	}
	return c.BlockNumber, nil
}

// ReadERC20Balance returns the stored token balance, zero when unset.
func (c *RPCClient) ReadERC20Balance(_ context.Context, token, owner string) (*big.Int, error) {
	c.record()
	if err := c.failure(token); err != nil {
		return nil, err
	}
	if err := c.failure(owner); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.Balances[key(token, owner)]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

// ReadERC20Decimals returns the stored decimals, 18 when unset or failing.
func (c *RPCClient) ReadERC20Decimals(_ context.Context, token string) int {
	c.record()
	if c.failure(token) != nil {
		return chain.DefaultDecimals
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.Decimals[key(token)]; ok {
		return d
	}
	return chain.DefaultDecimals
}

// ReadERC20Symbol returns the stored symbol, "UNKNOWN" when unset.
func (c *RPCClient) ReadERC20Symbol(_ context.Context, token string) string {
	c.record()
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.Symbols[key(token)]; ok {
		return s
	}
	return "UNKNOWN"
}

// ChainID returns ChainIDValue.
func (c *RPCClient) ChainID() int64 {
	return c.ChainIDValue
}

// SetBalance stores a token balance for owner.
func (c *RPCClient) SetBalance(token, owner string, raw *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[key(token, owner)] = raw
}

// SetDecimals stores token decimals.
func (c *RPCClient) SetDecimals(token string, decimals int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Decimals[key(token)] = decimals
}

// Fail makes every read touching addr return err.
func (c *RPCClient) Fail(addr string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Failures[key(addr)] = err
}
