package domain

import "fmt"

// Network identifies the Mantle network a component talks to.
type Network string

const (
	NetworkMainnet Network = "mantle-mainnet"
	NetworkTestnet Network = "mantle-testnet"
)

// Chain ids for the supported networks.
const (
	ChainIDMainnet int64 = 5000
	ChainIDTestnet int64 = 5003
)

// ChainID returns the EVM chain id; anything other than mainnet maps to testnet.
func (n Network) ChainID() int64 {
	if n == NetworkMainnet {
		return ChainIDMainnet
	}
	return ChainIDTestnet
}

// ParseNetwork validates a network name.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case NetworkMainnet, NetworkTestnet:
		return Network(s), nil
	}
	return "", fmt.Errorf("unknown network %q", s)
}
