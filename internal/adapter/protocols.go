package adapter

import (
	"github.com/shopspring/decimal"

	"mantle-yield-lab/internal/abi"
	"mantle-yield-lab/internal/domain"
)

// Mantle mainnet contract addresses.
const (
	METHToken   = "0xcDA86A272531e8640cD7F1a92c01839911B90bb0"
	METHStaking = "0xe3cBd06D7dadB3F4e6557bAb7EdD924CD1489E8f"
	CMETHToken  = "0xE6829d9a7eE3040e1276Fa75293Bde931859e8fA"
	USDCToken   = "0x09Bc4E0D10E52467bde4D26bC7b4F0a684B8A1e0"
	USDTToken   = "0x201EBa5CC46D216Ce6DC03F6a759e8E766e956aE"
	WETHToken   = "0xdEAddEaDdeadDEadDEADDEAddEADDEAddead1111"
	MNTToken    = "0x78c1b0C915c4FAA5FffA6CAbf0219DA63d7f4cb8"

	// Placeholder vault addresses; no real RWA vault is wired yet.
	USD1Vault = "0x0000000000000000000000000000000000000001"
	USDYVault = "0x0000000000000000000000000000000000000002"
)

// Reference USD prices used for position valuation.
var (
	ETHReferencePrice    = decimal.NewFromInt(2380)
	StableReferencePrice = decimal.NewFromInt(1)
)

// SourceKind selects how an adapter reads positions.
type SourceKind int

const (
	// SourceNone never reports positions.
	SourceNone SourceKind = iota
	// SourceERC20 reads the asset token balance directly.
	SourceERC20
	// SourceProxy derives a balance from another token's balance.
	SourceProxy
)

// PositionSource describes the position read.
type PositionSource struct {
	Kind          SourceKind
	Token         string          // proxy token (SourceProxy)
	TokenDecimals int             // proxy token decimals
	Ratio         decimal.Decimal // derived = proxy * Ratio
}

// Asset is the token a protocol position is denominated in.
type Asset struct {
	Symbol   string
	Name     string
	Address  string
	Decimals int // used for amount parsing when building transactions
}

// CallSpec describes one transaction-building call.
type CallSpec struct {
	Signature string
	Payable   bool // amount travels as value with no argument
	GasLimit  uint64
}

// Pool describes the protocol's single yield pool.
type Pool struct {
	Name       string
	Underlying string
	Risk       domain.RiskLevel
}

// Descriptor is the full per-protocol configuration.
type Descriptor struct {
	ID             string
	Name           string
	Type           domain.ProtocolType
	TVL            float64
	APY            float64
	Color          string
	Asset          Asset
	PositionAPR    float64
	ReferencePrice decimal.Decimal
	Target         string
	Deposit        CallSpec
	Withdraw       CallSpec
	Pool           Pool
	Source         PositionSource
}

// Descriptors returns the built-in protocols in registration order.
func Descriptors() []Descriptor {
	return []Descriptor{
		{
			ID:             "meth",
			Name:           "mETH Protocol",
			Type:           domain.ProtocolTypeLiquidStaking,
			TVL:            245_000_000,
			APY:            4.8,
			Color:          "from-primary to-primary/60",
			Asset:          Asset{Symbol: "mETH", Name: "Mantle Staked ETH", Address: METHToken, Decimals: 18},
			PositionAPR:    4.5,
			ReferencePrice: ETHReferencePrice,
			Target:         METHStaking,
			Deposit:        CallSpec{Signature: abi.SigStake, Payable: true, GasLimit: 150_000},
			Withdraw:       CallSpec{Signature: abi.SigUnstake, GasLimit: 180_000},
			Pool: Pool{
				Name:       "mETH Staking Pool",
				Underlying: "ETH staked on Mantle for liquid staking rewards",
				Risk:       domain.RiskMedium,
			},
			Source: PositionSource{Kind: SourceERC20},
		},
		{
			ID:             "cmeth",
			Name:           "cmETH",
			Type:           domain.ProtocolTypeLiquidStaking,
			TVL:            89_000_000,
			APY:            5.2,
			Color:          "from-primary to-secondary",
			Asset:          Asset{Symbol: "cmETH", Name: "Collateral mETH", Address: CMETHToken, Decimals: 18},
			PositionAPR:    5.2,
			ReferencePrice: ETHReferencePrice,
			Target:         CMETHToken,
			Deposit:        CallSpec{Signature: abi.SigDeposit, GasLimit: 150_000},
			Withdraw:       CallSpec{Signature: abi.SigWithdraw, GasLimit: 180_000},
			Pool: Pool{
				Name:       "cmETH Collateral Pool",
				Underlying: "Collateralized mETH for enhanced yield and DeFi composability",
				Risk:       domain.RiskMedium,
			},
			Source: PositionSource{Kind: SourceERC20},
		},
		{
			ID:             "lendle",
			Name:           "Lendle",
			Type:           domain.ProtocolTypeLending,
			TVL:            156_000_000,
			APY:            6.2,
			Color:          "from-secondary to-secondary/60",
			Asset:          Asset{Symbol: "USDC", Name: "USD Coin", Address: USDCToken, Decimals: 6},
			PositionAPR:    6.2,
			ReferencePrice: StableReferencePrice,
			Target:         USDCToken,
			Deposit:        CallSpec{Signature: abi.SigDeposit, GasLimit: 200_000},
			Withdraw:       CallSpec{Signature: abi.SigWithdraw, GasLimit: 200_000},
			Pool: Pool{
				Name:       "USDC Lending Pool",
				Underlying: "USDC lending on Mantle via Lendle protocol",
				Risk:       domain.RiskLow,
			},
			Source: PositionSource{Kind: SourceERC20},
		},
		{
			ID:             "aurelius",
			Name:           "Aurelius",
			Type:           domain.ProtocolTypeLending,
			TVL:            78_000_000,
			APY:            5.8,
			Color:          "from-amber-500 to-amber-600",
			Asset:          Asset{Symbol: "USDT", Name: "Tether USD", Address: USDTToken, Decimals: 6},
			PositionAPR:    5.8,
			ReferencePrice: StableReferencePrice,
			Target:         USDTToken,
			Deposit:        CallSpec{Signature: abi.SigDeposit, GasLimit: 200_000},
			Withdraw:       CallSpec{Signature: abi.SigWithdraw, GasLimit: 200_000},
			Pool: Pool{
				Name:       "USDT Lending Pool",
				Underlying: "USDT lending on Mantle via Aurelius protocol",
				Risk:       domain.RiskLow,
			},
			Source: PositionSource{Kind: SourceERC20},
		},
		{
			ID:             "usd1",
			Name:           "USD1",
			Type:           domain.ProtocolTypeRWA,
			TVL:            312_000_000,
			APY:            5.2,
			Color:          "from-emerald-500 to-emerald-600",
			Asset:          Asset{Symbol: "USD1", Name: "USD1 – RWA Stablecoin", Address: USD1Vault, Decimals: 18},
			PositionAPR:    5.2,
			ReferencePrice: StableReferencePrice,
			Target:         USD1Vault,
			Deposit:        CallSpec{Signature: abi.SigDeposit, GasLimit: 250_000},
			Withdraw:       CallSpec{Signature: abi.SigWithdraw, GasLimit: 250_000},
			Pool: Pool{
				Name:       "USD1 RWA Stablecoin Pool",
				Underlying: "Tokenized short-term US Treasury bills via off-chain SPV",
				Risk:       domain.RiskLow,
			},
			// MNT holdings stand in for RWA engagement until the vault is readable.
			Source: PositionSource{
				Kind:          SourceProxy,
				Token:         MNTToken,
				TokenDecimals: 18,
				Ratio:         decimal.RequireFromString("0.1"),
			},
		},
		{
			ID:             "ondo",
			Name:           "Ondo Finance",
			Type:           domain.ProtocolTypeRWA,
			TVL:            198_000_000,
			APY:            4.5,
			Color:          "from-blue-500 to-blue-600",
			Asset:          Asset{Symbol: "USDY", Name: "Ondo US Dollar Yield", Address: USDYVault, Decimals: 18},
			PositionAPR:    4.5,
			ReferencePrice: StableReferencePrice,
			Target:         USDYVault,
			Deposit:        CallSpec{Signature: abi.SigDeposit, GasLimit: 200_000},
			Withdraw:       CallSpec{Signature: abi.SigWithdraw, GasLimit: 200_000},
			Pool: Pool{
				Name:       "USDY Yield Pool",
				Underlying: "US Dollar Yield - tokenized short-term US Treasuries and bank demand deposits",
				Risk:       domain.RiskLow,
			},
			Source: PositionSource{Kind: SourceNone},
		},
	}
}
