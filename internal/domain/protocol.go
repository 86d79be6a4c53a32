package domain

// ProtocolType classifies a protocol integration.
type ProtocolType string

const (
	ProtocolTypeLiquidStaking ProtocolType = "Liquid Staking"
	ProtocolTypeLending       ProtocolType = "Lending"
	ProtocolTypeRWA           ProtocolType = "RWA"
	ProtocolTypeYield         ProtocolType = "Yield"
)

// IsValid checks if the protocol type is a known value.
func (t ProtocolType) IsValid() bool {
	switch t {
	case ProtocolTypeLiquidStaking, ProtocolTypeLending, ProtocolTypeRWA, ProtocolTypeYield:
		return true
	}
	return false
}

// RiskLevel is a coarse risk grade attached to a yield pool.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ProtocolMetadata is the static descriptor of a protocol integration.
// Immutable after adapter construction.
type ProtocolMetadata struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Type    ProtocolType `json:"type"`
	Network Network      `json:"network"`
	TVL     float64      `json:"tvl,omitempty"` // USD
	APY     float64      `json:"apy"`           // percent
	Color   string       `json:"color"`         // presentation hint only
}

// PoolYield is a static yield-pool descriptor owned by one protocol.
type PoolYield struct {
	ProtocolID   string    `json:"protocolId"`
	ProtocolName string    `json:"protocolName"`
	PoolName     string    `json:"poolName"`
	AssetSymbol  string    `json:"assetSymbol"`
	AssetAddress string    `json:"assetAddress"`
	APR          float64   `json:"apr"`
	Underlying   string    `json:"underlying"`
	RiskLevel    RiskLevel `json:"riskLevel"`
	TVL          float64   `json:"tvl,omitempty"`
}

// DistributionEntry is one slice of the TVL distribution across protocols.
type DistributionEntry struct {
	Name  string       `json:"name"`
	Value float64      `json:"value"` // TVL in USD
	Type  ProtocolType `json:"type"`
}
