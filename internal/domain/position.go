package domain

// UserPosition is one holding of one asset in one protocol.
// FormatUnits(BalanceRaw, asset decimals) always equals Balance.
type UserPosition struct {
	ProtocolID   string  `json:"protocolId"`
	ProtocolName string  `json:"protocolName"`
	AssetSymbol  string  `json:"assetSymbol"`
	AssetName    string  `json:"assetName"`
	AssetAddress string  `json:"assetAddress"`
	Balance      string  `json:"balance"`    // decimal string
	BalanceRaw   string  `json:"balanceRaw"` // smallest unit
	APR          float64 `json:"apr"`
	Value        string  `json:"value"` // "$12,345.67"
	Network      Network `json:"network"`
}

// PortfolioSummary aggregates a set of positions.
type PortfolioSummary struct {
	TotalBalance  string  `json:"totalBalance"`
	AverageAPR    float64 `json:"averageApr"`
	ProtocolCount int     `json:"protocolCount"`
}

// Portfolio is the aggregated view of a wallet across every protocol.
// UnavailableProtocols lists adapters whose reads failed, so an empty
// position list can be told apart from "could not determine".
type Portfolio struct {
	Positions            []UserPosition   `json:"positions"`
	Summary              PortfolioSummary `json:"summary"`
	UnavailableProtocols []string         `json:"unavailableProtocols,omitempty"`
}
