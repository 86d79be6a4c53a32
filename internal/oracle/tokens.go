package oracle

// Token is a symbol the oracle prices.
type Token struct {
	Symbol      string
	Address     string
	Decimals    int
	CoinGeckoID string // empty when CoinGecko does not list it
}

// DefaultTokens returns the tracked Mantle tokens in display order.
func DefaultTokens() []Token {
	return []Token{
		{Symbol: "MNT", Address: "0x78c1b0C915c4FAA5FffA6CAbf0219DA63d7f4cb8", Decimals: 18, CoinGeckoID: "mantle"},
		{Symbol: "WETH", Address: "0xdEAddEaDdeadDEadDEADDEAddEADDEAddead1111", Decimals: 18, CoinGeckoID: "weth"},
		{Symbol: "mETH", Address: "0xcDA86A272531e8640cD7F1a92c01839911B90bb0", Decimals: 18, CoinGeckoID: "mantle-staked-ether"},
		{Symbol: "cmETH", Address: "0xE6829d9a7eE3040e1276Fa75293Bde931859e8fA", Decimals: 18},
		{Symbol: "USDC", Address: "0x09Bc4E0D10E52467bde4D26bC7b4F0a684B8A1e0", Decimals: 6, CoinGeckoID: "usd-coin"},
		{Symbol: "USDT", Address: "0x201EBa5CC46D216Ce6DC03F6a759e8E766e956aE", Decimals: 6, CoinGeckoID: "tether"},
		{Symbol: "USD1", Address: "0xC74E9cB8df25597bD6A6bD4D5c0cA1e170Aa8af4", Decimals: 18, CoinGeckoID: "usd1-wlfi"},
		{Symbol: "USDY", Address: "0x5bE26527e817998A7206475496fDE1E68957c5A6", Decimals: 18, CoinGeckoID: "ondo-us-dollar-yield"},
	}
}
