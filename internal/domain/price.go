package domain

// TokenPrice is a USD price for one tracked symbol.
type TokenPrice struct {
	Symbol    string      `json:"symbol"`
	Address   string      `json:"address"`
	Price     float64     `json:"price"`
	Source    PriceSource `json:"source"`
	Timestamp int64       `json:"timestamp"` // Unix ms
	Change24h *float64    `json:"change24h,omitempty"`
}

// SwapQuote is an indicative conversion between two tracked symbols.
type SwapQuote struct {
	FromSymbol   string   `json:"fromSymbol"`
	ToSymbol     string   `json:"toSymbol"`
	FromAmount   string   `json:"fromAmount"`
	ToAmount     string   `json:"toAmount"`     // 8 decimals
	ExchangeRate string   `json:"exchangeRate"` // 8 decimals
	PriceImpact  string   `json:"priceImpact"`  // percent, 2 decimals
	FromPriceUSD float64  `json:"fromPriceUsd"`
	ToPriceUSD   float64  `json:"toPriceUsd"`
	Route        []string `json:"route"`
	Venue        string   `json:"venue"`
	Timestamp    int64    `json:"timestamp"` // Unix ms
}
