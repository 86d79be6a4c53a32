package domain

// PriceSource labels where a TokenPrice came from.
type PriceSource string

const (
	PriceSourceCoinGecko PriceSource = "coingecko"
	PriceSourceDefiLlama PriceSource = "defillama"
	PriceSourcePeg       PriceSource = "peg"
	PriceSourceDerived   PriceSource = "derived"
	PriceSourceEstimated PriceSource = "estimated"
)

// String returns the string representation of PriceSource.
func (s PriceSource) String() string {
	return string(s)
}

// IsFallback reports whether the price came from a fallback rule rather than a live source.
func (s PriceSource) IsFallback() bool {
	return s == PriceSourcePeg || s == PriceSourceDerived || s == PriceSourceEstimated
}
