package oracle

import (
	"context"

	"mantle-yield-lab/internal/domain"
)

// Quote is one source's view of a symbol.
type Quote struct {
	Price     float64
	Change24h *float64
}

// Source fetches prices for a batch of tokens. Results are keyed by symbol;
// symbols the source does not know are simply absent.
type Source interface {
	Name() domain.PriceSource
	Fetch(ctx context.Context, tokens []Token) (map[string]Quote, error)
}
