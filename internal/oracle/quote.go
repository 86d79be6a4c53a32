package oracle

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"mantle-yield-lab/internal/domain"
)

// Swap quote constants.
const (
	SwapVenue = "Mantle DEX Aggregator"
)

var (
	// assumedLiquidityUSD is the synthetic pool depth behind price impact.
	assumedLiquidityUSD = decimal.NewFromInt(20_000_000)
	maxPriceImpact      = decimal.NewFromInt(5)
	hundred             = decimal.NewFromInt(100)
)

// GetSwapQuote quotes amount of from into to at the current cached prices.
func (o *Oracle) GetSwapQuote(ctx context.Context, from, to, amount string) (*domain.SwapQuote, error) {
	fromTok, err := o.Token(from)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuoteRequest, err)
	}
	toTok, err := o.Token(to)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuoteRequest, err)
	}

	qty, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q is not numeric", domain.ErrInvalidQuoteRequest, amount)
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: amount %q must be positive", domain.ErrInvalidQuoteRequest, amount)
	}

	prices := make(map[string]domain.TokenPrice)
	for _, p := range o.GetTokenPrices(ctx) {
		prices[p.Symbol] = p
	}
	fromPrice := prices[fromTok.Symbol].Price
	toPrice := prices[toTok.Symbol].Price
	if fromPrice <= 0 || toPrice <= 0 {
		return nil, fmt.Errorf("%w: no price for %s/%s", domain.ErrInvalidQuoteRequest, fromTok.Symbol, toTok.Symbol)
	}

	pFrom := decimal.NewFromFloat(fromPrice)
	pTo := decimal.NewFromFloat(toPrice)

	rate := pFrom.Div(pTo)
	usdValue := qty.Mul(pFrom)
	impact := decimal.Min(usdValue.Div(assumedLiquidityUSD).Mul(hundred), maxPriceImpact)

	return &domain.SwapQuote{
		FromSymbol:   fromTok.Symbol,
		ToSymbol:     toTok.Symbol,
		FromAmount:   amount,
		ToAmount:     qty.Mul(pFrom).Div(pTo).StringFixed(8),
		ExchangeRate: rate.StringFixed(8),
		PriceImpact:  impact.StringFixed(2),
		FromPriceUSD: fromPrice,
		ToPriceUSD:   toPrice,
		Route:        []string{fromTok.Symbol, toTok.Symbol},
		Venue:        SwapVenue,
		Timestamp:    o.now().UnixMilli(),
	}, nil
}
