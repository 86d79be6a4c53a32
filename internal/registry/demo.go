package registry

import (
	"github.com/shopspring/decimal"

	"mantle-yield-lab/internal/abi"
	"mantle-yield-lab/internal/adapter"
	"mantle-yield-lab/internal/domain"
)

// DemoAddress is answered with a fixed portfolio for offline demonstration.
const DemoAddress = "0x742d35Cc6634C0532925a3b844Bc9e7595f8bDe7"

// IsDemoAddress reports whether addr is the demo address.
func IsDemoAddress(addr string) bool {
	return domain.SameAddress(addr, DemoAddress)
}

// demoHoldings are the canned balances, one per built-in protocol.
var demoHoldings = []struct {
	protocolID string
	amount     string
}{
	{"meth", "25.5"},
	{"cmeth", "12"},
	{"lendle", "35000"},
	{"aurelius", "18500"},
	{"usd1", "20000"},
	{"ondo", "12385"},
}

// DemoPortfolio returns the canned portfolio (total $175,135.00).
func DemoPortfolio(network domain.Network) *domain.Portfolio {
	descs := make(map[string]adapter.Descriptor)
	for _, d := range adapter.Descriptors() {
		descs[d.ID] = d
	}

	positions := make([]domain.UserPosition, 0, len(demoHoldings))
	for _, h := range demoHoldings {
		d := descs[h.protocolID]
		raw, _ := abi.ParseUnits(h.amount, d.Asset.Decimals)
		amount := decimal.RequireFromString(h.amount)

		positions = append(positions, domain.UserPosition{
			ProtocolID:   d.ID,
			ProtocolName: d.Name,
			AssetSymbol:  d.Asset.Symbol,
			AssetName:    d.Asset.Name,
			AssetAddress: d.Asset.Address,
			Balance:      abi.FormatUnits(raw, d.Asset.Decimals),
			BalanceRaw:   raw.String(),
			APR:          d.PositionAPR,
			Value:        domain.FormatUSD(amount.Mul(d.ReferencePrice)),
			Network:      network,
		})
	}

	return &domain.Portfolio{
		Positions: positions,
		Summary:   Summarize(positions),
	}
}
