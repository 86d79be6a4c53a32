package oracle

import "mantle-yield-lab/internal/domain"

// RuleKind is the kind of fallback applied when no source priced a symbol.
type RuleKind int

const (
	// RulePeg fixes the price at Value.
	RulePeg RuleKind = iota
	// RuleDerived prices the symbol as Base's price times Factor.
	RuleDerived
	// RuleEstimated uses Value as a last-resort estimate.
	RuleEstimated
)

// Rule is a per-symbol fallback.
type Rule struct {
	Kind   RuleKind
	Value  float64
	Base   string
	Factor float64
}

// DefaultRules returns the built-in fallback rules.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"USD1":  {Kind: RulePeg, Value: 1.00},
		"USDC":  {Kind: RulePeg, Value: 1.00},
		"USDT":  {Kind: RulePeg, Value: 1.00},
		"cmETH": {Kind: RuleDerived, Base: "mETH", Factor: 1.00},
		"mETH":  {Kind: RuleDerived, Base: "WETH", Factor: 1.05},
		"MNT":   {Kind: RuleEstimated, Value: 0.80},
		"WETH":  {Kind: RuleEstimated, Value: 2380},
		"USDY":  {Kind: RuleEstimated, Value: 1.05},
	}
}

// DefaultEstimate prices a symbol with no rule at all.
const DefaultEstimate = 1.00

// maxDerivationDepth stops cyclic derivation chains.
const maxDerivationDepth = 4

// resolveFallback prices symbol from rules, using already merged prices as
// bases for derivations.
func resolveFallback(symbol string, rules map[string]Rule, merged map[string]domain.TokenPrice, depth int) (float64, domain.PriceSource) {
	if p, ok := merged[symbol]; ok {
		return p.Price, p.Source
	}

	rule, ok := rules[symbol]
	if !ok {
		return DefaultEstimate, domain.PriceSourceEstimated
	}

	switch rule.Kind {
	case RulePeg:
		return rule.Value, domain.PriceSourcePeg
	case RuleDerived:
		if depth >= maxDerivationDepth {
			return DefaultEstimate, domain.PriceSourceEstimated
		}
		base, _ := resolveFallback(rule.Base, rules, merged, depth+1)
		return base * rule.Factor, domain.PriceSourceDerived
	default:
		return rule.Value, domain.PriceSourceEstimated
	}
}
