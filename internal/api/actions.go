package api

import (
	"context"
	"fmt"
	"strconv"

	"mantle-yield-lab/internal/analytics"
	"mantle-yield-lab/internal/domain"
)

type actionFunc func(ctx context.Context, req *request) (interface{}, error)

func (s *Server) routes() map[string]actionFunc {
	return map[string]actionFunc{
		"listSupportedProtocols":    s.listSupportedProtocols,
		"getProtocolDetails":        s.getProtocolDetails,
		"getUserPositions":          s.getUserPositions,
		"getPoolYields":             s.getPoolYields,
		"getYieldHistory":           s.getYieldHistory,
		"getProtocolDistribution":   s.getProtocolDistribution,
		"getUserPerformanceHistory": s.getUserPerformanceHistory,
		"buildDepositTx":            s.buildDepositTx,
		"buildWithdrawTx":           s.buildWithdrawTx,
		"getBlockNumber":            s.getBlockNumber,
		"getTokenPrices":            s.getTokenPrices,
		"getSwapQuote":              s.getSwapQuote,
	}
}

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s", domain.ErrMissingParameter, name)
	}
	return nil
}

// percent renders an APR the way the dashboard expects, e.g. "4.5%".
func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

type protocolsResponse struct {
	Protocols []domain.ProtocolMetadata `json:"protocols"`
	Network   domain.Network            `json:"network"`
}

func (s *Server) listSupportedProtocols(_ context.Context, _ *request) (interface{}, error) {
	return protocolsResponse{
		Protocols: s.registry.ListSupportedProtocols(),
		Network:   s.registry.Network(),
	}, nil
}

type protocolDetailsResponse struct {
	Protocol domain.ProtocolMetadata `json:"protocol"`
	Yields   []domain.PoolYield      `json:"yields"`
}

func (s *Server) getProtocolDetails(_ context.Context, req *request) (interface{}, error) {
	if err := required("protocol", req.Protocol); err != nil {
		return nil, err
	}
	meta, err := s.registry.Protocol(req.Protocol)
	if err != nil {
		return nil, err
	}
	yields, err := s.registry.PoolYieldsFor(req.Protocol)
	if err != nil {
		return nil, err
	}
	return protocolDetailsResponse{Protocol: meta, Yields: yields}, nil
}

type assetView struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Balance string `json:"balance"`
	APR     string `json:"apr"`
	Value   string `json:"value"`
}

type protocolPositions struct {
	Protocol     string      `json:"protocol"`
	ProtocolType string      `json:"protocolType"`
	Color        string      `json:"color"`
	Assets       []assetView `json:"assets"`
}

type positionsResponse struct {
	Positions            []protocolPositions `json:"positions"`
	TotalBalance         string              `json:"totalBalance"`
	TotalYield           string              `json:"totalYield"`
	ProtocolCount        int                 `json:"protocolCount"`
	UnavailableProtocols []string            `json:"unavailableProtocols,omitempty"`
}

const (
	unknownProtocolType  = "Unknown"
	unknownProtocolColor = "from-gray-500 to-gray-600"
)

func (s *Server) getUserPositions(ctx context.Context, req *request) (interface{}, error) {
	if err := required("wallet", req.Wallet); err != nil {
		return nil, err
	}
	portfolio, err := s.registry.GetUserPositions(ctx, req.Wallet)
	if err != nil {
		return nil, err
	}

	// Group by protocol, keeping first-seen order.
	groups := []protocolPositions{}
	index := make(map[string]int)
	for _, p := range portfolio.Positions {
		i, ok := index[p.ProtocolID]
		if !ok {
			group := protocolPositions{
				Protocol:     p.ProtocolName,
				ProtocolType: unknownProtocolType,
				Color:        unknownProtocolColor,
				Assets:       []assetView{},
			}
			if meta, err := s.registry.Protocol(p.ProtocolID); err == nil {
				group.ProtocolType = string(meta.Type)
				group.Color = meta.Color
			}
			i = len(groups)
			index[p.ProtocolID] = i
			groups = append(groups, group)
		}
		groups[i].Assets = append(groups[i].Assets, assetView{
			Name:    p.AssetName,
			Symbol:  p.AssetSymbol,
			Balance: p.Balance,
			APR:     percent(p.APR),
			Value:   p.Value,
		})
	}

	return positionsResponse{
		Positions:            groups,
		TotalBalance:         portfolio.Summary.TotalBalance,
		TotalYield:           percent(portfolio.Summary.AverageAPR),
		ProtocolCount:        portfolio.Summary.ProtocolCount,
		UnavailableProtocols: portfolio.UnavailableProtocols,
	}, nil
}

type yieldsResponse struct {
	Yields []domain.PoolYield `json:"yields"`
}

func (s *Server) getPoolYields(_ context.Context, _ *request) (interface{}, error) {
	return yieldsResponse{Yields: s.registry.GetPoolYields()}, nil
}

type yieldHistoryResponse struct {
	History []analytics.YieldPoint `json:"history"`
}

func (s *Server) getYieldHistory(_ context.Context, _ *request) (interface{}, error) {
	return yieldHistoryResponse{History: s.analytics.YieldHistory(s.registry.ListSupportedProtocols())}, nil
}

type distributionResponse struct {
	Distribution []domain.DistributionEntry `json:"distribution"`
}

func (s *Server) getProtocolDistribution(_ context.Context, _ *request) (interface{}, error) {
	return distributionResponse{Distribution: analytics.Distribution(s.registry.ListSupportedProtocols())}, nil
}

type performanceResponse struct {
	History []analytics.PerformancePoint `json:"history"`
}

func (s *Server) getUserPerformanceHistory(ctx context.Context, req *request) (interface{}, error) {
	if err := required("wallet", req.Wallet); err != nil {
		return nil, err
	}
	portfolio, err := s.registry.GetUserPositions(ctx, req.Wallet)
	if err != nil {
		return nil, err
	}

	base := analytics.DefaultPerformanceBase
	if total, err := domain.ParseUSD(portfolio.Summary.TotalBalance); err == nil && total.IsPositive() {
		base = total.InexactFloat64()
	}
	return performanceResponse{History: s.analytics.PerformanceHistory(base)}, nil
}

type transactionResponse struct {
	Transaction *domain.BuiltTransaction `json:"transaction"`
}

// txParams validates the shared build parameters; wallet defaults to the zero address.
func txParams(req *request) (string, error) {
	if req.Protocol == "" || req.Amount == "" {
		return "", fmt.Errorf("%w: protocol and amount are required", domain.ErrMissingParameter)
	}
	if req.Wallet == "" {
		return domain.ZeroAddress, nil
	}
	if err := domain.ValidateAddress(req.Wallet); err != nil {
		return "", err
	}
	return req.Wallet, nil
}

func (s *Server) buildDepositTx(_ context.Context, req *request) (interface{}, error) {
	owner, err := txParams(req)
	if err != nil {
		return nil, err
	}
	tx, err := s.registry.BuildDepositTx(req.Protocol, owner, req.Amount)
	if err != nil {
		return nil, err
	}
	return transactionResponse{Transaction: tx}, nil
}

func (s *Server) buildWithdrawTx(_ context.Context, req *request) (interface{}, error) {
	owner, err := txParams(req)
	if err != nil {
		return nil, err
	}
	tx, err := s.registry.BuildWithdrawTx(req.Protocol, owner, req.Amount)
	if err != nil {
		return nil, err
	}
	return transactionResponse{Transaction: tx}, nil
}

type blockNumberResponse struct {
	BlockNumber string `json:"blockNumber"`
}

func (s *Server) getBlockNumber(ctx context.Context, _ *request) (interface{}, error) {
	n, err := s.registry.GetBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get block number: %w", err)
	}
	return blockNumberResponse{BlockNumber: strconv.FormatUint(n, 10)}, nil
}

type pricesResponse struct {
	Prices    []domain.TokenPrice `json:"prices"`
	Timestamp int64               `json:"timestamp"`
}

func (s *Server) getTokenPrices(ctx context.Context, _ *request) (interface{}, error) {
	return pricesResponse{
		Prices:    s.oracle.GetTokenPrices(ctx),
		Timestamp: s.now().UnixMilli(),
	}, nil
}

type quoteResponse struct {
	Quote *domain.SwapQuote `json:"quote"`
}

func (s *Server) getSwapQuote(ctx context.Context, req *request) (interface{}, error) {
	if req.FromSymbol == "" || req.ToSymbol == "" || req.Amount == "" {
		return nil, fmt.Errorf("%w: %w: fromSymbol, toSymbol and amount are required",
			domain.ErrInvalidQuoteRequest, domain.ErrMissingParameter)
	}
	quote, err := s.oracle.GetSwapQuote(ctx, req.FromSymbol, req.ToSymbol, req.Amount)
	if err != nil {
		return nil, err
	}
	return quoteResponse{Quote: quote}, nil
}
