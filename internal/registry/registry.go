// Package registry owns the fixed adapter list, fans queries out across it
// and aggregates the results.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"mantle-yield-lab/internal/adapter"
	"mantle-yield-lab/internal/chain"
	"mantle-yield-lab/internal/domain"
)

// HeadSource supplies a recently observed block number.
type HeadSource interface {
	Latest() (uint64, bool)
}

// Registry aggregates every protocol adapter.
type Registry struct {
	client   chain.RPCClient
	network  domain.Network
	adapters []adapter.ProtocolAdapter
	byID     map[string]adapter.ProtocolAdapter
	heads    HeadSource
	log      logrus.FieldLogger
}

type options struct {
	log         logrus.FieldLogger
	heads       HeadSource
	adapterOpts []adapter.Option
}

// Option configures a Registry.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithHeadSource lets GetBlockNumber answer from a tracked head.
func WithHeadSource(h HeadSource) Option {
	return func(o *options) {
		o.heads = h
	}
}

// WithAdapterOptions passes options to the adapters built by Default.
func WithAdapterOptions(opts ...adapter.Option) Option {
	return func(o *options) {
		o.adapterOpts = append(o.adapterOpts, opts...)
	}
}

func buildOptions(opts []Option) options {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates a registry over adapters, kept in the given order.
func New(client chain.RPCClient, network domain.Network, adapters []adapter.ProtocolAdapter, opts ...Option) *Registry {
	return newRegistry(client, network, adapters, buildOptions(opts))
}

func newRegistry(client chain.RPCClient, network domain.Network, adapters []adapter.ProtocolAdapter, o options) *Registry {
	r := &Registry{
		client:   client,
		network:  network,
		adapters: adapters,
		byID:     make(map[string]adapter.ProtocolAdapter, len(adapters)),
		heads:    o.heads,
		log:      o.log.WithField("component", "registry"),
	}
	for _, a := range adapters {
		r.byID[a.Metadata().ID] = a
	}
	r.log.WithFields(logrus.Fields{"adapters": len(adapters), "network": network}).Info("registry initialized")
	return r
}

// Default creates a registry with the built-in protocols.
func Default(client chain.RPCClient, network domain.Network, opts ...Option) *Registry {
	o := buildOptions(opts)
	adapterOpts := append([]adapter.Option{adapter.WithLogger(o.log)}, o.adapterOpts...)

	descs := adapter.Descriptors()
	adapters := make([]adapter.ProtocolAdapter, 0, len(descs))
	for _, d := range descs {
		adapters = append(adapters, adapter.New(d, client, network, adapterOpts...))
	}
	return newRegistry(client, network, adapters, o)
}

// Network returns the configured network.
func (r *Registry) Network() domain.Network {
	return r.network
}

// ListSupportedProtocols returns every adapter's metadata in registration order.
func (r *Registry) ListSupportedProtocols() []domain.ProtocolMetadata {
	out := make([]domain.ProtocolMetadata, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a.Metadata())
	}
	return out
}

// Protocol returns the metadata for id.
func (r *Registry) Protocol(id string) (domain.ProtocolMetadata, error) {
	a, err := r.lookup(id)
	if err != nil {
		return domain.ProtocolMetadata{}, err
	}
	return a.Metadata(), nil
}

func (r *Registry) lookup(id string) (adapter.ProtocolAdapter, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrProtocolNotFound, id)
	}
	return a, nil
}

// GetUserPositions reads every protocol concurrently and aggregates.
// The demo address is answered from a canned portfolio without any reads.
func (r *Registry) GetUserPositions(ctx context.Context, owner string) (*domain.Portfolio, error) {
	if err := domain.ValidateAddress(owner); err != nil {
		return nil, err
	}

	if IsDemoAddress(owner) {
		r.log.WithField("owner", owner).Info("serving demo portfolio")
		return DemoPortfolio(r.network), nil
	}

	results := make([]adapter.PositionResult, len(r.adapters))
	var wg sync.WaitGroup
	for i, a := range r.adapters {
		wg.Add(1)
		go func(i int, a adapter.ProtocolAdapter) {
			defer wg.Done()
			results[i] = a.GetUserPositions(ctx, owner)
		}(i, a)
	}
	wg.Wait()

	portfolio := &domain.Portfolio{Positions: []domain.UserPosition{}}
	for i, res := range results {
		if res.Err != nil {
			portfolio.UnavailableProtocols = append(portfolio.UnavailableProtocols, r.adapters[i].Metadata().ID)
		}
		portfolio.Positions = append(portfolio.Positions, res.Positions...)
	}
	portfolio.Summary = Summarize(portfolio.Positions)

	r.log.WithFields(logrus.Fields{
		"owner":       owner,
		"positions":   len(portfolio.Positions),
		"total":       portfolio.Summary.TotalBalance,
		"unavailable": len(portfolio.UnavailableProtocols),
	}).Debug("positions aggregated")

	return portfolio, nil
}

// Summarize computes the total value, value-weighted APR and distinct
// protocol count of positions. An empty or zero-valued set yields 0 / 0.
func Summarize(positions []domain.UserPosition) domain.PortfolioSummary {
	total := decimal.Zero
	weighted := decimal.Zero
	protocols := make(map[string]struct{})

	for _, p := range positions {
		value, err := domain.ParseUSD(p.Value)
		if err != nil {
			continue
		}
		total = total.Add(value)
		weighted = weighted.Add(value.Mul(decimal.NewFromFloat(p.APR)))
		protocols[p.ProtocolID] = struct{}{}
	}

	var avg float64
	if total.IsPositive() {
		avg = weighted.Div(total).Round(2).InexactFloat64()
	}

	return domain.PortfolioSummary{
		TotalBalance:  domain.FormatUSD(total),
		AverageAPR:    avg,
		ProtocolCount: len(protocols),
	}
}

// GetPoolYields concatenates every adapter's static yields.
func (r *Registry) GetPoolYields() []domain.PoolYield {
	out := []domain.PoolYield{}
	for _, a := range r.adapters {
		out = append(out, a.GetPoolYields()...)
	}
	return out
}

// PoolYieldsFor returns the yields of one protocol.
func (r *Registry) PoolYieldsFor(id string) ([]domain.PoolYield, error) {
	a, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return a.GetPoolYields(), nil
}

// BuildDepositTx delegates to the adapter for protocolID.
func (r *Registry) BuildDepositTx(protocolID, owner, amount string) (*domain.BuiltTransaction, error) {
	a, err := r.lookup(protocolID)
	if err != nil {
		return nil, err
	}
	return a.BuildDepositTx(owner, amount)
}

// BuildWithdrawTx delegates to the adapter for protocolID.
func (r *Registry) BuildWithdrawTx(protocolID, owner, amount string) (*domain.BuiltTransaction, error) {
	a, err := r.lookup(protocolID)
	if err != nil {
		return nil, err
	}
	return a.BuildWithdrawTx(owner, amount)
}

// GetBlockNumber returns a fresh tracked head when available, else asks the node.
func (r *Registry) GetBlockNumber(ctx context.Context) (uint64, error) {
	if r.heads != nil {
		if n, fresh := r.heads.Latest(); fresh {
			return n, nil
		}
	}
	return r.client.GetBlockNumber(ctx)
}
