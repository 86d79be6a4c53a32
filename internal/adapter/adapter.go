// Package adapter normalizes per-protocol on-chain state into the common
// position, pool and transaction model.
package adapter

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"mantle-yield-lab/internal/abi"
	"mantle-yield-lab/internal/chain"
	"mantle-yield-lab/internal/domain"
	"mantle-yield-lab/internal/observability"
)

// ProtocolAdapter is the capability every protocol integration exposes.
type ProtocolAdapter interface {
	Metadata() domain.ProtocolMetadata
	GetUserPositions(ctx context.Context, owner string) PositionResult
	GetPoolYields() []domain.PoolYield
	BuildDepositTx(owner, amount string) (*domain.BuiltTransaction, error)
	BuildWithdrawTx(owner, amount string) (*domain.BuiltTransaction, error)
}

// PositionResult is the best-effort outcome of a position read.
// Positions is never nil. An empty list with a nil Err is a confirmed
// zero holding; an empty list with Err set means the read failed.
type PositionResult struct {
	Positions []domain.UserPosition
	Err       error
}

// Adapter is a ProtocolAdapter driven entirely by a Descriptor.
type Adapter struct {
	desc        Descriptor
	network     domain.Network
	client      chain.RPCClient
	encoder     abi.Encoder
	callTimeout time.Duration
	log         logrus.FieldLogger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithCallTimeout bounds each position read. Zero means no bound beyond ctx.
func WithCallTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		a.callTimeout = d
	}
}

// WithEncoder replaces the fixed selector table.
func WithEncoder(e abi.Encoder) Option {
	return func(a *Adapter) {
		a.encoder = e
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Adapter) {
		a.log = l
	}
}

// New builds an adapter for desc on network.
func New(desc Descriptor, client chain.RPCClient, network domain.Network, opts ...Option) *Adapter {
	a := &Adapter{
		desc:    desc,
		network: network,
		client:  client,
		encoder: abi.FixedTable{},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithFields(logrus.Fields{"component": "adapter", "protocol": desc.ID})
	return a
}

// ID returns the protocol id.
func (a *Adapter) ID() string {
	return a.desc.ID
}

// Metadata returns the static protocol descriptor.
func (a *Adapter) Metadata() domain.ProtocolMetadata {
	return domain.ProtocolMetadata{
		ID:      a.desc.ID,
		Name:    a.desc.Name,
		Type:    a.desc.Type,
		Network: a.network,
		TVL:     a.desc.TVL,
		APY:     a.desc.APY,
		Color:   a.desc.Color,
	}
}

// GetPoolYields returns the static pool descriptor. No network access.
func (a *Adapter) GetPoolYields() []domain.PoolYield {
	return []domain.PoolYield{{
		ProtocolID:   a.desc.ID,
		ProtocolName: a.desc.Name,
		PoolName:     a.desc.Pool.Name,
		AssetSymbol:  a.desc.Asset.Symbol,
		AssetAddress: a.desc.Asset.Address,
		APR:          a.desc.PositionAPR,
		Underlying:   a.desc.Pool.Underlying,
		RiskLevel:    a.desc.Pool.Risk,
		TVL:          a.desc.TVL,
	}}
}

// GetUserPositions reads the owner's holding. Read failures are logged and
// reported through PositionResult.Err, never returned as an error.
func (a *Adapter) GetUserPositions(ctx context.Context, owner string) PositionResult {
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}

	var (
		pos *domain.UserPosition
		err error
	)
	switch a.desc.Source.Kind {
	case SourceERC20:
		pos, err = a.readERC20(ctx, owner)
	case SourceProxy:
		pos, err = a.readProxy(ctx, owner)
	default:
		a.log.WithField("owner", owner).Debug("no on-chain position source")
	}

	if err != nil {
		a.log.WithError(err).WithField("owner", owner).Warn("position read failed")
		observability.RecordAdapterFailure(a.desc.ID)
		return PositionResult{Positions: []domain.UserPosition{}, Err: err}
	}
	if pos == nil {
		return PositionResult{Positions: []domain.UserPosition{}}
	}

	observability.RecordPositions(a.desc.ID, 1)
	return PositionResult{Positions: []domain.UserPosition{*pos}}
}

func (a *Adapter) readERC20(ctx context.Context, owner string) (*domain.UserPosition, error) {
	token := a.desc.Asset.Address

	var (
		raw      *big.Int
		decimals int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		raw, err = a.client.ReadERC20Balance(gctx, token, owner)
		if err != nil {
			return fmt.Errorf("read %s balance: %w", a.desc.Asset.Symbol, err)
		}
		return nil
	})
	g.Go(func() error {
		decimals = a.client.ReadERC20Decimals(gctx, token)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if raw.Sign() == 0 {
		return nil, nil
	}

	balance := abi.FormatUnits(raw, decimals)
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}

	a.log.WithFields(logrus.Fields{"owner": owner, "balance": balance}).Debug("position read")
	return a.position(balance, raw, amount.Mul(a.desc.ReferencePrice)), nil
}

// readProxy derives a synthetic holding from an unrelated token balance.
// This approximates a vault read that does not exist yet.
func (a *Adapter) readProxy(ctx context.Context, owner string) (*domain.UserPosition, error) {
	src := a.desc.Source

	proxyRaw, err := a.client.ReadERC20Balance(ctx, src.Token, owner)
	if err != nil {
		return nil, fmt.Errorf("read proxy balance: %w", err)
	}
	proxy, err := decimal.NewFromString(abi.FormatUnits(proxyRaw, src.TokenDecimals))
	if err != nil {
		return nil, fmt.Errorf("parse proxy balance: %w", err)
	}

	derived := proxy.Mul(src.Ratio).Round(2)
	if !derived.IsPositive() {
		return nil, nil
	}

	raw, err := abi.ParseUnits(derived.StringFixed(2), a.desc.Asset.Decimals)
	if err != nil {
		return nil, err
	}
	balance := abi.FormatUnits(raw, a.desc.Asset.Decimals)

	a.log.WithFields(logrus.Fields{"owner": owner, "balance": balance}).Debug("proxy position derived")
	return a.position(balance, raw, derived.Mul(a.desc.ReferencePrice)), nil
}

func (a *Adapter) position(balance string, raw *big.Int, value decimal.Decimal) *domain.UserPosition {
	return &domain.UserPosition{
		ProtocolID:   a.desc.ID,
		ProtocolName: a.desc.Name,
		AssetSymbol:  a.desc.Asset.Symbol,
		AssetName:    a.desc.Asset.Name,
		AssetAddress: a.desc.Asset.Address,
		Balance:      balance,
		BalanceRaw:   raw.String(),
		APR:          a.desc.PositionAPR,
		Value:        domain.FormatUSD(value),
		Network:      a.network,
	}
}

// BuildDepositTx builds the unsigned deposit transaction.
func (a *Adapter) BuildDepositTx(owner, amount string) (*domain.BuiltTransaction, error) {
	return a.build(a.desc.Deposit, domain.TxTypeDeposit, amount)
}

// BuildWithdrawTx builds the unsigned withdraw transaction.
func (a *Adapter) BuildWithdrawTx(owner, amount string) (*domain.BuiltTransaction, error) {
	return a.build(a.desc.Withdraw, domain.TxTypeWithdraw, amount)
}

func (a *Adapter) build(spec CallSpec, txType domain.TxType, amount string) (*domain.BuiltTransaction, error) {
	raw, err := abi.ParseUnits(amount, a.desc.Asset.Decimals)
	if err != nil {
		return nil, err
	}
	if raw.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %q", abi.ErrMalformedAmount, amount)
	}

	tx := &domain.BuiltTransaction{
		To:       a.desc.Target,
		Value:    "0",
		ChainID:  a.network.ChainID(),
		GasLimit: strconv.FormatUint(spec.GasLimit, 10),
		Type:     txType,
	}
	if spec.Payable {
		tx.Data = a.encoder.EncodeCall(spec.Signature)
		tx.Value = raw.String()
	} else {
		tx.Data = a.encoder.EncodeCall(spec.Signature, abi.Uint(raw))
	}

	observability.RecordTransactionBuilt(a.desc.ID, string(txType))
	return tx, nil
}
