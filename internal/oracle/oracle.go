// Package oracle prices the tracked tokens by merging two price sources
// behind a time-bounded cache, falling back to pegs, derivations and estimates.
package oracle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"mantle-yield-lab/internal/domain"
	"mantle-yield-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultCacheTimeout  = 60 * time.Second
	DefaultSourceTimeout = 8 * time.Second
)

// Config configures an Oracle.
type Config struct {
	CacheTimeout  time.Duration
	SourceTimeout time.Duration
	Tokens        []Token
}

// Oracle is the process-wide price oracle. Construct once and share.
type Oracle struct {
	cfg     Config
	cache   *PriceCache
	sources []Source
	rules   map[string]Rule
	now     func() time.Time
	log     logrus.FieldLogger
	group   singleflight.Group
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithSources sets the price sources in priority order.
func WithSources(sources ...Source) Option {
	return func(o *Oracle) {
		o.sources = sources
	}
}

// WithRules replaces the fallback rules.
func WithRules(rules map[string]Rule) Option {
	return func(o *Oracle) {
		o.rules = rules
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Oracle) {
		o.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Oracle) {
		o.log = l
	}
}

// New creates an oracle. Zero config values take the defaults.
func New(cfg Config, opts ...Option) (*Oracle, error) {
	if cfg.CacheTimeout <= 0 {
		cfg.CacheTimeout = DefaultCacheTimeout
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = DefaultSourceTimeout
	}
	if len(cfg.Tokens) == 0 {
		cfg.Tokens = DefaultTokens()
	}

	cache, err := NewPriceCache(cfg.CacheTimeout)
	if err != nil {
		return nil, err
	}

	o := &Oracle{
		cfg:   cfg,
		cache: cache,
		rules: DefaultRules(),
		now:   time.Now,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.WithField("component", "oracle")
	return o, nil
}

// Close releases the cache.
func (o *Oracle) Close() {
	o.cache.Close()
}

// Tokens returns the tracked tokens.
func (o *Oracle) Tokens() []Token {
	return o.cfg.Tokens
}

// Token looks up a tracked token by symbol, case-insensitively.
func (o *Oracle) Token(symbol string) (Token, error) {
	for _, t := range o.cfg.Tokens {
		if t.Symbol == symbol {
			return t, nil
		}
	}
	for _, t := range o.cfg.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, nil
		}
	}
	return Token{}, fmt.Errorf("%w: %q", domain.ErrUnknownSymbol, symbol)
}

// GetTokenPrices returns a price for every tracked token in tracked order.
// When any entry is missing or stale, all symbols are refreshed in one pass.
// Concurrent callers share a single in-flight refresh.
func (o *Oracle) GetTokenPrices(ctx context.Context) []domain.TokenPrice {
	if prices, ok := o.cached(); ok {
		return clonePrices(prices)
	}

	v, _, shared := o.group.Do("refresh", func() (interface{}, error) {
		// Re-check: another caller may have refreshed while we queued.
		if prices, ok := o.cached(); ok {
			return prices, nil
		}
		return o.refresh(ctx), nil
	})
	if shared {
		o.log.Debug("joined in-flight refresh")
	}
	return clonePrices(v.([]domain.TokenPrice))
}

// clonePrices gives each caller its own slice so a joined refresh is not shared.
func clonePrices(prices []domain.TokenPrice) []domain.TokenPrice {
	out := make([]domain.TokenPrice, len(prices))
	for i, p := range prices {
		if p.Change24h != nil {
			c := *p.Change24h
			p.Change24h = &c
		}
		out[i] = p
	}
	return out
}

func (o *Oracle) cached() ([]domain.TokenPrice, bool) {
	now := o.now()
	out := make([]domain.TokenPrice, 0, len(o.cfg.Tokens))
	for _, t := range o.cfg.Tokens {
		p, ok := o.cache.Fresh(t.Symbol, now)
		if !ok {
			return nil, false
		}
		out = append(out, p)
	}
	return out, true
}

// refresh queries every source concurrently and merges per symbol:
// first source with a price wins, then the fallback rule.
func (o *Oracle) refresh(ctx context.Context) []domain.TokenPrice {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.SourceTimeout)
	defer cancel()

	results := make([]map[string]Quote, len(o.sources))
	var wg sync.WaitGroup
	for i, src := range o.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			quotes, err := src.Fetch(ctx, o.cfg.Tokens)
			observability.RecordSourceFetch(string(src.Name()), err)
			if err != nil {
				o.log.WithError(err).WithField("source", src.Name()).Warn("price source failed")
				return
			}
			results[i] = quotes
		}(i, src)
	}
	wg.Wait()

	ts := o.now().UnixMilli()
	merged := make(map[string]domain.TokenPrice, len(o.cfg.Tokens))
	for _, t := range o.cfg.Tokens {
		for i, src := range o.sources {
			q, ok := results[i][t.Symbol]
			if !ok || q.Price <= 0 {
				continue
			}
			merged[t.Symbol] = domain.TokenPrice{
				Symbol:    t.Symbol,
				Address:   t.Address,
				Price:     q.Price,
				Source:    src.Name(),
				Timestamp: ts,
				Change24h: q.Change24h,
			}
			break
		}
	}

	// Fallbacks resolve in tracked order so derivations see live bases first.
	fallbacks := 0
	for _, t := range o.cfg.Tokens {
		if _, ok := merged[t.Symbol]; ok {
			continue
		}
		price, source := resolveFallback(t.Symbol, o.rules, merged, 0)
		merged[t.Symbol] = domain.TokenPrice{
			Symbol:    t.Symbol,
			Address:   t.Address,
			Price:     price,
			Source:    source,
			Timestamp: ts,
		}
		observability.RecordFallbackPrice(string(source))
		fallbacks++
	}

	prices := make([]domain.TokenPrice, 0, len(o.cfg.Tokens))
	for _, t := range o.cfg.Tokens {
		prices = append(prices, merged[t.Symbol])
	}
	if dropped := o.cache.SetAll(prices); dropped > 0 {
		o.log.WithField("dropped", dropped).Warn("price cache dropped writes")
	}

	status := "ok"
	if fallbacks == len(prices) && len(prices) > 0 {
		status = "fallback_only"
	}
	observability.RecordOracleRefresh(status, time.Since(start).Seconds())
	o.log.WithFields(logrus.Fields{"symbols": len(prices), "fallbacks": fallbacks}).Info("prices refreshed")

	return prices
}
