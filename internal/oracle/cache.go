package oracle

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"mantle-yield-lab/internal/domain"
	"mantle-yield-lab/internal/observability"
)

// PriceCache holds the latest TokenPrice per symbol. An entry is stale once
// now - timestamp exceeds the cache timeout; stale entries stay readable.
type PriceCache struct {
	store   *ristretto.Cache
	timeout time.Duration
}

// NewPriceCache creates a cache sized for a small, fixed symbol set.
func NewPriceCache(timeout time.Duration) (*PriceCache, error) {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        1_000,
		MaxCost:            1 << 20,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create price cache: %w", err)
	}
	return &PriceCache{store: store, timeout: timeout}, nil
}

// Get returns the cached price for symbol.
func (c *PriceCache) Get(symbol string) (domain.TokenPrice, bool) {
	v, ok := c.store.Get(symbol)
	if !ok {
		return domain.TokenPrice{}, false
	}
	p, ok := v.(domain.TokenPrice)
	return p, ok
}

// Fresh returns the cached price only if it is within the timeout at now.
func (c *PriceCache) Fresh(symbol string, now time.Time) (domain.TokenPrice, bool) {
	p, ok := c.Get(symbol)
	fresh := ok && now.UnixMilli()-p.Timestamp <= c.timeout.Milliseconds()
	observability.RecordCacheLookup(fresh)
	if !fresh {
		return domain.TokenPrice{}, false
	}
	return p, true
}

// setAttempts bounds retries of writes the store dropped under contention.
const setAttempts = 3

// SetAll overwrites every given price and waits until the writes are visible.
// Writes the store drops are retried; it returns how many were still dropped.
func (c *PriceCache) SetAll(prices []domain.TokenPrice) int {
	pending := prices
	for attempt := 0; attempt < setAttempts && len(pending) > 0; attempt++ {
		var dropped []domain.TokenPrice
		for _, p := range pending {
			if !c.store.Set(p.Symbol, p, 1) {
				dropped = append(dropped, p)
			}
		}
		c.store.Wait()
		pending = dropped
	}
	if len(pending) > 0 {
		observability.RecordCacheDrops(len(pending))
	}
	return len(pending)
}

// Close releases the cache's background goroutines.
func (c *PriceCache) Close() {
	c.store.Close()
}
