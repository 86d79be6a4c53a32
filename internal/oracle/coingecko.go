package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"mantle-yield-lab/internal/domain"
)

// DefaultCoinGeckoURL is the public CoinGecko API root.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGecko prices tokens by asset id through /simple/price.
type CoinGecko struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// CoinGeckoConfig configures the CoinGecko source.
type CoinGeckoConfig struct {
	BaseURL           string
	APIKey            string // sent as x-cg-demo-api-key when set
	RequestsPerMinute int
	Timeout           time.Duration
}

// NewCoinGecko creates a CoinGecko source. The public tier allows roughly
// 30 requests per minute; that is the default budget.
func NewCoinGecko(cfg CoinGeckoConfig) *CoinGecko {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultCoinGeckoURL
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &CoinGecko{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}
}

// Name implements Source.
func (c *CoinGecko) Name() domain.PriceSource {
	return domain.PriceSourceCoinGecko
}

type coinGeckoPrice struct {
	USD          *float64 `json:"usd"`
	USD24hChange *float64 `json:"usd_24h_change"`
}

// Fetch implements Source.
func (c *CoinGecko) Fetch(ctx context.Context, tokens []Token) (map[string]Quote, error) {
	bySymbol := make(map[string]string)
	ids := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.CoinGeckoID == "" {
			continue
		}
		bySymbol[t.Symbol] = t.CoinGeckoID
		ids = append(ids, t.CoinGeckoID)
	}
	if len(ids) == 0 {
		return map[string]Quote{}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result map[string]coinGeckoPrice
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	out := make(map[string]Quote, len(bySymbol))
	for symbol, id := range bySymbol {
		p, ok := result[id]
		if !ok || p.USD == nil || *p.USD <= 0 {
			continue
		}
		out[symbol] = Quote{Price: *p.USD, Change24h: p.USD24hChange}
	}
	return out, nil
}
