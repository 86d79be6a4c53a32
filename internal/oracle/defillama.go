package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mantle-yield-lab/internal/domain"
)

// DefaultDefiLlamaURL is the DefiLlama coins API root.
const DefaultDefiLlamaURL = "https://coins.llama.fi"

const defiLlamaChain = "mantle"

// DefiLlama prices tokens by contract address through /prices/current.
type DefiLlama struct {
	baseURL    string
	httpClient *http.Client
}

// NewDefiLlama creates a DefiLlama source. An empty baseURL uses the public API.
func NewDefiLlama(baseURL string, timeout time.Duration) *DefiLlama {
	if baseURL == "" {
		baseURL = DefaultDefiLlamaURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DefiLlama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Source.
func (d *DefiLlama) Name() domain.PriceSource {
	return domain.PriceSourceDefiLlama
}

type defiLlamaResponse struct {
	Coins map[string]defiLlamaCoin `json:"coins"`
}

type defiLlamaCoin struct {
	Price      float64 `json:"price"`
	Symbol     string  `json:"symbol"`
	Timestamp  int64   `json:"timestamp"`
	Confidence float64 `json:"confidence"`
}

func coinKey(address string) string {
	return defiLlamaChain + ":" + strings.ToLower(address)
}

// Fetch implements Source.
func (d *DefiLlama) Fetch(ctx context.Context, tokens []Token) (map[string]Quote, error) {
	if len(tokens) == 0 {
		return map[string]Quote{}, nil
	}

	keys := make([]string, 0, len(tokens))
	for _, t := range tokens {
		keys = append(keys, coinKey(t.Address))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/prices/current/"+strings.Join(keys, ","), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
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

	var result defiLlamaResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	// Response keys may come back checksummed; match case-insensitively.
	coins := make(map[string]defiLlamaCoin, len(result.Coins))
	for k, v := range result.Coins {
		coins[strings.ToLower(k)] = v
	}

	out := make(map[string]Quote)
	for _, t := range tokens {
		c, ok := coins[coinKey(t.Address)]
		if !ok || c.Price <= 0 {
			continue
		}
		out[t.Symbol] = Quote{Price: c.Price}
	}
	return out, nil
}
