// Package config loads service configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mantle-yield-lab/internal/domain"
	"mantle-yield-lab/internal/logging"
)

// Config is the service configuration.
type Config struct {
	Network domain.Network `yaml:"network"`
	HTTP    HTTPConfig     `yaml:"http"`
	RPC     RPCConfig      `yaml:"rpc"`
	Oracle  OracleConfig   `yaml:"oracle"`
	Adapter AdapterConfig  `yaml:"adapter"`
	Logging logging.Config `yaml:"logging"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RPCConfig configures the chain endpoints.
type RPCConfig struct {
	URL        string        `yaml:"url"`
	WSURL      string        `yaml:"ws_url"` // optional newHeads subscription
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	HeadMaxAge time.Duration `yaml:"head_max_age"`
}

// OracleConfig configures price sources and the cache.
type OracleConfig struct {
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	SourceTimeout     time.Duration `yaml:"source_timeout"`
	CoinGeckoURL      string        `yaml:"coingecko_url"`
	CoinGeckoAPIKey   string        `yaml:"coingecko_api_key"`
	CoinGeckoRPM      int           `yaml:"coingecko_requests_per_minute"`
	DefiLlamaURL      string        `yaml:"defillama_url"`
	DisableLivePrices bool          `yaml:"disable_live_prices"`
}

// AdapterConfig configures protocol adapters.
type AdapterConfig struct {
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Network: domain.NetworkMainnet,
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		RPC: RPCConfig{
			URL:        "https://mantle-rpc.publicnode.com",
			Timeout:    15 * time.Second,
			HeadMaxAge: 15 * time.Second,
		},
		Oracle: OracleConfig{
			CacheTTL:      60 * time.Second,
			SourceTimeout: 8 * time.Second,
			CoinGeckoRPM:  30,
		},
		Adapter: AdapterConfig{
			CallTimeout: 10 * time.Second,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path (if it exists) over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := env("MANTLE_NETWORK"); v != "" {
		c.Network = domain.Network(v)
	}
	if v := env("MANTLE_RPC_URL"); v != "" {
		c.RPC.URL = v
	}
	if v := env("MANTLE_WS_URL"); v != "" {
		c.RPC.WSURL = v
	}
	if v := env("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := env("COINGECKO_API_KEY"); v != "" {
		c.Oracle.CoinGeckoAPIKey = v
	}
	if v := env("PRICE_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PRICE_CACHE_TTL: %w", err)
		}
		c.Oracle.CacheTTL = d
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	if _, err := domain.ParseNetwork(string(c.Network)); err != nil {
		return err
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.RPC.URL == "" {
		return fmt.Errorf("rpc.url is required")
	}
	if err := validURL(c.RPC.URL, "http", "https"); err != nil {
		return fmt.Errorf("rpc.url: %w", err)
	}
	if c.RPC.WSURL != "" {
		if err := validURL(c.RPC.WSURL, "ws", "wss"); err != nil {
			return fmt.Errorf("rpc.ws_url: %w", err)
		}
	}
	if c.RPC.MaxRetries < 0 {
		return fmt.Errorf("rpc.max_retries must not be negative")
	}
	if c.Oracle.CacheTTL <= 0 {
		return fmt.Errorf("oracle.cache_ttl must be greater than 0")
	}
	if c.Oracle.SourceTimeout <= 0 {
		return fmt.Errorf("oracle.source_timeout must be greater than 0")
	}
	return nil
}

func validURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%q must be an absolute %s URL", raw, strings.Join(schemes, "/"))
}
