package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mantle-yield-lab/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MANTLE_NETWORK", "MANTLE_RPC_URL", "MANTLE_WS_URL", "HTTP_ADDR",
		"LOG_LEVEL", "COINGECKO_API_KEY", "PRICE_CACHE_TTL",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, domain.NetworkMainnet, cfg.Network)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "https://mantle-rpc.publicnode.com", cfg.RPC.URL)
	assert.Equal(t, 60*time.Second, cfg.Oracle.CacheTTL)
	assert.Equal(t, 0, cfg.RPC.MaxRetries)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
network: mantle-testnet
http:
  addr: ":9000"
rpc:
  url: https://rpc.sepolia.mantle.xyz
  ws_url: wss://ws.sepolia.mantle.xyz
  max_retries: 2
oracle:
  cache_ttl: 30s
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.NetworkTestnet, cfg.Network)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "wss://ws.sepolia.mantle.xyz", cfg.RPC.WSURL)
	assert.Equal(t, 2, cfg.RPC.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Oracle.CacheTTL)
	assert.Equal(t, 8*time.Second, cfg.Oracle.SourceTimeout, "unset keys keep defaults")
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "rpc:\n  url: https://file.example\n")
	t.Setenv("MANTLE_NETWORK", "mantle-testnet")
	t.Setenv("MANTLE_RPC_URL", "https://env.example")
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("COINGECKO_API_KEY", "cg-key")
	t.Setenv("PRICE_CACHE_TTL", "2m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.NetworkTestnet, cfg.Network)
	assert.Equal(t, "https://env.example", cfg.RPC.URL)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "cg-key", cfg.Oracle.CoinGeckoAPIKey)
	assert.Equal(t, 2*time.Minute, cfg.Oracle.CacheTTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "unknown network", yaml: "network: mantle-devnet\n"},
		{name: "bad rpc scheme", yaml: "rpc:\n  url: ftp://x\n"},
		{name: "bad ws scheme", yaml: "rpc:\n  ws_url: https://x\n"},
		{name: "negative retries", yaml: "rpc:\n  max_retries: -1\n"},
		{name: "bad ttl env", env: map[string]string{"PRICE_CACHE_TTL": "soon"}},
		{name: "malformed yaml", yaml: "rpc: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
