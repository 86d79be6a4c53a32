package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mantle-yield-lab/internal/analytics"
	"mantle-yield-lab/internal/chain/stub"
	"mantle-yield-lab/internal/domain"
	"mantle-yield-lab/internal/oracle"
	"mantle-yield-lab/internal/registry"
)

const wallet = "0x1111111111111111111111111111111111111111"

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	rpc     *stub.RPCClient
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	now := func() time.Time { return fixedNow }

	rpc := stub.NewRPCClient()
	reg := registry.Default(rpc, domain.NetworkMainnet, registry.WithLogger(logger))

	// No live sources: every price comes from the fallback rules.
	prices, err := oracle.New(oracle.Config{}, oracle.WithClock(now), oracle.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(prices.Close)

	srv := NewServer(reg, prices,
		WithLogger(logger),
		WithClock(now),
		WithGenerator(analytics.NewGenerator(rand.New(rand.NewSource(1)), now)),
	)
	return &fixture{rpc: rpc, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestListSupportedProtocols(t *testing.T) {
	f := newFixture(t)
	rec, out := f.do(t, http.MethodGet, "/?action=listSupportedProtocols", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	assert.Equal(t, "mantle-mainnet", out["network"])
	protocols := out["protocols"].([]interface{})
	require.Len(t, protocols, 6)
	assert.Equal(t, "meth", protocols[0].(map[string]interface{})["id"])
}

func TestMountedUnderMantleSDK(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, http.MethodGet, "/mantle-sdk?action=getPoolYields", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPreflight(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, http.MethodOptions, "/?action=getUserPositions", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, rec.Body.Len())
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestRequestIDPropagated(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/?action=getPoolYields", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestUnknownAction(t *testing.T) {
	f := newFixture(t)
	rec, out := f.do(t, http.MethodGet, "/?action=mintMoney", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown action: mintMoney", out["error"])
}

func TestGetProtocolDetails(t *testing.T) {
	f := newFixture(t)

	rec, out := f.do(t, http.MethodGet, "/?action=getProtocolDetails&protocol=lendle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lendle", out["protocol"].(map[string]interface{})["name"])
	yields := out["yields"].([]interface{})
	require.Len(t, yields, 1)
	assert.Equal(t, "USDC Lending Pool", yields[0].(map[string]interface{})["poolName"])

	rec, _ = f.do(t, http.MethodGet, "/?action=getProtocolDetails", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = f.do(t, http.MethodPost, "/?action=getProtocolDetails", `{"protocol":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, out["error"], "protocol not found")
}

func TestGetUserPositions_Demo(t *testing.T) {
	f := newFixture(t)
	rec, out := f.do(t, http.MethodGet, "/?action=getUserPositions&wallet="+registry.DemoAddress, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "$175,135.00", out["totalBalance"])
	assert.Equal(t, "5.17%", out["totalYield"])
	assert.Equal(t, float64(6), out["protocolCount"])
	assert.NotContains(t, out, "unavailableProtocols")
	assert.Equal(t, 0, f.rpc.Calls())

	positions := out["positions"].([]interface{})
	require.Len(t, positions, 6)
	first := positions[0].(map[string]interface{})
	assert.Equal(t, "mETH Protocol", first["protocol"])
	assert.Equal(t, "Liquid Staking", first["protocolType"])
	assert.Equal(t, "from-primary to-primary/60", first["color"])

	assets := first["assets"].([]interface{})
	require.Len(t, assets, 1)
	asset := assets[0].(map[string]interface{})
	assert.Equal(t, "mETH", asset["symbol"])
	assert.Equal(t, "25.5", asset["balance"])
	assert.Equal(t, "4.5%", asset["apr"])
	assert.Equal(t, "$60,690.00", asset["value"])
}

func TestGetUserPositions_EmptyWallet(t *testing.T) {
	f := newFixture(t)
	rec, out := f.do(t, http.MethodGet, "/?action=getUserPositions&wallet="+wallet, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, out["positions"])
	assert.Equal(t, "$0.00", out["totalBalance"])
	assert.Equal(t, "0%", out["totalYield"])
	assert.Equal(t, float64(0), out["protocolCount"])
}

func TestGetUserPositions_ReportsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.rpc.Fail(wallet, errors.New("node down"))

	rec, out := f.do(t, http.MethodGet, "/?action=getUserPositions&wallet="+wallet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, out["unavailableProtocols"])
}

func TestGetUserPositions_BadWallet(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/?action=getUserPositions", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := f.do(t, http.MethodGet, "/?action=getUserPositions&wallet=0xabc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, out["error"], "invalid address")
}

func TestBuildDepositTx(t *testing.T) {
	f := newFixture(t)
	rec, out := f.do(t, http.MethodPost, "/?action=buildDepositTx",
		`{"protocol":"lendle","asset":"USDC","amount":"100","wallet":"`+wallet+`"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	tx := out["transaction"].(map[string]interface{})
	assert.Equal(t, "0xb6b55f25"+strings.Repeat("0", 57)+"5f5e100", tx["data"])
	assert.Equal(t, "0", tx["value"])
	assert.Equal(t, "200000", tx["gasLimit"])
	assert.Equal(t, float64(5000), tx["chainId"])
	assert.Equal(t, "deposit", tx["type"])
}

func TestBuildWithdrawTx_DefaultsWallet(t *testing.T) {
	f := newFixture(t)
	rec, out := f.do(t, http.MethodPost, "/?action=buildWithdrawTx", `{"protocol":"meth","amount":"1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	tx := out["transaction"].(map[string]interface{})
	assert.True(t, strings.HasPrefix(tx["data"].(string), "0x2e1a7d4d"))
	assert.Equal(t, "withdraw", tx["type"])
}

func TestBuildTx_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing amount", `{"protocol":"lendle"}`, http.StatusBadRequest},
		{"missing protocol", `{"amount":"1"}`, http.StatusBadRequest},
		{"unknown protocol", `{"protocol":"nope","amount":"1"}`, http.StatusNotFound},
		{"malformed amount", `{"protocol":"lendle","amount":"1.2.3"}`, http.StatusBadRequest},
		{"zero amount", `{"protocol":"lendle","amount":"0"}`, http.StatusBadRequest},
		{"bad wallet", `{"protocol":"lendle","amount":"1","wallet":"nope"}`, http.StatusBadRequest},
		{"malformed body", `{"protocol":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := f.do(t, http.MethodPost, "/?action=buildDepositTx", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestGetBlockNumber(t *testing.T) {
	f := newFixture(t)
	f.rpc.BlockNumber = 71_234_567

	rec, out := f.do(t, http.MethodGet, "/?action=getBlockNumber", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "71234567", out["blockNumber"])

	f.rpc.BlockErr = errors.New("connection refused")
	rec, out = f.do(t, http.MethodGet, "/?action=getBlockNumber", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, out["error"], "connection refused")
}

func TestGetTokenPrices(t *testing.T) {
	f := newFixture(t)
	rec, out := f.do(t, http.MethodGet, "/?action=getTokenPrices", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(fixedNow.UnixMilli()), out["timestamp"])
	prices := out["prices"].([]interface{})
	require.Len(t, prices, len(oracle.DefaultTokens()))

	for _, p := range prices {
		entry := p.(map[string]interface{})
		if entry["symbol"] == "USDC" {
			assert.Equal(t, 1.0, entry["price"])
			assert.Equal(t, "peg", entry["source"])
		}
	}
}

func TestGetSwapQuote(t *testing.T) {
	f := newFixture(t)

	rec, out := f.do(t, http.MethodGet, "/?action=getSwapQuote&fromSymbol=USDC&toSymbol=USDT&amount=250", "")
	require.Equal(t, http.StatusOK, rec.Code)
	quote := out["quote"].(map[string]interface{})
	assert.Equal(t, "250.00000000", quote["toAmount"])
	assert.Equal(t, "1.00000000", quote["exchangeRate"])
	assert.Equal(t, "Mantle DEX Aggregator", quote["venue"])

	rec, _ = f.do(t, http.MethodGet, "/?action=getSwapQuote&fromSymbol=USDC&toSymbol=DOGE&amount=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/?action=getSwapQuote&fromSymbol=USDC&toSymbol=USDT&amount=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/?action=getSwapQuote&fromSymbol=USDC", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSwapQuote_MissingParamsIsInvalidQuote(t *testing.T) {
	logger, _ := test.NewNullLogger()
	prices, err := oracle.New(oracle.Config{}, oracle.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(prices.Close)
	srv := NewServer(registry.Default(stub.NewRPCClient(), domain.NetworkMainnet, registry.WithLogger(logger)), prices, WithLogger(logger))

	for _, req := range []*request{
		{ToSymbol: "USDT", Amount: "1"},
		{FromSymbol: "USDC", Amount: "1"},
		{FromSymbol: "USDC", ToSymbol: "USDT"},
	} {
		_, err := srv.getSwapQuote(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrInvalidQuoteRequest)
		assert.ErrorIs(t, err, domain.ErrMissingParameter)
		assert.Equal(t, http.StatusBadRequest, statusFor(err))
	}
}

func TestAnalyticsActions(t *testing.T) {
	f := newFixture(t)

	rec, out := f.do(t, http.MethodGet, "/?action=getYieldHistory", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := out["history"].([]interface{})
	require.Len(t, history, analytics.HistoryDays+1)
	assert.Contains(t, history[0], "Lendle")
	assert.Equal(t, "2026-03-15", history[analytics.HistoryDays].(map[string]interface{})["date"])

	rec, out = f.do(t, http.MethodGet, "/?action=getProtocolDistribution", "")
	require.Equal(t, http.StatusOK, rec.Code)
	dist := out["distribution"].([]interface{})
	require.Len(t, dist, 6)
	assert.Equal(t, float64(245_000_000), dist[0].(map[string]interface{})["value"])
}

func TestGetUserPerformanceHistory(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/?action=getUserPerformanceHistory", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// An empty wallet seeds the series from the default base.
	rec, out := f.do(t, http.MethodGet, "/?action=getUserPerformanceHistory&wallet="+wallet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := out["history"].([]interface{})
	require.Len(t, history, analytics.HistoryDays+1)
	first := history[0].(map[string]interface{})["value"].(float64)
	assert.InDelta(t, analytics.DefaultPerformanceBase, first, 250)

	rec, out = f.do(t, http.MethodGet, "/?action=getUserPerformanceHistory&wallet="+registry.DemoAddress, "")
	require.Equal(t, http.StatusOK, rec.Code)
	first = out["history"].([]interface{})[0].(map[string]interface{})["value"].(float64)
	assert.InDelta(t, 175_135.0, first, 250)
}

func TestAccessLogCarriesRequestID(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rpc := stub.NewRPCClient()
	prices, err := oracle.New(oracle.Config{}, oracle.WithLogger(logger))
	require.NoError(t, err)
	defer prices.Close()

	srv := NewServer(registry.Default(rpc, domain.NetworkMainnet, registry.WithLogger(logger)), prices, WithLogger(logger))
	req := httptest.NewRequest(http.MethodGet, "/?action=listSupportedProtocols", nil)
	req.Header.Set(RequestIDHeader, "abc")
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "request", entry.Message)
	assert.Equal(t, "abc", entry.Data["request_id"])
	assert.Equal(t, "listSupportedProtocols", entry.Data["action"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
}
