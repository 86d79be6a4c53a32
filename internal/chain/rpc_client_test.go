package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// newRPCServer answers every request with handler(req) as the JSON-RPC result.
func newRPCServer(t *testing.T, handler func(req rpcRequest) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  handler(req),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func word(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

func TestHTTPClient_Call(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		if req.Method != "eth_call" {
			t.Errorf("expected method eth_call, got %s", req.Method)
		}
		if len(req.Params) != 2 {
			t.Fatalf("expected 2 params, got %d", len(req.Params))
		}
		if req.Params[1] != "latest" {
			t.Errorf("expected block tag latest, got %v", req.Params[1])
		}
		msg, ok := req.Params[0].(map[string]interface{})
		if !ok {
			t.Fatalf("expected call object, got %T", req.Params[0])
		}
		if msg["to"] != "0xtoken" || msg["data"] != "0x313ce567" {
			t.Errorf("unexpected call object %v", msg)
		}
		return word(6)
	})
	defer server.Close()

	client := NewHTTPClient(server.URL, 5000)
	got, err := client.Call(context.Background(), "0xtoken", "0x313ce567")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != word(6) {
		t.Errorf("expected %s, got %s", word(6), got)
	}
	if client.ChainID() != 5000 {
		t.Errorf("expected chain id 5000, got %d", client.ChainID())
	}
}

func TestHTTPClient_RequestIDsIncrease(t *testing.T) {
	var mu sync.Mutex
	var ids []uint64

	server := newRPCServer(t, func(req rpcRequest) interface{} {
		mu.Lock()
		ids = append(ids, req.ID)
		mu.Unlock()
		return "0x1"
	})
	defer server.Close()

	client := NewHTTPClient(server.URL, 5000)
	for i := 0; i < 5; i++ {
		if _, err := client.GetBlockNumber(context.Background()); err != nil {
			t.Fatalf("GetBlockNumber: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Errorf("request ids not strictly increasing: %v", ids)
		}
	}
}

func TestHTTPClient_GetBlockNumber(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		if req.Method != "eth_blockNumber" {
			t.Errorf("expected method eth_blockNumber, got %s", req.Method)
		}
		if req.Params == nil || len(req.Params) != 0 {
			t.Errorf("expected empty params array, got %v", req.Params)
		}
		return "0x1b4"
	})
	defer server.Close()

	client := NewHTTPClient(server.URL, 5000)
	n, err := client.GetBlockNumber(context.Background())
	if err != nil {
		t.Fatalf("GetBlockNumber: %v", err)
	}
	if n != 436 {
		t.Errorf("expected 436, got %d", n)
	}
}

func TestHTTPClient_GetBalance(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		if req.Method != "eth_getBalance" {
			t.Errorf("expected method eth_getBalance, got %s", req.Method)
		}
		return "0xde0b6b3a7640000"
	})
	defer server.Close()

	client := NewHTTPClient(server.URL, 5000)
	bal, err := client.GetBalance(context.Background(), "0x742d35Cc6634C0532925a3b844Bc9e7595f8bDe7")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal.String() != "1000000000000000000" {
		t.Errorf("expected 1e18, got %s", bal)
	}
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32000, "message": "execution reverted"},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5000, WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	_, err := client.Call(context.Background(), "0xtoken", "0x")
	if err == nil {
		t.Fatal("expected error")
	}

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *RPCError, got %T", err)
	}
	if rpcErr.Code != -32000 {
		t.Errorf("expected code -32000, got %d", rpcErr.Code)
	}
	if requests.Load() != 1 {
		t.Errorf("expected 1 request, got %d", requests.Load())
	}
}

func TestHTTPClient_NoRetryByDefault(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5000)
	_, err := client.GetBlockNumber(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unexpected status 502") {
		t.Errorf("unexpected error: %v", err)
	}
	if requests.Load() != 1 {
		t.Errorf("expected 1 request, got %d", requests.Load())
	}
}

func TestHTTPClient_RetryKeepsRequestID(t *testing.T) {
	var mu sync.Mutex
	var ids []uint64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		mu.Lock()
		ids = append(ids, req.ID)
		attempt := len(ids)
		mu.Unlock()

		if attempt == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "0x10"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5000, WithMaxRetries(2), WithRetryDelay(time.Millisecond))
	n, err := client.GetBlockNumber(context.Background())
	if err != nil {
		t.Fatalf("GetBlockNumber: %v", err)
	}
	if n != 16 {
		t.Errorf("expected 16, got %d", n)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ids) != 2 || ids[0] != ids[1] {
		t.Errorf("expected two attempts with one id, got %v", ids)
	}
}

func TestHTTPClient_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5000)
	if _, err := client.Call(context.Background(), "0xtoken", "0x"); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestHTTPClient_ReadERC20(t *testing.T) {
	const token = "0x09Bc4E0D10E52467bde4D26bC7b4F0a684B8A1e0"
	symbol := "0x" +
		fmt.Sprintf("%064x", 32) +
		fmt.Sprintf("%064x", 4) +
		"55534443" + strings.Repeat("0", 56)

	server := newRPCServer(t, func(req rpcRequest) interface{} {
		msg := req.Params[0].(map[string]interface{})
		data := msg["data"].(string)
		switch {
		case strings.HasPrefix(data, "0x70a08231"):
			return word(35_000_000_000)
		case data == "0x313ce567":
			return word(6)
		case data == "0x95d89b41":
			return symbol
		}
		return "0x"
	})
	defer server.Close()

	client := NewHTTPClient(server.URL, 5000)
	ctx := context.Background()

	bal, err := client.ReadERC20Balance(ctx, token, "0x742d35Cc6634C0532925a3b844Bc9e7595f8bDe7")
	if err != nil {
		t.Fatalf("ReadERC20Balance: %v", err)
	}
	if bal.Int64() != 35_000_000_000 {
		t.Errorf("expected 35000000000, got %s", bal)
	}
	if d := client.ReadERC20Decimals(ctx, token); d != 6 {
		t.Errorf("expected 6 decimals, got %d", d)
	}
	if s := client.ReadERC20Symbol(ctx, token); s != "USDC" {
		t.Errorf("expected USDC, got %q", s)
	}
}

func TestHTTPClient_ReadERC20Defaults(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		return "0x"
	})
	defer server.Close()

	client := NewHTTPClient(server.URL, 5000)
	ctx := context.Background()

	bal, err := client.ReadERC20Balance(ctx, "0xtoken", "0x742d35Cc6634C0532925a3b844Bc9e7595f8bDe7")
	if err != nil {
		t.Fatalf("ReadERC20Balance: %v", err)
	}
	if bal.Sign() != 0 {
		t.Errorf("expected zero balance for empty result, got %s", bal)
	}
	if d := client.ReadERC20Decimals(ctx, "0xtoken"); d != 18 {
		t.Errorf("expected default 18 decimals, got %d", d)
	}
	if s := client.ReadERC20Symbol(ctx, "0xtoken"); s != "UNKNOWN" {
		t.Errorf("expected UNKNOWN, got %q", s)
	}
}

func TestHTTPClient_DecimalsOnTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5000)
	if d := client.ReadERC20Decimals(context.Background(), "0xtoken"); d != 18 {
		t.Errorf("expected default 18 decimals, got %d", d)
	}
}
