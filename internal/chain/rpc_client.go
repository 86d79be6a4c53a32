package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"

	"mantle-yield-lab/internal/abi"
	"mantle-yield-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxRetries  = 0
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	chainID     int64
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
	log         logrus.FieldLogger
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries enables transport-level retries. RPC errors are never retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) ClientOption {
	return func(c *HTTPClient) {
		c.log = l
	}
}

// NewHTTPClient creates a new JSON-RPC client for the node at endpoint.
func NewHTTPClient(endpoint string, chainID int64, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		chainID:     chainID,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "rpc")
	return c
}

// ChainID returns the configured chain id.
func (c *HTTPClient) ChainID() int64 {
	return c.chainID
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// call performs one logical JSON-RPC call. The request id is fixed before
// any retry so a retried attempt reuses it rather than consuming a new one.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) (err error) {
	start := time.Now()
	defer func() {
		kind := ""
		var rpcErr *RPCError
		switch {
		case err == nil:
		case errors.As(err, &rpcErr):
			kind = "rpc"
		default:
			kind = "transport"
		}
		observability.RecordRPCCall(method, time.Since(start).Seconds(), kind)
	}()

	if params == nil {
		params = []interface{}{}
	}
	reqID := c.requestID.Add(1)
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
			c.log.WithFields(logrus.Fields{"method": method, "attempt": attempt}).Debug("retrying rpc call")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	if c.maxRetries == 0 {
		return fmt.Errorf("%s: %w", method, lastErr)
	}
	return fmt.Errorf("%s: max retries exceeded: %w", method, lastErr)
}

type callMsg struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// Call executes eth_call at the latest block.
func (c *HTTPClient) Call(ctx context.Context, to, data string) (string, error) {
	var result string
	if err := c.call(ctx, "eth_call", []interface{}{callMsg{To: to, Data: data}, "latest"}, &result); err != nil {
		return "", err
	}
	return result, nil
}

// GetBalance retrieves the native balance of addr.
func (c *HTTPClient) GetBalance(ctx context.Context, addr string) (*big.Int, error) {
	var result string
	if err := c.call(ctx, "eth_getBalance", []interface{}{addr, "latest"}, &result); err != nil {
		return nil, err
	}
	n, err := hexutil.DecodeBig(result)
	if err != nil {
		return nil, fmt.Errorf("decode balance %q: %w", result, err)
	}
	return n, nil
}

// GetBlockNumber retrieves the latest block number.
func (c *HTTPClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	var result string
	if err := c.call(ctx, "eth_blockNumber", nil, &result); err != nil {
		return 0, err
	}
	n, err := hexutil.DecodeUint64(result)
	if err != nil {
		return 0, fmt.Errorf("decode block number %q: %w", result, err)
	}
	return n, nil
}

// ReadERC20Balance reads balanceOf(owner) on token.
func (c *HTTPClient) ReadERC20Balance(ctx context.Context, token, owner string) (*big.Int, error) {
	result, err := c.Call(ctx, token, abi.EncodeCall(abi.SigBalanceOf, abi.Address(owner)))
	if err != nil {
		return nil, err
	}
	return abi.DecodeWord(result)
}

// ReadERC20Decimals reads decimals() on token, defaulting to 18.
func (c *HTTPClient) ReadERC20Decimals(ctx context.Context, token string) int {
	result, err := c.Call(ctx, token, abi.EncodeCall(abi.SigDecimals))
	if err != nil {
		c.log.WithError(err).WithField("token", token).Debug("decimals read failed, assuming 18")
		return DefaultDecimals
	}
	n, err := abi.DecodeWord(result)
	if err != nil || len(result) <= 2 || !n.IsInt64() || n.Int64() > 255 {
		return DefaultDecimals
	}
	return int(n.Int64())
}

// ReadERC20Symbol reads symbol() on token.
func (c *HTTPClient) ReadERC20Symbol(ctx context.Context, token string) string {
	result, err := c.Call(ctx, token, abi.EncodeCall(abi.SigSymbol))
	if err != nil {
		return abi.UnknownSymbol
	}
	return abi.DecodeShortString(result)
}
