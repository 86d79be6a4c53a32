// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Chain metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec
	HeadNumber     prometheus.Gauge
	WSReconnects   prometheus.Counter

	// Adapter metrics
	AdapterReadFailures *prometheus.CounterVec
	PositionsReturned   *prometheus.CounterVec
	TransactionsBuilt   *prometheus.CounterVec

	// Oracle metrics
	OracleRefreshes    *prometheus.CounterVec
	OracleRefreshTime  prometheus.Histogram
	PriceSourceFetches *prometheus.CounterVec
	FallbackPrices     *prometheus.CounterVec
	PriceCacheLookups  *prometheus.CounterVec
	PriceCacheDrops    prometheus.Counter

	// API metrics
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec

	// Health metrics
	UptimeSeconds prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mantle_yield_lab"
	}

	return &Metrics{
		// Chain metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed JSON-RPC calls by method and kind",
		}, []string{"method", "kind"}),
		HeadNumber: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "head_block_number",
			Help:      "Latest block number seen on the newHeads subscription",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "ws_reconnects_total",
			Help:      "Total number of websocket reconnect attempts",
		}),

		// Adapter metrics
		AdapterReadFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "read_failures_total",
			Help:      "Total number of swallowed position read failures by protocol",
		}, []string{"protocol"}),
		PositionsReturned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "positions_returned_total",
			Help:      "Total number of non-empty positions returned by protocol",
		}, []string{"protocol"}),
		TransactionsBuilt: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "transactions_built_total",
			Help:      "Total number of unsigned transactions built by protocol and type",
		}, []string{"protocol", "type"}),

		// Oracle metrics
		OracleRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "refreshes_total",
			Help:      "Total number of price refresh passes by status",
		}, []string{"status"}),
		OracleRefreshTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "refresh_duration_seconds",
			Help:      "Price refresh pass duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		PriceSourceFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "source_fetches_total",
			Help:      "Total number of price source fetches by source and status",
		}, []string{"source", "status"}),
		FallbackPrices: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "fallback_prices_total",
			Help:      "Total number of prices resolved by a fallback rule",
		}, []string{"rule"}),
		PriceCacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "cache_lookups_total",
			Help:      "Total number of price cache lookups by result",
		}, []string{"result"}),
		PriceCacheDrops: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "cache_dropped_writes_total",
			Help:      "Total number of price cache writes dropped after retries",
		}),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of dispatched requests by action and status",
		}, []string{"action", "status"}),
		HTTPRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_latency_seconds",
			Help:      "Dispatched request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),

		// Health metrics
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRPCCall records RPC call latency and, when kind is set, a failed call of that kind.
func RecordRPCCall(method string, seconds float64, kind string) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if kind != "" {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method, kind).Inc()
	}
}

// UpdateHeadNumber updates the head block gauge.
func UpdateHeadNumber(n uint64) {
	DefaultMetrics.HeadNumber.Set(float64(n))
}

// RecordWSReconnect increments the websocket reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordAdapterFailure records a swallowed adapter read failure.
func RecordAdapterFailure(protocol string) {
	DefaultMetrics.AdapterReadFailures.WithLabelValues(protocol).Inc()
}

// RecordPositions records the number of positions an adapter returned.
func RecordPositions(protocol string, n int) {
	if n > 0 {
		DefaultMetrics.PositionsReturned.WithLabelValues(protocol).Add(float64(n))
	}
}

// RecordTransactionBuilt records a built unsigned transaction.
func RecordTransactionBuilt(protocol, txType string) {
	DefaultMetrics.TransactionsBuilt.WithLabelValues(protocol, txType).Inc()
}

// RecordOracleRefresh records a refresh pass.
func RecordOracleRefresh(status string, durationSeconds float64) {
	DefaultMetrics.OracleRefreshes.WithLabelValues(status).Inc()
	DefaultMetrics.OracleRefreshTime.Observe(durationSeconds)
}

// RecordSourceFetch records a price source fetch outcome.
func RecordSourceFetch(source string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.PriceSourceFetches.WithLabelValues(source, status).Inc()
}

// RecordFallbackPrice records a price resolved by a fallback rule.
func RecordFallbackPrice(rule string) {
	DefaultMetrics.FallbackPrices.WithLabelValues(rule).Inc()
}

// RecordCacheLookup records a price cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.PriceCacheLookups.WithLabelValues(result).Inc()
}

// RecordCacheDrops records price cache writes that were not admitted.
func RecordCacheDrops(n int) {
	DefaultMetrics.PriceCacheDrops.Add(float64(n))
}

// RecordRequest records a dispatched API request.
func RecordRequest(action string, status int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(action, statusClass(status)).Inc()
	DefaultMetrics.HTTPRequestLatency.WithLabelValues(action).Observe(seconds)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// AddUptime adds elapsed seconds to the uptime counter.
func AddUptime(seconds float64) {
	DefaultMetrics.UptimeSeconds.Add(seconds)
}
