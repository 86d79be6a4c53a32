// Package main runs the yield aggregation API:
// - chain reads over JSON-RPC, optional newHeads tracking over websocket
// - protocol registry and price oracle behind the action dispatcher
// - /health, /metrics and /status for operations
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"mantle-yield-lab/internal/adapter"
	"mantle-yield-lab/internal/api"
	"mantle-yield-lab/internal/chain"
	"mantle-yield-lab/internal/config"
	"mantle-yield-lab/internal/logging"
	"mantle-yield-lab/internal/observability"
	"mantle-yield-lab/internal/oracle"
	"mantle-yield-lab/internal/registry"
)

// Server holds all components of the service.
type Server struct {
	cfg    *config.Config
	logger *logrus.Logger

	rpc      *chain.HTTPClient
	ws       *chain.WSClient
	heads    *chain.HeadTracker
	registry *registry.Registry
	oracle   *oracle.Oracle

	mu       sync.Mutex
	started  time.Time
	headsErr error
}

func main() {
	// Load .env file if exists; existing env vars win.
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "Path to YAML config (optional)")
	httpAddr := flag.String("http-addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		logrus.WithError(err).Fatal("create logger")
	}
	log := logging.Component(logger, "server")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := newServer(ctx, cfg, logger)
	if err != nil {
		log.WithError(err).Fatal("create server")
	}
	defer server.oracle.Close()

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig.String()).Warn("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(cfg.HTTP.ShutdownTimeout + 5*time.Second):
			log.Error("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.Run(ctx)
	close(done)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("server error")
	}
	log.Info("shutdown complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newServer wires the chain client, head tracking, registry and oracle.
func newServer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger, started: time.Now()}

	s.rpc = chain.NewHTTPClient(cfg.RPC.URL, cfg.Network.ChainID(),
		chain.WithTimeout(cfg.RPC.Timeout),
		chain.WithMaxRetries(cfg.RPC.MaxRetries),
		chain.WithLogger(logger),
	)

	regOpts := []registry.Option{
		registry.WithLogger(logger),
		registry.WithAdapterOptions(
			adapter.WithCallTimeout(cfg.Adapter.CallTimeout),
			adapter.WithLogger(logger),
		),
	}
	if cfg.RPC.WSURL != "" {
		ws, err := chain.NewWSClient(ctx, cfg.RPC.WSURL, nil, logger)
		if err != nil {
			// Head tracking is optional; block numbers fall back to RPC.
			logging.Component(logger, "server").WithError(err).Warn("websocket unavailable, head tracking disabled")
		} else {
			s.ws = ws
			s.heads = chain.NewHeadTracker(ws, cfg.RPC.HeadMaxAge, logger)
			regOpts = append(regOpts, registry.WithHeadSource(s.heads))
		}
	}
	s.registry = registry.Default(s.rpc, cfg.Network, regOpts...)

	var sources []oracle.Source
	if !cfg.Oracle.DisableLivePrices {
		sources = []oracle.Source{
			oracle.NewCoinGecko(oracle.CoinGeckoConfig{
				BaseURL:           cfg.Oracle.CoinGeckoURL,
				APIKey:            cfg.Oracle.CoinGeckoAPIKey,
				RequestsPerMinute: cfg.Oracle.CoinGeckoRPM,
				Timeout:           cfg.Oracle.SourceTimeout,
			}),
			oracle.NewDefiLlama(cfg.Oracle.DefiLlamaURL, cfg.Oracle.SourceTimeout),
		}
	}
	orc, err := oracle.New(oracle.Config{
		CacheTimeout:  cfg.Oracle.CacheTTL,
		SourceTimeout: cfg.Oracle.SourceTimeout,
	}, oracle.WithSources(sources...), oracle.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	s.oracle = orc

	return s, nil
}

// Run serves HTTP until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	log := logging.Component(s.logger, "server")
	log.WithFields(logrus.Fields{
		"network": s.cfg.Network,
		"rpc":     s.cfg.RPC.URL,
		"addr":    s.cfg.HTTP.Addr,
	}).Info("starting server")

	if s.heads != nil {
		defer s.ws.Close()
		go s.runHeads(ctx)
	}
	go s.runUptime(ctx)

	srv := &http.Server{
		Addr:         s.cfg.HTTP.Addr,
		Handler:      s.routes(),
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Server) runHeads(ctx context.Context) {
	err := s.heads.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Component(s.logger, "server").WithError(err).Warn("head tracking stopped")
		s.mu.Lock()
		s.headsErr = err
		s.mu.Unlock()
	}
}

func (s *Server) runUptime(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			observability.AddUptime(now.Sub(last).Seconds())
			last = now
		}
	}
}

// routes mounts operations endpoints and the action dispatcher.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	mux.Handle("/", api.NewServer(s.registry, s.oracle, api.WithLogger(s.logger)).Handler())
	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Network     string `json:"network"`
	ChainID     int64  `json:"chain_id"`
	Protocols   int    `json:"protocols"`
	HeadTracked bool   `json:"head_tracked"`
	HeadNumber  uint64 `json:"head_number,omitempty"`
	HeadFresh   bool   `json:"head_fresh"`
	HeadError   string `json:"head_error,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Network:     string(s.cfg.Network),
		ChainID:     s.rpc.ChainID(),
		Protocols:   len(s.registry.ListSupportedProtocols()),
		HeadTracked: s.heads != nil,
	}
	if s.heads != nil {
		resp.HeadNumber, resp.HeadFresh = s.heads.Latest()
	}
	s.mu.Lock()
	if s.headsErr != nil {
		resp.HeadError = s.headsErr.Error()
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
