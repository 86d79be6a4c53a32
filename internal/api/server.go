// Package api exposes the SDK operations as action-dispatched HTTP endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"mantle-yield-lab/internal/abi"
	"mantle-yield-lab/internal/analytics"
	"mantle-yield-lab/internal/domain"
)

// Registry is the protocol surface the dispatcher needs.
type Registry interface {
	Network() domain.Network
	ListSupportedProtocols() []domain.ProtocolMetadata
	Protocol(id string) (domain.ProtocolMetadata, error)
	PoolYieldsFor(id string) ([]domain.PoolYield, error)
	GetPoolYields() []domain.PoolYield
	GetUserPositions(ctx context.Context, owner string) (*domain.Portfolio, error)
	BuildDepositTx(protocolID, owner, amount string) (*domain.BuiltTransaction, error)
	BuildWithdrawTx(protocolID, owner, amount string) (*domain.BuiltTransaction, error)
	GetBlockNumber(ctx context.Context) (uint64, error)
}

// Oracle is the pricing surface the dispatcher needs.
type Oracle interface {
	GetTokenPrices(ctx context.Context) []domain.TokenPrice
	GetSwapQuote(ctx context.Context, from, to, amount string) (*domain.SwapQuote, error)
}

var (
	errUnknownAction = errors.New("unknown action")
	errBadBody       = errors.New("invalid request body")
)

// maxBodyBytes bounds POST bodies; every action takes a handful of short strings.
const maxBodyBytes = 64 << 10

// Server dispatches ?action= requests.
type Server struct {
	registry  Registry
	oracle    Oracle
	analytics *analytics.Generator
	now       func() time.Time
	log       logrus.FieldLogger
	actions   map[string]actionFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithGenerator sets the analytics series generator.
func WithGenerator(g *analytics.Generator) Option {
	return func(s *Server) {
		s.analytics = g
	}
}

// WithClock sets the time source used for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates the dispatcher.
func NewServer(registry Registry, oracle Oracle, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		oracle:   oracle,
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.analytics == nil {
		s.analytics = analytics.NewGenerator(nil, s.now)
	}
	s.log = s.log.WithField("component", "api")
	s.actions = s.routes()
	return s
}

// Handler returns the dispatcher mounted at "/" and "/mantle-sdk".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	dispatch := http.HandlerFunc(s.serveAction)
	mux.Handle("/", dispatch)
	mux.Handle("/mantle-sdk", dispatch)
	mux.Handle("/mantle-sdk/", dispatch)
	return s.withRequestID(s.withAccessLog(withCORS(mux)))
}

// request holds every parameter any action reads.
type request struct {
	Protocol   string `json:"protocol"`
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
	Wallet     string `json:"wallet"`
	FromSymbol string `json:"fromSymbol"`
	ToSymbol   string `json:"toSymbol"`
}

// parseRequest reads the query string, then lets a JSON body override it.
func parseRequest(r *http.Request) (*request, error) {
	q := r.URL.Query()
	req := &request{
		Protocol:   q.Get("protocol"),
		Asset:      q.Get("asset"),
		Amount:     q.Get("amount"),
		Wallet:     q.Get("wallet"),
		FromSymbol: q.Get("fromSymbol"),
		ToSymbol:   q.Get("toSymbol"),
	}
	if r.Method != http.MethodPost || r.Body == nil {
		return req, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadBody, err)
	}
	if len(data) == 0 {
		return req, nil
	}

	var body request
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadBody, err)
	}
	override(&req.Protocol, body.Protocol)
	override(&req.Asset, body.Asset)
	override(&req.Amount, body.Amount)
	override(&req.Wallet, body.Wallet)
	override(&req.FromSymbol, body.FromSymbol)
	override(&req.ToSymbol, body.ToSymbol)
	return req, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (s *Server) serveAction(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	log := s.log.WithFields(logrus.Fields{"action": action, "request_id": RequestID(r.Context())})

	fn, ok := s.actions[action]
	if !ok {
		s.writeError(w, log, fmt.Errorf("%w: %s", errUnknownAction, action))
		return
	}

	req, err := parseRequest(r)
	if err != nil {
		s.writeError(w, log, err)
		return
	}

	resp, err := fn(r.Context(), req)
	if err != nil {
		s.writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrProtocolNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMissingParameter),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidQuoteRequest),
		errors.Is(err, abi.ErrMalformedAmount),
		errors.Is(err, errUnknownAction),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("action failed")
	} else {
		log.WithError(err).Debug("request rejected")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
