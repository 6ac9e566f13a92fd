package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"streamfi/internal/chain"
	"streamfi/internal/config"
	"streamfi/internal/hmacauth"
	"streamfi/internal/store"
	"streamfi/internal/stream"
)

// Controller is the part of the stream controller the HTTP layer drives.
type Controller interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context)
	CreateStream(ctx context.Context, req stream.StreamRequest) (stream.Receipt, error)
	Claim(ctx context.Context) (stream.Receipt, error)
	Fund(ctx context.Context, req stream.FundRequest) (stream.Receipt, error)
	Claimable(ctx context.Context) (stream.Accrual, error)
	Snapshot() stream.Snapshot
}

type Server struct {
	cfg         *config.AppConfig
	ctrl        Controller
	store       store.Store
	logger      *zap.Logger
	httpServer  *http.Server
	auth        *hmacauth.Verifier
	metrics     *metricsRegistry
	storeHealth func(context.Context) error
	nodeHealth  func(context.Context) error
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer wires the page, the JSON API, health and metrics. node is only
// consulted for health and may be nil.
func NewServer(cfg *config.AppConfig, ctrl Controller, node chain.Client, st store.Store, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		ctrl:    ctrl,
		store:   st,
		logger:  zap.NewNop(),
		metrics: newMetricsRegistry(),
		auth: &hmacauth.Verifier{
			Secret:  cfg.API.HMACSecret,
			MaxSkew: cfg.API.MaxSkew,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if checker, ok := st.(interface{ Ping(context.Context) error }); ok {
		s.storeHealth = checker.Ping
	}
	if checker, ok := node.(chain.HealthChecker); ok {
		s.nodeHealth = checker.Ping
	}
	s.metrics.setConnected(ctrl.Snapshot().Account != "")

	mux := http.NewServeMux()
	// With a secret configured every state change needs a signature, so the
	// form actions reject browser posts and the page renders read-only.
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.Handle("POST /connect", s.auth.Middleware(http.HandlerFunc(s.handlePageConnect)))
	mux.Handle("POST /disconnect", s.auth.Middleware(http.HandlerFunc(s.handlePageDisconnect)))
	mux.Handle("POST /streams", s.auth.Middleware(http.HandlerFunc(s.handlePageCreateStream)))

	mux.HandleFunc("GET /api/v1/session", s.handleSession)
	mux.Handle("POST /api/v1/session/connect", s.auth.Middleware(http.HandlerFunc(s.handleConnect)))
	mux.Handle("POST /api/v1/session/disconnect", s.auth.Middleware(http.HandlerFunc(s.handleDisconnect)))
	mux.Handle("POST /api/v1/streams", s.auth.Middleware(http.HandlerFunc(s.handleCreateStream)))
	mux.Handle("POST /api/v1/claims", s.auth.Middleware(http.HandlerFunc(s.handleClaim)))
	mux.Handle("POST /api/v1/funds", s.auth.Middleware(http.HandlerFunc(s.handleFund)))
	mux.HandleFunc("GET /api/v1/claimable", s.handleClaimable)
	mux.Handle("GET /api/v1/metrics", s.metrics.handler())
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.HTTPPort),
		Handler:           requestIDMiddleware(accessLogMiddleware(s.logger, mux)),
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overallHealthy := true

	nodeInfo := struct {
		Connected bool    `json:"connected"`
		LatencyMs float64 `json:"latency_ms"`
		Error     string  `json:"error,omitempty"`
	}{Connected: true}

	if s.nodeHealth != nil {
		start := time.Now()
		nodeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.nodeHealth(nodeCtx); err != nil {
			nodeInfo.Connected = false
			nodeInfo.Error = err.Error()
			overallHealthy = false
		} else {
			nodeInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		}
	}

	storeInfo := struct {
		Connected bool   `json:"connected"`
		Error     string `json:"error,omitempty"`
	}{Connected: true}

	if s.storeHealth != nil {
		storeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.storeHealth(storeCtx); err != nil {
			storeInfo.Connected = false
			storeInfo.Error = err.Error()
			overallHealthy = false
		}
	}

	snap := s.ctrl.Snapshot()

	status := "healthy"
	if !overallHealthy {
		status = "degraded"
	}

	resp := struct {
		Status   string `json:"status"`
		Node     any    `json:"node"`
		Store    any    `json:"store"`
		Wallet   any    `json:"wallet"`
		AppID    uint64 `json:"app_id"`
		Network  string `json:"network"`
		InFlight bool   `json:"in_flight"`
	}{
		Status: status,
		Node:   nodeInfo,
		Store:  storeInfo,
		Wallet: struct {
			Connected bool `json:"connected"`
		}{Connected: snap.Account != ""},
		AppID:    snap.AppID,
		Network:  snap.Network,
		InFlight: snap.InFlight,
	}

	w.Header().Set("Content-Type", "application/json")
	if !overallHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
