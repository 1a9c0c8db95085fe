// Package server exposes the oracle over HTTP JSON-RPC.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thaler-labs/donation-oracle/internal/health"
	"github.com/thaler-labs/donation-oracle/internal/metrics"
	"github.com/thaler-labs/donation-oracle/internal/oracle"
)

const (
	maxBodyBytes       = 1 << 20
	healthCheckTimeout = 3 * time.Second
)

// Dispatcher routes one JSON-RPC method invocation.
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, params json.RawMessage) (any, error)
}

// Server serves the JSON-RPC endpoint plus health and metrics routes.
type Server struct {
	dispatcher Dispatcher
	checker    *health.RPCChecker
	log        *slog.Logger
	router     *chi.Mux
	httpSrv    *http.Server
}

// New builds the server for the given listen address.
func New(addr string, dispatcher Dispatcher, checker *health.RPCChecker, log *slog.Logger) *Server {
	s := &Server{
		dispatcher: dispatcher,
		checker:    checker,
		log:        log,
		router:     chi.NewRouter(),
	}

	s.router.Use(s.logRequests)
	s.router.Use(allowCORS)
	s.router.Post("/", s.handleRPC)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metrics.Handler())

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("oracle server listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeRPCError(w, http.StatusBadRequest, nil, codeParseError, "Parse error", nil)
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeRPCError(w, http.StatusBadRequest, nil, codeParseError, "Parse error", nil)
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPCError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "Invalid Request", nil)
		return
	}

	result, err := s.dispatcher.Dispatch(r.Context(), req.Method, req.Params)
	if err != nil {
		if errors.Is(err, oracle.ErrUnknownMethod) {
			writeRPCError(w, http.StatusOK, req.ID, codeMethodNotFound, "Method not found", nil)
			return
		}
		// Protocol violations (unexpected foreign call) and internal faults.
		s.log.Error("rpc call failed", "method", req.Method, "error", err)
		writeRPCError(w, http.StatusInternalServerError, req.ID, codeInternalError, "Internal error",
			map[string]string{"message": err.Error()})
		return
	}

	if req.isNotification() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealthz is the deep check: it pings the chain endpoint.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := map[string]string{"status": "ok", "rpc": "ok"}
	code := http.StatusOK
	if err := s.checker.Ping(ctx); err != nil {
		status["status"] = "degraded"
		status["rpc"] = "fail"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

// The zk toolchain calls from arbitrary local origins.
func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
