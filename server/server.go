// Package server exposes an Engine over HTTP.
//
// Routes:
//
//	POST /v1/apply   apply a batch (YAML or JSON body, batch file format)
//	GET  /v1/schema  the enforced schema as JSON
//	GET  /healthz    liveness
//	GET  /metrics    Prometheus metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rlch/schemagate/batch"
	"github.com/rlch/schemagate/engine"
)

// DefaultMaxBodyBytes bounds the size of an apply request.
const DefaultMaxBodyBytes = 8 << 20

// Server serves an Engine.
type Server struct {
	engine   *engine.Engine
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	maxBody  int64

	router *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer sets the registry served on /metrics. The default is
// prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithMaxBodyBytes bounds the apply request body.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBody = n
	}
}

// New creates a Server for eng.
func New(eng *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:   eng,
		gatherer: prometheus.DefaultGatherer,
		logger:   zap.NewNop(),
		maxBody:  DefaultMaxBodyBytes,
	}

	for _, opt := range opts {
		opt(s)
	}

	router := mux.NewRouter()
	router.HandleFunc("/v1/apply", s.apply).Methods(http.MethodPost)
	router.HandleFunc("/v1/schema", s.schema).Methods(http.MethodGet)
	router.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.router = router

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on l until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)

	go func() {
		errc <- srv.Serve(l)
	}()

	s.logger.Info("serving", zap.String("addr", l.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	// Listen first, so a port in use fails early.
	var lc net.ListenConfig

	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(ctx, l)
}

type applyEntry struct {
	Name    string         `json:"name"`
	Kind    string         `json:"kind"`
	Outcome engine.Outcome `json:"outcome"`
}

type applyResponse struct {
	Ok       bool         `json:"ok"`
	Outcomes []applyEntry `json:"outcomes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})

			return
		}

		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	b, err := batch.Decode(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	outcomes := s.engine.Apply(r.Context(), b.Entities...)

	resp := applyResponse{Ok: true, Outcomes: make([]applyEntry, len(outcomes))}

	for i, out := range outcomes {
		if !out.Success {
			resp.Ok = false
		}

		resp.Outcomes[i] = applyEntry{
			Name:    b.Names[i],
			Kind:    b.Entities[i].Kind().String(),
			Outcome: out,
		}
	}

	s.logger.Debug("applied batch", zap.Int("entities", len(outcomes)), zap.Bool("ok", resp.Ok))

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) schema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Document().Specs())
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
