// Package server exposes the habitability service over HTTP and WebSocket.
package server

import (
	"context"
	"net/http"
	"time"

	"exohab/internal/common"
	"exohab/internal/metrics"
	"exohab/internal/ml"
	"exohab/internal/predict"
	"exohab/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Version is reported by the info endpoint.
const Version = "1.0.0"

// HistoryStore persists served predictions.
type HistoryStore interface {
	SavePredictions(recs []storage.Record) error
	Recent(limit int) ([]storage.Record, error)
	Range(start, end time.Time, limit int) ([]storage.Record, error)
	Count() (int, error)
}

// Options configures a Server. Zero values select defaults.
type Options struct {
	Addr           string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	HistoryLimit   int
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Store          HistoryStore
}

// Server serves predictions from a predict.Service.
type Server struct {
	svc      *predict.Service
	bundle   *ml.Bundle
	opts     Options
	upgrader websocket.Upgrader
	handler  http.Handler
	server   *http.Server
}

// New creates a Server. bundle supplies the readiness report and model info.
func New(svc *predict.Service, bundle *ml.Bundle, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = common.DefaultMaxBodyBytes
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = common.DefaultRequestTimeout
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = common.DefaultHistoryLimit
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		svc:      svc,
		bundle:   bundle,
		opts:     opts,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", s.handleAPI)
	mux.HandleFunc("/api", s.handleAPI)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/features", s.handleFeatures)
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/batch-predict", s.handleBatchPredict)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/ws/predict", s.handleWebSocket)
	mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", s.handleNotFound)

	s.handler = withRequestID(s.observe(mux))
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.RequestTimeout,
		WriteTimeout:      opts.RequestTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Bool("ready", s.svc.Ready()).Msg("starting habitability server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
