// Package server hosts the conversion pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/alnah/go-audioconv/internal/convert"
	"github.com/alnah/go-audioconv/internal/media"
	"github.com/alnah/go-audioconv/internal/metrics"
)

// Defaults for the HTTP surface.
const (
	DefaultAddr           = "127.0.0.1:8080"
	defaultMaxUploadBytes = 64 << 20
	defaultRequestTimeout = 2 * time.Minute
	shutdownTimeout       = 10 * time.Second

	// multipartMemory is kept in memory before parts spill to temp files.
	multipartMemory = 32 << 20
)

// Compile-time interface verification.
var _ converter = (*convert.Pipeline)(nil)

// converter runs one conversion request.
type converter interface {
	Run(ctx context.Context, req convert.Request) (*convert.Outcome, error)
	Formats() media.FormatSet
}

// Server serves conversion requests. Each request is converted in isolation.
type Server struct {
	conv           converter
	log            *zap.Logger
	metrics        *metrics.Metrics
	maxUploadBytes int64
	requestTimeout time.Duration
	defaultTarget  media.Format
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMaxUploadBytes limits the request body size.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithRequestTimeout bounds a single conversion, ffmpeg included.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithDefaultTarget sets the output format reported by /v1/formats.
func WithDefaultTarget(f media.Format) Option {
	return func(s *Server) {
		if f != "" {
			s.defaultTarget = f
		}
	}
}

// New creates a Server around conv.
func New(conv converter, opts ...Option) *Server {
	s := &Server{
		conv:           conv,
		log:            zap.NewNop(),
		maxUploadBytes: defaultMaxUploadBytes,
		requestTimeout: defaultRequestTimeout,
		defaultTarget:  convert.DefaultTarget,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.requestID, s.instrument)

	router.HandleFunc("/v1/convert", s.handleConvert).Methods(http.MethodPost)
	router.HandleFunc("/v1/formats", s.handleFormats).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	return router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully, letting in-flight conversions finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.requestTimeout,
		WriteTimeout:      s.requestTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info("server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
