// Package api serves the administrative HTTP surface of a log store: record
// queries, archive downloads, client fault intake, Prometheus metrics and a
// health probe.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Iron-Ham/linelog/internal/diag"
	"github.com/Iron-Ham/linelog/internal/engine"
	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/logging"
)

const (
	shutdownTimeout = 10 * time.Second
	maxClientBody   = 1 << 20
)

// Config controls the server.
type Config struct {
	Addr string
	// ExportRateLimit is the number of archive downloads allowed per client
	// IP per minute. Zero disables the limit.
	ExportRateLimit int
	// MaxQueryLimit caps the records returned by one query.
	MaxQueryLimit int
}

// Server exposes one engine over HTTP.
type Server struct {
	cfg       Config
	engine    *engine.Engine
	log       *diag.Logger
	coalescer *logging.Coalescer
	now       func() time.Time
}

// New returns a Server for e. Diagnostics go to e's diagnostics logger.
func New(e *engine.Engine, cfg Config) *Server {
	if cfg.MaxQueryLimit <= 0 {
		cfg.MaxQueryLimit = 1000
	}
	return &Server{
		cfg:       cfg,
		engine:    e,
		log:       e.Diag(),
		coalescer: logging.NewCoalescer(e.Registry(), 0),
		now:       time.Now,
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/logs", func(r chi.Router) {
		r.Get("/", s.handleQuery)
		r.With(s.exportLimiter()).Get("/export", s.handleExport)
		r.Post("/client", s.handleClient)
	})

	return r
}

// exportLimiter limits archive downloads per client IP.
func (s *Server) exportLimiter() func(http.Handler) http.Handler {
	if s.cfg.ExportRateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		s.cfg.ExportRateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many exports, try again later")
		}),
	)
}

// requestLogger writes one diagnostics line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully and writes
// any client records still pending.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("admin server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.coalescer.Flush()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "admin server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.coalescer.Flush()
	s.log.Info().Msg("admin server stopped")
	if err != nil {
		return errors.Wrap(err, "shutdown admin server")
	}
	return nil
}
