// Package httpapi serves the registry over HTTP: read access to registry
// state and submission of signed call groups to the ledger.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/mednft/libmednft-go/ledger"
	"github.com/mednft/libmednft-go/logging"
	"github.com/mednft/libmednft-go/metrics"
	"github.com/mednft/libmednft-go/state"
)

// RequestIDHeader carries the per-request id in responses.
const RequestIDHeader = "X-Request-Id"

// Ledger is the part of the ledger the API needs.
type Ledger interface {
	SubmitGroup(ctx context.Context, stxns []ledger.SignedTxn) (*ledger.GroupResult, error)
	App(id uint64) (ledger.App, error)
	ReadGlobal(appID uint64, fn func(state.Store) error) error
	Round() uint64
}

var _ Ledger = (*ledger.Devnet)(nil)

// Config configures a Server.
type Config struct {
	ListenAddr string

	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
	GracefulShutdownDuration time.Duration

	Logger  *zerolog.Logger
	Metrics *metrics.Metrics

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server is the HTTP front end of a ledger.
type Server struct {
	cfg     Config
	isReady atomic.Bool
	log     zerolog.Logger
	ledger  Ledger
	srv     *http.Server
}

// New creates a server for l. It starts out ready.
func New(cfg Config, l Ledger) (*Server, error) {
	if l == nil {
		return nil, ErrNilParam
	}
	if cfg.GracefulShutdownDuration == 0 {
		cfg.GracefulShutdownDuration = 10 * time.Second
	}
	s := &Server{cfg: cfg, ledger: l, log: zerolog.Nop()}
	if cfg.Logger != nil {
		s.log = logging.Component(*cfg.Logger, "httpapi")
	}
	s.isReady.Store(true)
	s.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(s.requestLogger)

	mux.Get("/livez", s.handleLivenessCheck)
	mux.Get("/readyz", s.handleReadinessCheck)

	mux.Route("/v1", func(r chi.Router) {
		r.Get("/registries/{appID}", s.handleRegistry)
		r.Get("/registries/{appID}/nfts/{tokenID}", s.handleNFT)
		r.Post("/groups", s.handleSubmitGroup)
	})

	if s.cfg.Gatherer != nil {
		mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// SetReady flips the readiness reported by /readyz.
func (s *Server) SetReady(ready bool) { s.isReady.Store(ready) }

// requestLogger tags every request with a uuid, logs it on completion and
// counts it per route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)

		l := s.log.With().Str("request_id", id).Logger()
		r = r.WithContext(l.WithContext(r.Context()))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.cfg.Metrics.IncrementHTTP(route, strconv.Itoa(status))

		ev := l.Debug()
		if status >= http.StatusInternalServerError {
			ev = l.Error()
		}
		ev.Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !s.isReady.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "round": s.ledger.Round()})
}

// RunInBackground starts listening. Errors other than a clean close are logged.
func (s *Server) RunInBackground() {
	go func() {
		s.log.Info().Str("listenAddress", s.cfg.ListenAddr).Msg("starting HTTP server")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("HTTP server failed")
		}
	}()
}

// Shutdown marks the server not ready and stops it gracefully.
func (s *Server) Shutdown() {
	s.isReady.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Error().Err(err).Msg("graceful HTTP server shutdown failed")
		return
	}
	s.log.Info().Msg("HTTP server gracefully stopped")
}
