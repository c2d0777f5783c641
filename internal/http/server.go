// Package http serves the dashboard JSON API: transaction listing and
// editing, the aggregated dashboard, downloadable reports and charts.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"financebuddy/internal/identity"
	"financebuddy/internal/log"
	"financebuddy/internal/middleware/ratelimit"
	"financebuddy/internal/middleware/security"
	"financebuddy/internal/middleware/trace"
	"financebuddy/internal/services"
)

// PingFunc checks that the transaction service is reachable.
type PingFunc func(ctx context.Context) error

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	AllowedOrigin      string
	RateLimitPerMinute int
	Logger             *log.Logger
}

// Server is the API server. It embeds http.Server so callers can use
// ListenAndServe directly.
type Server struct {
	http.Server

	svc      *services.TransactionService
	verifier identity.Verifier
	ping     PingFunc
	logger   *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware and returns a ready-to-run server.
func NewServer(addr string, svc *services.TransactionService, verifier identity.Verifier, ping PingFunc, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:       svc,
		verifier:  verifier,
		ping:      ping,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:  security.NewDetector(),
		startedAt: time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("GET /api/transactions", s.authed(s.handleListTransactions))
	mux.Handle("POST /api/transactions", s.authed(s.handleCreateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.authed(s.handleDeleteTransaction))
	mux.Handle("GET /api/dashboard", s.authed(s.handleDashboard))
	mux.Handle("GET /api/reports/{file}", s.authed(s.handleReport))
	mux.Handle("POST /api/reports/export", s.authed(s.handleRequestExport))
	mux.Handle("GET /api/charts/{file}", s.authed(s.handleChart))

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ClientIP, s.rateLimited, http.MethodPost, http.MethodDelete)(h)
	h = s.screen(h)
	h = security.CORS(security.DefaultCORSConfig(opts.AllowedOrigin))(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// authed requires a verified bearer token before calling h.
func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return identity.RequireSession(s.verifier, writeError)(h)
}

// screen logs requests that look like probes. TRACE-style methods are
// refused outright.
func (s *Server) screen(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.Suspicious(r) {
			ctx := r.Context()
			log.FromContext(ctx).WithComponent(log.ComponentSecurity).WarnContext(ctx, "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ClientIP(r),
				log.FieldUserAgent, r.Header.Get("User-Agent"))
			if r.Method == "TRACE" || r.Method == "TRACK" {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log.FromContext(ctx).WithComponent(log.ComponentRateLimit).WarnContext(ctx, "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	writeJSON(ctx, w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
}

// Shutdown stops background goroutines and drains the HTTP server. It is
// safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		m := s.tracer.Metrics()
		s.logger.InfoContext(ctx, "HTTP server shutting down",
			log.FieldOperation, log.OpShutdown,
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"rate_limited", s.limiter.Rejected(),
			"suspicious", s.detector.Metrics().SuspiciousRequests)
		err = s.Server.Shutdown(ctx)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	})
	return err
}
