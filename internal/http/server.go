package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/ports"
)

// maxBodyBytes caps request bodies at 1 MiB.
const maxBodyBytes = 1 << 20

// TransactionService is what the façade needs from the service layer.
type TransactionService interface {
	Save(ctx context.Context, t core.Transaction) (core.Transaction, error)
	All(ctx context.Context) ([]core.Transaction, error)
	Summary(ctx context.Context) (core.Summary, error)
	Delete(ctx context.Context, id int64) error
}

// Config holds the listener and middleware settings.
type Config struct {
	Addr               string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
}

type Server struct {
	http.Server

	svc    TransactionService
	ready  ports.Pinger
	logger *log.Logger

	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter
	detector *security.Detector
	registry *prometheus.Registry
	ops      *prometheus.CounterVec

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware. ready may be nil, in which case
// /readyz always reports ready.
func NewServer(cfg Config, svc TransactionService, ready ports.Pinger, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()

	limitCfg := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = cfg.RateLimitPerMinute
	}

	corsCfg := security.DefaultCORSConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	}

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:      svc,
		ready:    ready,
		logger:   logger,
		tracer:   trace.NewMiddleware(logger, detector.ExtractClientIP),
		limiter:  ratelimit.NewLimiter(limitCfg),
		detector: detector,
	}
	s.registerMetrics()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/transactions", s.handleCreate)
	mux.HandleFunc("GET /api/transactions", s.handleList)
	mux.HandleFunc("GET /api/transactions/summary", s.handleSummary)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDelete)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metricsHandler())

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
	})(h)
	h = security.NewCORS(corsCfg).Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = detector.Middleware(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s
}

// Shutdown stops the rate limiter and drains in-flight requests. Only the
// first call does any work.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
