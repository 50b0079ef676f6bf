package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"faturamento/internal/log"
	"faturamento/internal/middleware/ratelimit"
	"faturamento/internal/middleware/security"
	"faturamento/internal/middleware/trace"
	"faturamento/internal/services"
)

const (
	defaultMaxUploadBytes = 10 << 20
	defaultRequestTimeout = 30 * time.Second
)

// Config holds the HTTP server settings.
type Config struct {
	Addr               string
	MaxUploadBytes     int64
	RateLimitPerMinute int
	RequestTimeout     time.Duration
}

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Server is the report API.
type Server struct {
	http.Server
	reports *services.ReportService
	uploads *services.UploadService
	ready   []ReadinessCheck
	logger  *log.Logger

	maxUploadBytes int64
	requestTimeout time.Duration

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware. uploads may be nil, in which
// case the upload endpoints answer 501.
func NewServer(cfg Config, reports *services.ReportService, uploads *services.UploadService, logger *log.Logger, ready ...ReadinessCheck) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	limits := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		limits.RequestsPerMinute = cfg.RateLimitPerMinute
	}

	s := &Server{
		reports:        reports,
		uploads:        uploads,
		ready:          ready,
		logger:         logger.WithComponent(log.ComponentHTTP),
		maxUploadBytes: cfg.MaxUploadBytes,
		requestTimeout: cfg.RequestTimeout,
		rateLimiter:    ratelimit.NewLimiter(limits),
		detector:       security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("POST /api/report", s.handleReportFromBody)

	mux.HandleFunc("POST /api/uploads", s.requireUploads(s.handleCreateUpload))
	mux.HandleFunc("GET /api/uploads", s.requireUploads(s.handleListUploads))
	mux.HandleFunc("GET /api/uploads/{id}", s.requireUploads(s.handleGetUpload))
	mux.HandleFunc("GET /api/uploads/{id}/report", s.requireUploads(s.handleUploadReport))

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, onRateLimited)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) requireUploads(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.uploads == nil {
			writeJSON(w, http.StatusNotImplemented, ErrorResponse{
				Error:  "uploads_disabled",
				Detail: "uploads require the sqlite backend",
			})
			return
		}
		next(w, r)
	}
}

func onRateLimited(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:  "rate_limited",
		Detail: "rate limit exceeded, please try again later",
	})
}
