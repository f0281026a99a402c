package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"feedesk/internal/cache"
	"feedesk/internal/log"
	"feedesk/internal/messages"
	"feedesk/internal/middleware/ratelimit"
	"feedesk/internal/middleware/security"
	"feedesk/internal/middleware/trace"
	"feedesk/internal/session"
	appweb "feedesk/web"
)

const (
	defaultCleanupInterval = 5 * time.Minute
	staticMaxAge           = 3600
)

// EventStatus reports on the optional member change publisher.
type EventStatus interface {
	Healthy() bool
	Published() int64
}

// Deps are the collaborators of the web server.
type Deps struct {
	Sessions *session.Manager
	Catalog  *messages.Catalog
	// Ready checks the backend API; nil means always ready.
	Ready func(ctx context.Context) error
	// Events is nil when publishing is disabled.
	Events  EventStatus
	Metrics *Metrics
	Logger  *log.Logger

	RateLimitPerMinute int
	CleanupInterval    time.Duration
}

// Server wraps http.Server with the member desk's routes and middleware.
type Server struct {
	http.Server
	templates *template.Template
	sessions  *session.Manager
	catalog   *messages.Catalog
	ready     func(ctx context.Context) error
	events    EventStatus
	metrics   *Metrics
	logger    *log.Logger

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware
	cacheManager     *cache.Manager
}

// NewServer configures routes and templates, returning a ready-to-run
// server. Call Shutdown to stop its background cleanup.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Sessions == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("sessions and message catalog are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	interval := deps.CleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates: t,
		sessions:  deps.Sessions,
		catalog:   deps.Catalog,
		ready:     deps.Ready,
		events:    deps.Events,
		metrics:   metrics,
		logger:    logger.WithComponent(log.ComponentHTTP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
		}),
	}
	s.securityDetector = security.NewDetector(logger)
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	s.cacheManager = cache.NewManager(func(removed int) {
		s.logger.Debug("Expired sessions removed", "removed", removed)
	})
	s.cacheManager.Register(deps.Sessions.Cleaner())
	s.cacheManager.StartCleanup(interval)

	mux := http.NewServeMux()

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("/static/", security.StaticAssetMiddleware(staticMaxAge)(static))

	mux.HandleFunc("/{$}", s.handleIndex)
	mux.HandleFunc("/ui/tabs/{tab}", s.handleShowTab)
	mux.HandleFunc("/ui/totals", s.handleTotals)
	// Only member writes are limited; tab switches and searches are reads.
	limitWrites := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, http.MethodPost)
	mux.Handle("/ui/members", limitWrites(http.HandlerFunc(s.handleAddMember)))
	mux.Handle("/ui/members/update", limitWrites(http.HandlerFunc(s.handleUpdateMember)))
	mux.HandleFunc("/ui/search", s.handleSearch)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = log.Middleware(s.logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Shutdown stops background work and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)

	s.rateLimiter.Stop()
	s.cacheManager.Stop()

	return s.Server.Shutdown(ctx)
}
