package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"salesdash/internal/analytics"
	"salesdash/internal/cache"
	"salesdash/internal/core"
	applog "salesdash/internal/log"
	"salesdash/internal/middleware/ratelimit"
	"salesdash/internal/middleware/security"
	"salesdash/internal/middleware/trace"
	appweb "salesdash/web"
)

// Options tunes a Server. Zero values fall back to the defaults below.
type Options struct {
	Logger             *applog.Logger
	Formatter          *Formatter
	CacheSize          int
	CacheTTL           time.Duration
	RateLimitPerMinute int
}

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 10 * time.Minute
)

type Server struct {
	http.Server
	templates *template.Template
	engine    *analytics.Engine
	formatter *Formatter
	logger    *applog.Logger
	events    *applog.StructuredLogger

	results      *cache.Loader[core.Result]
	cacheManager *cache.Manager
	rateLimiter  *ratelimit.Limiter
	tracer       *trace.Middleware
	detector     *security.Detector

	ready        atomic.Bool
	shutdownOnce sync.Once
}

// NewServer configures routes, templates and middleware over engine,
// returning a ready-to-run http.Server.
func NewServer(addr string, engine *analytics.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Formatter == nil {
		opts.Formatter, _ = NewFormatter("Rp", "id")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if engine == nil {
		engine = analytics.NewEngine(nil)
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	resultCache := cache.NewLRUCache[core.Result](opts.CacheSize, opts.CacheTTL)
	detector := security.NewDetector()

	s := &Server{
		engine:       engine,
		formatter:    opts.Formatter,
		logger:       logger,
		events:       applog.NewStructuredLogger(opts.Logger),
		results:      cache.NewLoader(resultCache),
		cacheManager: cache.NewManager(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		tracer:   trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
		detector: detector,
	}

	s.cacheManager.Register(resultCache)
	s.cacheManager.StartCleanup(opts.CacheTTL)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	limited := s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimited)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /api/options", limited(http.HandlerFunc(s.handleOptions)))
	mux.Handle("GET /api/dashboard", limited(http.HandlerFunc(s.handleDashboard)))
	mux.Handle("GET /ui/kpis", limited(http.HandlerFunc(s.handleKPIs)))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.ready.Store(true)
	return s
}

// compute returns the cached result for c, computing it at most once for
// concurrent identical requests.
func (s *Server) compute(ctx context.Context, c core.Criteria) core.Result {
	key := c.Key()
	res, hit, _ := s.results.Get(key, func() (core.Result, error) {
		return s.engine.Compute(c), nil
	})
	s.events.LogComputed(ctx, c.Year, c.Categories, c.Start.String(), c.End.String(),
		res.KPIs.Count, res.KPIs.TopCategory, hit)
	return res
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	_ = NewResponse().
		Status(http.StatusTooManyRequests).
		JSON(errorBody{Error: "rate limit exceeded, try again later"}).
		Write(w)
}

// Shutdown marks the server as not ready, stops background cleanup and
// drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.ready.Store(false)
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
