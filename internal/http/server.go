// Package http serves the JSON API over the transaction, budget and
// analytics services.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"

	"github.com/rs/cors"
)

const (
	serviceName = "Personal Finance Tracker API"

	analyticsCacheSize    = 256
	cacheCleanupInterval  = 5 * time.Minute
	readyCheckTimeout     = 5 * time.Second
	defaultRequestTimeout = 30 * time.Second
)

// Pinger is a dependency whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services and stores the API runs on.
type Dependencies struct {
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Analytics    *analytics.Service
	Documents    Pinger
	Series       Pinger
}

type Config struct {
	Addr               string
	Version            string
	Environment        string
	CORSAllowedOrigins []string
	// RateLimitRPM caps API requests per client per minute; 0 disables it.
	RateLimitRPM int
	// AnalyticsCacheTTL of 0 disables the analytics cache.
	AnalyticsCacheTTL time.Duration
	TrustedProxies    []string
}

type appMetrics struct {
	transactionsCreated atomic.Int64
	cacheHits           atomic.Int64
	cacheMisses         atomic.Int64
	started             time.Time
}

type Server struct {
	http.Server
	deps    Dependencies
	cfg     Config
	logger  *log.Logger
	metrics *appMetrics

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	analyticsCache *cache.LRUCache[[]byte]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
	now          func() time.Time
}

// NewServer wires routes and middleware and returns a server ready for
// ListenAndServe.
func NewServer(cfg Config, deps Dependencies, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		deps:    deps,
		cfg:     cfg,
		logger:  logger,
		metrics: &appMetrics{started: time.Now()},
		now:     time.Now,
	}

	s.securityDetector = security.NewDetector(logger.Logger)
	for _, cidr := range cfg.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ClientIP)

	if cfg.AnalyticsCacheTTL > 0 {
		s.analyticsCache = cache.NewLRUCache[[]byte](analyticsCacheSize, cfg.AnalyticsCacheTTL)
		s.cacheManager = cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
		s.cacheManager.Register(s.analyticsCache)
		s.cacheManager.StartCleanup(cacheCleanupInterval)
	}

	api := http.NewServeMux()
	s.routes(api)

	var apiHandler http.Handler = api
	if cfg.RateLimitRPM > 0 {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM})
		apiHandler = s.rateLimiter.Middleware(s.securityDetector.ClientIP, s.handleRateLimited)(api)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", s.fallback(mux, "/"))

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       defaultRequestTimeout,
		WriteTimeout:      defaultRequestTimeout,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/ping", s.handlePing)

	mux.HandleFunc("POST /api/v1/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/v1/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/v1/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/v1/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("POST /api/v1/budgets", s.handleCreateBudget)
	mux.HandleFunc("GET /api/v1/budgets", s.handleListBudgets)
	mux.HandleFunc("GET /api/v1/budgets/{id}", s.handleGetBudget)
	mux.HandleFunc("PUT /api/v1/budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/v1/budgets/{id}", s.handleDeleteBudget)
	mux.HandleFunc("GET /api/v1/budgets/{id}/progress", s.handleBudgetProgress)

	mux.HandleFunc("GET /api/v1/analytics/spending-trend", s.handleSpendingTrend)
	mux.HandleFunc("GET /api/v1/analytics/category-breakdown", s.handleCategoryBreakdown)
	mux.HandleFunc("GET /api/v1/analytics/income-vs-expenses", s.handleIncomeVsExpenses)
	mux.HandleFunc("GET /api/v1/analytics/monthly-comparison", s.handleMonthlyComparison)
	mux.HandleFunc("GET /api/v1/analytics/savings-rate", s.handleSavingsRate)

	mux.Handle("/api/", s.fallback(mux, "/api/"))
}

// middleware applies, outermost first: tracing, CORS, security headers and
// suspicious request detection.
func (s *Server) middleware(next http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	origins := s.cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{trace.RequestIDHeader, "Retry-After"},
		AllowCredentials: !(len(origins) == 1 && origins[0] == "*"),
		MaxAge:           600,
	})

	h := s.securityDetector.Middleware(next)
	h = headers.Middleware(h)
	h = c.Handler(h)
	return s.traceMiddleware.Middleware(h)
}

// Shutdown stops background sweeps and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "too many requests", "rate limit exceeded, retry later").Write(w)
}

var routeMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
}

// fallback answers requests that only matched the catch-all pattern of mux.
// A path served under other methods gets 405 with Allow, anything else 404.
func (s *Server) fallback(mux *http.ServeMux, pattern string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allowed := allowedMethods(mux, r, pattern); len(allowed) > 0 {
			ErrorResponse(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed),
				r.Method+" is not supported on "+r.URL.Path).
				Header("Allow", strings.Join(allowed, ", ")).
				Write(w)
			return
		}
		NotFoundError("no route for " + r.Method + " " + r.URL.Path).Write(w)
	})
}

func allowedMethods(mux *http.ServeMux, r *http.Request, fallback string) []string {
	var allowed []string
	for _, m := range routeMethods {
		alt := r.Clone(r.Context())
		alt.Method = m
		if _, p := mux.Handler(alt); p != "" && p != fallback {
			allowed = append(allowed, m)
		}
	}
	return allowed
}

// invalidateAnalytics drops cached analytics after a transaction write. With
// the AMQP sink the point may not be written yet, so a read in between can
// cache stale totals until the TTL expires.
func (s *Server) invalidateAnalytics() {
	if s.analyticsCache != nil {
		s.analyticsCache.Purge()
	}
}
