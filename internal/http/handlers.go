package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{
		"message": serviceName,
		"version": s.cfg.Version,
		"docs":    "/api/v1",
	}).Write(w)
}

// handleHealthz is the liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).Round(time.Second).String(),
	}).Write(w)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"message": "pong"}).Write(w)
}

// checkDependencies pings both stores. A nil dependency reports
// not_configured.
func (s *Server) checkDependencies(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, readyCheckTimeout)
	defer cancel()

	checks := make(map[string]string, 2)
	ok := true
	for name, dep := range map[string]Pinger{
		"documents":  s.deps.Documents,
		"timeseries": s.deps.Series,
	} {
		if dep == nil {
			checks[name] = "not_configured"
			ok = false
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			ok = false
			continue
		}
		checks[name] = "ok"
	}
	return checks, ok
}

// handleReady is the readiness probe. It fails while either store is down.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks, ok := s.checkDependencies(r.Context())

	status, code := "ready", http.StatusOK
	if !ok {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleHealth reports store status without failing the request.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks, ok := s.checkDependencies(r.Context())

	status := "healthy"
	if !ok {
		status = "degraded"
	}
	NewJSONResponse().Body(map[string]any{
		"status":      status,
		"timestamp":   s.now().UTC().Format(time.RFC3339),
		"service":     serviceName,
		"version":     s.cfg.Version,
		"environment": s.cfg.Environment,
		"checks":      checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	writeMetric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	traceMetrics := s.traceMiddleware.GetMetrics()
	writeMetric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	writeMetric("http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime)
	writeMetric("transactions_created_total", "Transactions created through the API", "counter", s.metrics.transactionsCreated.Load())

	if s.analyticsCache != nil {
		writeMetric("analytics_cache_hits_total", "Analytics cache hits", "counter", s.metrics.cacheHits.Load())
		writeMetric("analytics_cache_misses_total", "Analytics cache misses", "counter", s.metrics.cacheMisses.Load())
		writeMetric("analytics_cache_entries", "Current analytics cache entries", "gauge", s.analyticsCache.Size())
	}
	if s.rateLimiter != nil {
		rl := s.rateLimiter.GetMetrics()
		writeMetric("rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rl.Limited)
		writeMetric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rl.ActiveClients)
	}

	sec := s.securityDetector.GetMetrics()
	writeMetric("suspicious_requests_total", "Suspicious requests detected", "counter", sec.SuspiciousRequests)
	writeMetric("uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.metrics.started).Seconds()))
}
