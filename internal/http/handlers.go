package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"feedesk/internal/view"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    s.metrics.Uptime().String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady checks templates and the backend API. The event publisher is
// reported but never makes the desk unready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ready == nil:
		checks["backend"] = "ok"
	default:
		if err := s.ready(ctx); err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	switch {
	case s.events == nil:
		checks["events"] = "not_configured"
	case s.events.Healthy():
		checks["events"] = "ok"
	default:
		checks["events"] = "degraded: circuit open"
	}

	sessions := s.sessions.Stats()
	checks["sessions"] = map[string]any{
		"active": sessions.Active,
		"status": "ok",
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	submissions := s.metrics.Submissions()
	sessions := s.sessions.Stats()

	// Read-path counters only cover live sessions.
	var live view.Stats
	s.sessions.Each(func(_ string, c *view.Controller) {
		st := c.Stats()
		live.Refreshes += st.Refreshes
		live.RefreshFailures += st.RefreshFailures
		live.Searches += st.Searches
		live.SearchFailures += st.SearchFailures
		live.StaleDiscarded += st.StaleDiscarded
	})

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_requests_failed_total HTTP requests answered with 5xx\n")
	fmt.Fprintf(w, "# TYPE http_requests_failed_total counter\n")
	fmt.Fprintf(w, "http_requests_failed_total %d\n\n", traceMetrics.FailedRequests)

	fmt.Fprintf(w, "# HELP member_submissions_total Member form submissions by action and outcome\n")
	fmt.Fprintf(w, "# TYPE member_submissions_total counter\n")
	fmt.Fprintf(w, "member_submissions_total{action=\"add\",outcome=\"success\"} %d\n", submissions.AddSucceeded)
	fmt.Fprintf(w, "member_submissions_total{action=\"add\",outcome=\"error\"} %d\n", submissions.AddFailed)
	fmt.Fprintf(w, "member_submissions_total{action=\"update\",outcome=\"success\"} %d\n", submissions.UpdateSucceeded)
	fmt.Fprintf(w, "member_submissions_total{action=\"update\",outcome=\"error\"} %d\n\n", submissions.UpdateFailed)

	fmt.Fprintf(w, "# HELP table_loads Table loads of live sessions by table and result\n")
	fmt.Fprintf(w, "# TYPE table_loads gauge\n")
	fmt.Fprintf(w, "table_loads{table=\"totals\",result=\"requested\"} %d\n", live.Refreshes)
	fmt.Fprintf(w, "table_loads{table=\"totals\",result=\"failed\"} %d\n", live.RefreshFailures)
	fmt.Fprintf(w, "table_loads{table=\"search\",result=\"requested\"} %d\n", live.Searches)
	fmt.Fprintf(w, "table_loads{table=\"search\",result=\"failed\"} %d\n\n", live.SearchFailures)

	fmt.Fprintf(w, "# HELP stale_responses_discarded Superseded responses dropped in live sessions\n")
	fmt.Fprintf(w, "# TYPE stale_responses_discarded gauge\n")
	fmt.Fprintf(w, "stale_responses_discarded %d\n\n", live.StaleDiscarded)

	fmt.Fprintf(w, "# HELP sessions_active Current session controllers\n")
	fmt.Fprintf(w, "# TYPE sessions_active gauge\n")
	fmt.Fprintf(w, "sessions_active %d\n\n", sessions.Active)

	fmt.Fprintf(w, "# HELP sessions_created_total Session controllers created\n")
	fmt.Fprintf(w, "# TYPE sessions_created_total counter\n")
	fmt.Fprintf(w, "sessions_created_total %d\n\n", sessions.Created)

	fmt.Fprintf(w, "# HELP sessions_evicted_total Session controllers evicted by size or expired by TTL\n")
	fmt.Fprintf(w, "# TYPE sessions_evicted_total counter\n")
	fmt.Fprintf(w, "sessions_evicted_total %d\n\n", sessions.Evictions)

	if s.events != nil {
		fmt.Fprintf(w, "# HELP member_events_published_total Member change events published\n")
		fmt.Fprintf(w, "# TYPE member_events_published_total counter\n")
		fmt.Fprintf(w, "member_events_published_total %d\n\n", s.events.Published())
	}

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP security_suspicious_requests_total Requests matching scanning patterns\n")
	fmt.Fprintf(w, "# TYPE security_suspicious_requests_total counter\n")
	fmt.Fprintf(w, "security_suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP security_blocked_requests_total Requests rejected by method\n")
	fmt.Fprintf(w, "# TYPE security_blocked_requests_total counter\n")
	fmt.Fprintf(w, "security_blocked_requests_total %d\n\n", securityMetrics.BlockedRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Time since process start\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", s.metrics.Uptime().Seconds())
}
