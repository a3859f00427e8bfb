package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"finpal/internal/core"
	"finpal/internal/log"
)

var errTemplatesNotLoaded = errors.New("templates not loaded")

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.svc.Ready(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	checks["tax_registry"] = map[string]interface{}{
		"jurisdictions": len(s.svc.Calculator().Registry().Jurisdictions()),
		"status":        "ok",
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, r, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n\n", name, help, name, name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	gauge("http_request_duration_avg_microseconds", "Average request duration", traceMetrics.AverageResponseTime)
	counter("profiles_updated_total", "Tax profiles recalculated", atomic.LoadInt64(&s.metrics.profilesUpdated))
	counter("budgets_updated_total", "Budgets saved", atomic.LoadInt64(&s.metrics.budgetsUpdated))
	counter("expenses_total", "Expenses entered manually", atomic.LoadInt64(&s.metrics.expensesCreated))
	counter("statements_imported_total", "Bank statements imported", atomic.LoadInt64(&s.metrics.statementsImported))

	if stats, ok := s.svc.CacheStats(); ok {
		counter("cache_hits_total", "Total record cache hits", stats.Hits)
		counter("cache_misses_total", "Total record cache misses", stats.Misses)
		gauge("cache_entries", "Current record cache entries", int64(stats.Size))
	}

	counter("rate_limit_hits_total", "Total rate limit hits", rateLimitMetrics.TotalHits)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	counter("blocked_requests_total", "Total suspicious requests blocked", securityMetrics.BlockedRequests)
	gauge("uptime_seconds", "Application uptime in seconds", int64(time.Since(s.metrics.started).Seconds()))
}

// handleLanding asks for a username, or redirects to that user's page.
func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	if name := strings.TrimSpace(r.URL.Query().Get("username")); name != "" {
		if err := core.ValidateUsername(name); err == nil {
			http.Redirect(w, r, "/u/"+url.PathEscape(name)+"/", http.StatusSeeOther)
			return
		}
		s.renderPage(w, r, http.StatusUnprocessableEntity, "landing.html", map[string]string{
			"Username": name,
			"Error":    "Usernames use letters, digits, '.', '_' or '-' (at most 64).",
		})
		return
	}
	s.renderPage(w, r, http.StatusOK, "landing.html", map[string]string{})
}

// handleUserPage renders the full budget page for one user.
func (s *Server) handleUserPage(w http.ResponseWriter, r *http.Request) {
	username, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	rec, err := s.svc.Record(r.Context(), username)
	if err != nil {
		s.logError(r, "Failed to load record", err, username)
		ErrorResponse(http.StatusInternalServerError, "Could not load your budget. Please try again.").Write(w)
		return
	}
	cmp := core.Compare(rec)
	s.renderPage(w, r, http.StatusOK, "index.html", newPageView(rec, cmp, time.Now().UTC()))
}

// userFromPath validates the {user} path segment; invalid names are not found.
func (s *Server) userFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := r.PathValue("user")
	if err := core.ValidateUsername(username); err != nil {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeJSONError(w, r, http.StatusNotFound, "unknown user")
		} else {
			ErrorResponse(http.StatusNotFound, "Unknown user").Write(w)
		}
		return "", false
	}
	return username, true
}

// render executes a template into a string so a failure never leaves a
// half-written response.
func (s *Server) render(name string, data any) (string, error) {
	if s.templates == nil {
		return "", errTemplatesNotLoaded
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.String(), nil
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	html, err := s.render(name, data)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().Status(status).HTML(html).Write(w)
}

func (s *Server) logError(r *http.Request, msg string, err error, username string) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), msg,
		log.FieldError, err,
		log.FieldUsername, username,
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
}
