package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{name: "direct", remoteAddr: "203.0.113.9:1234", want: "203.0.113.9"},
		{name: "untrusted proxy headers ignored", remoteAddr: "203.0.113.9:1234", xff: "198.51.100.1", want: "203.0.113.9"},
		{name: "trusted proxy forwarded for", remoteAddr: "10.0.0.2:80", xff: "198.51.100.1, 10.0.0.1", want: "198.51.100.1"},
		{name: "trusted proxy real ip", remoteAddr: "127.0.0.1:80", xri: "198.51.100.2", want: "198.51.100.2"},
		{name: "trusted proxy garbage header", remoteAddr: "192.168.1.1:80", xff: "not-an-ip", want: "192.168.1.1"},
		{name: "no port", remoteAddr: "203.0.113.9", want: "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	ok := httptest.NewRequest(http.MethodGet, "/u/alice/?month=2024-03", nil)
	if d.DetectSuspiciousRequest(ok) {
		t.Fatal("normal request flagged")
	}

	bad := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/.env", nil),
		httptest.NewRequest(http.MethodGet, "/api/tax?income=1%20union%20select", nil),
		httptest.NewRequest("TRACE", "/", nil),
		httptest.NewRequest(http.MethodGet, "/"+strings.Repeat("a", 2100), nil),
	}
	scanner := httptest.NewRequest(http.MethodGet, "/", nil)
	scanner.Header.Set("User-Agent", "sqlmap/1.7")
	bad = append(bad, scanner)

	for _, r := range bad {
		if !d.DetectSuspiciousRequest(r) {
			t.Errorf("expected %s %s to be flagged", r.Method, r.URL.Path)
		}
	}
	if got := d.GetMetrics().SuspiciousRequests; got != int64(len(bad)) {
		t.Fatalf("SuspiciousRequests = %d, want %d", got, len(bad))
	}
}

func TestDetectorMiddlewareBlocks(t *testing.T) {
	d := NewDetector()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	rr := httptest.NewRecorder()
	d.Middleware(true)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	d.Middleware(false)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("log-only mode should pass through, got %d", rr.Code)
	}
	if d.GetMetrics().BlockedRequests != 1 {
		t.Fatalf("expected 1 blocked request")
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing X-Frame-Options")
	}
	if !strings.Contains(rr.Header().Get("Content-Security-Policy"), "https://unpkg.com") {
		t.Fatalf("CSP should allow htmx from unpkg")
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if !strings.HasPrefix(rr.Header().Get("Strict-Transport-Security"), "max-age=31536000") {
		t.Fatalf("expected HSTS over TLS, got %q", rr.Header().Get("Strict-Transport-Security"))
	}

	cfg := DefaultHeadersConfig()
	cfg.PermissionsPolicy = ""
	rr = httptest.NewRecorder()
	NewHeadersMiddleware(cfg).Middleware(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, ok := rr.Header()["Permissions-Policy"]; ok {
		t.Fatalf("empty header values must not be sent")
	}
}
