package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewText(&buf, slog.LevelDebug, ComponentTax)
	l.Info("calculated", FieldJurisdiction, "NY")

	out := buf.String()
	if !strings.Contains(out, "component=tax") || !strings.Contains(out, "jurisdiction=NY") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestComponentLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	l := NewText(&buf, slog.LevelInfo, ComponentApp).WithComponent(ComponentBudget)
	l.Info("saved")
	NewEventLog(l).ExpenseAdded(context.Background(), "alice", 1234, "Groceries")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two records, got %q", buf.String())
	}
	for _, line := range lines {
		if n := strings.Count(line, "component="); n != 1 {
			t.Fatalf("component appears %d times in %q", n, line)
		}
	}
	if !strings.Contains(lines[0], "component=budget") {
		t.Fatalf("WithComponent not applied: %s", lines[0])
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewText(&buf, slog.LevelWarn, ComponentApp)
	l.Info("hidden")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %s", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn record missing")
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithUser("alice").
		WithProfile(100, "NY", true).
		WithError(errors.New("boom")).
		WithError(nil)
	if f[FieldUsername] != "alice" || f[FieldIncomeCents] != int64(100) || f[FieldError] != "boom" {
		t.Fatalf("unexpected fields: %v", f)
	}
	if len(f.ToSlice()) != len(f)*2 {
		t.Fatalf("ToSlice should hold key/value pairs")
	}
}

func TestMiddlewareStoresLogger(t *testing.T) {
	var buf bytes.Buffer
	base := NewText(&buf, slog.LevelInfo, ComponentApp)

	var got *Logger
	h := Inject(base, func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.Info("inside")
		}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("request logger missing request id: %s", buf.String())
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
}

func TestStatusLevel(t *testing.T) {
	cases := map[int]slog.Level{200: slog.LevelInfo, 302: slog.LevelInfo, 404: slog.LevelWarn, 422: slog.LevelWarn, 503: slog.LevelError}
	for status, want := range cases {
		if got := statusLevel(status); got != want {
			t.Errorf("statusLevel(%d) = %v, want %v", status, got, want)
		}
	}
}
