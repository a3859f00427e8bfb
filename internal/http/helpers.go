package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"finpal/internal/core"
	"finpal/internal/tax"
)

// sanitizeInput removes control characters except tab and newlines, then trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatDollars renders a float dollar amount as "$1,234.56".
func formatDollars(d float64) string {
	return core.FormatDollars(core.FromDollars(d).Cents)
}

// formatRate renders 0.0685 as "6.85%".
func formatRate(r float64) string {
	return fmt.Sprintf("%.2f%%", r*100)
}

// formatUpperBound renders a bracket ceiling, or "and above" for the top tier.
func formatUpperBound(row tax.BreakdownRow) string {
	if row.Unbounded() {
		return "and above"
	}
	return formatDollars(row.UpperBound)
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode JSON response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, apiError{Error: msg})
}
