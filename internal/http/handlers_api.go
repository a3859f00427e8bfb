package http

import (
	"net/http"
	"strings"

	"finpal/internal/core"
)

// handleAPITax previews a calculation without saving anything.
func (s *Server) handleAPITax(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cents, err := core.ParseIncomeToCents(q.Get("income"))
	if err != nil {
		writeJSONError(w, r, http.StatusUnprocessableEntity, "income must be a non-negative number")
		return
	}
	jurisdiction := strings.TrimSpace(q.Get("jurisdiction"))
	if jurisdiction == "" {
		jurisdiction = "NY"
	}
	res := s.svc.EstimateTaxes(core.Money{Cents: cents}, jurisdiction, parseBool(q.Get("city")))
	writeJSON(w, r, http.StatusOK, res)
}

// handleAPISummary returns the stored tax summary and the budget-vs-actual
// comparison, optionally limited to one month.
func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	username, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	params, filtered, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.svc.Record(r.Context(), username)
	if err != nil {
		s.logError(r, "Failed to load record", err, username)
		writeJSONError(w, r, http.StatusInternalServerError, "could not load record")
		return
	}
	cmp := core.Compare(rec)
	if filtered {
		cmp = core.CompareMonth(rec, params.Year, params.Month)
	}
	writeJSON(w, r, http.StatusOK, newComparisonJSON(rec, cmp))
}
