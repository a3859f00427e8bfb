package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"finpal/internal/amqp"
	"finpal/internal/core"
	"finpal/internal/services"
)

// maxStatementBytes bounds an uploaded bank statement.
const maxStatementBytes = 5 << 20

const invalidIncomeMessage = "Please enter a valid, non-negative annual income."

// handleUpdateProfile stores income and location and returns the recalculated
// tax summary, as HTML for htmx or as JSON for JSON bodies.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	username, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid request format").Write(w)
		return
	}

	fail := func(status int, msg string) {
		if p.IsJSON() {
			writeJSONError(w, r, status, msg)
			return
		}
		// The form targets the tax summary; errors go next to the form instead.
		ErrorResponse(status, msg).
			Retarget("#profile-result").
			Notify(NotificationError, msg).
			Write(w)
	}

	cents, err := core.ParseIncomeToCents(p.Get("income"))
	if err != nil {
		fail(http.StatusUnprocessableEntity, invalidIncomeMessage)
		return
	}

	rec, err := s.svc.UpdateProfile(r.Context(), username, core.Money{Cents: cents}, p.Get("jurisdiction"), p.Bool("city_resident"))
	switch {
	case errors.Is(err, core.ErrNegativeIncome):
		fail(http.StatusUnprocessableEntity, invalidIncomeMessage)
		return
	case errors.Is(err, services.ErrInvalidJurisdiction):
		fail(http.StatusUnprocessableEntity, "Please choose a state.")
		return
	case err != nil:
		s.logError(r, "Failed to update profile", err, username)
		fail(http.StatusInternalServerError, "Could not save your profile. Please try again.")
		return
	}
	s.metrics.inc(&s.metrics.profilesUpdated)

	if p.IsJSON() {
		writeJSON(w, r, http.StatusOK, rec.TaxSummary)
		return
	}

	html, err := s.render("tax_summary.html", newTaxView(*rec.TaxSummary))
	if err != nil {
		s.logError(r, "Failed to render tax summary", err, username)
		ErrorResponse(http.StatusInternalServerError, "Profile saved, but the summary could not be displayed.").Write(w)
		return
	}
	NewHTMXResponse().
		TriggerRecordUpdated(username, amqp.ReasonProfile).
		TriggerSummaryRefresh().
		Notify(NotificationSuccess, "Taxes recalculated").
		HTML(html).
		Write(w)
}

// handleUpdateBudget replaces the budget from paired category/amount fields.
// A blank amount means zero; a row with neither is ignored.
func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	username, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}

	categories := r.PostForm["category"]
	amounts := r.PostForm["amount"]
	if len(categories) != len(amounts) {
		ErrorResponse(http.StatusBadRequest, "Each budget category needs an amount").Write(w)
		return
	}

	budget := make(core.Budget, len(categories))
	for i, raw := range categories {
		category := sanitizeInput(raw)
		amount := sanitizeInput(amounts[i])
		if category == "" && amount == "" {
			continue
		}
		var cents int64
		if amount != "" {
			var err error
			if cents, err = core.ParseIncomeToCents(amount); err != nil {
				ErrorResponse(http.StatusUnprocessableEntity, fmt.Sprintf("Invalid amount for %s", category)).Write(w)
				return
			}
		}
		if err := budget.Set(category, core.Money{Cents: cents}); err != nil {
			ErrorResponse(http.StatusUnprocessableEntity, "Budget rows need a category name").Write(w)
			return
		}
	}

	rec, err := s.svc.SetBudget(r.Context(), username, budget)
	if err != nil {
		if errors.Is(err, core.ErrEmptyCategory) || errors.Is(err, core.ErrNegativeBudget) {
			ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
			return
		}
		s.logError(r, "Failed to save budget", err, username)
		ErrorResponse(http.StatusInternalServerError, "Could not save your budget. Please try again.").Write(w)
		return
	}
	s.metrics.inc(&s.metrics.budgetsUpdated)

	NewHTMXResponse().
		TriggerRecordUpdated(username, amqp.ReasonBudget).
		TriggerSummaryRefresh().
		Notify(NotificationSuccess, "Budget saved").
		HTML(`<div class="success">Budget saved: ` + template.HTMLEscapeString(rec.Budget.Total().String()) + ` per month</div>`).
		Write(w)
}

// handleCreateExpense logs one manually entered expense.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	username, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}

	cents, err := core.ParseDecimalToCents(r.PostForm.Get("amount"))
	if err != nil {
		ErrorResponse(http.StatusUnprocessableEntity, "Please enter a positive amount.").Write(w)
		return
	}
	date, err := ParseExpenseDate(r.PostForm)
	if err != nil {
		ErrorResponse(http.StatusUnprocessableEntity, "Please enter a date as YYYY-MM-DD.").Write(w)
		return
	}

	exp := core.Expense{
		Date:        date,
		Amount:      core.Money{Cents: cents},
		Category:    sanitizeInput(r.PostForm.Get("category")),
		Description: sanitizeInput(r.PostForm.Get("description")),
		Source:      core.SourceManual,
	}
	if err := exp.Validate(); err != nil {
		ErrorResponse(http.StatusUnprocessableEntity, "Invalid data: " + err.Error()).Write(w)
		return
	}

	if _, err := s.svc.AddExpense(r.Context(), username, exp); err != nil {
		s.logError(r, "Failed to save expense", err, username)
		ErrorResponse(http.StatusInternalServerError, "Error saving expense").Write(w)
		return
	}
	s.metrics.inc(&s.metrics.expensesCreated)

	NewHTMXResponse().
		TriggerExpenseCreated(exp.Date.Year(), exp.Date.Month()).
		TriggerRecordUpdated(username, amqp.ReasonExpense).
		TriggerFormReset().
		TriggerSummaryRefresh().
		Notify(NotificationSuccess, "Expense added").
		HTML(`<div class="success">Added ` + template.HTMLEscapeString(exp.Amount.String()) +
			` to ` + template.HTMLEscapeString(exp.Category) + `</div>`).
		Write(w)
}

// handleImportStatement appends every transaction of an uploaded CSV statement.
func (s *Server) handleImportStatement(w http.ResponseWriter, r *http.Request) {
	username, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxStatementBytes)
	if err := r.ParseMultipartForm(maxStatementBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "Statement is larger than 5 MB").Write(w)
			return
		}
		ErrorResponse(http.StatusBadRequest, "Invalid upload").Write(w)
		return
	}
	file, _, err := r.FormFile("statement")
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "Choose a CSV file to upload.").Write(w)
		return
	}
	defer file.Close()

	n, err := s.svc.ImportStatement(r.Context(), username, file)
	if err != nil {
		if errors.Is(err, services.ErrInvalidStatement) {
			ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Notify(NotificationError, "Statement could not be read").Write(w)
			return
		}
		s.logError(r, "Failed to import statement", err, username)
		ErrorResponse(http.StatusInternalServerError, "Could not import the statement. Please try again.").Write(w)
		return
	}

	resp := NewHTMXResponse()
	if n == 0 {
		resp.Notify(NotificationInfo, "No transactions found").
			HTML(`<div class="success">The statement had no transactions.</div>`).
			Write(w)
		return
	}
	s.metrics.inc(&s.metrics.statementsImported)
	resp.TriggerRecordUpdated(username, amqp.ReasonImport).
		TriggerSummaryRefresh().
		Notify(NotificationSuccess, "Statement imported").
		HTML(`<div class="success">Imported ` + strconv.Itoa(n) + ` transactions</div>`).
		Write(w)
}

// handleSummaryPartial renders the budget-vs-actual section, optionally for
// one month.
func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	username, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	params, filtered, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid month").Write(w)
		return
	}

	var cmp core.Comparison
	if filtered {
		cmp, err = s.svc.MonthSummary(r.Context(), username, params.Year, params.Month)
	} else {
		cmp, err = s.svc.Summary(r.Context(), username)
	}
	if err != nil {
		s.logError(r, "Failed to build summary", err, username)
		ErrorResponse(http.StatusInternalServerError, "Error loading summary").Write(w)
		return
	}

	html, err := s.render("summary.html", newSummaryView(username, cmp))
	if err != nil {
		s.logError(r, "Failed to render summary", err, username)
		ErrorResponse(http.StatusInternalServerError, "Error rendering summary").Write(w)
		return
	}
	NewHTMXResponse().HTML(html).Write(w)
}
