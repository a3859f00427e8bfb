package http

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"finpal/internal/core"
	"finpal/internal/tax"
)

type bracketView struct {
	Lower, Upper, Rate, Taxed, Tax string
}

type taxView struct {
	Gross         string
	Jurisdiction  string
	CityResident  bool
	Federal       string
	State         string
	City          string
	Total         string
	Net           string
	MonthlyNet    string
	EffectiveRate string
	FederalRows   []bracketView
	StateRows     []bracketView
}

func newTaxView(res tax.Result) *taxView {
	v := &taxView{
		Gross:         formatDollars(res.GrossIncome),
		Jurisdiction:  res.Jurisdiction.Name(),
		CityResident:  res.CityResident,
		Federal:       formatDollars(res.FederalTax),
		State:         formatDollars(res.StateTax),
		City:          formatDollars(res.CityTax),
		Total:         formatDollars(res.TotalTax),
		Net:           formatDollars(res.NetIncome),
		MonthlyNet:    formatDollars(res.MonthlyNetIncome()),
		EffectiveRate: formatRate(res.EffectiveRate()),
	}
	v.FederalRows = bracketRows(res.FederalBreakdown)
	v.StateRows = bracketRows(res.StateBreakdown)
	return v
}

func bracketRows(rows []tax.BreakdownRow) []bracketView {
	out := make([]bracketView, 0, len(rows))
	for _, r := range rows {
		out = append(out, bracketView{
			Lower: formatDollars(r.LowerBound),
			Upper: formatUpperBound(r),
			Rate:  formatRate(r.Rate),
			Taxed: formatDollars(r.AmountTaxed),
			Tax:   formatDollars(r.Tax),
		})
	}
	return out
}

type comparisonRowView struct {
	Category  string
	Budgeted  string
	Actual    string
	Remaining string
	Over      bool
	Width     int
}

type summaryView struct {
	Username        string
	Period          string
	HasTax          bool
	MonthlyNet      string
	EstimatedSpend  string
	ExpectedSavings string
	SavingsNegative bool
	TotalExpenses   string
	Rows            []comparisonRowView
}

func newSummaryView(username string, cmp core.Comparison) summaryView {
	v := summaryView{
		Username:        username,
		Period:          "All time",
		HasTax:          cmp.HasTaxSummary,
		MonthlyNet:      cmp.MonthlyNetIncome.String(),
		EstimatedSpend:  cmp.EstimatedSpend.String(),
		ExpectedSavings: cmp.ExpectedSavings.String(),
		SavingsNegative: cmp.ExpectedSavings.Cents < 0,
		TotalExpenses:   cmp.TotalExpenses.String(),
	}
	if cmp.Month != 0 {
		v.Period = time.Month(cmp.Month).String() + " " + strconv.Itoa(cmp.Year)
	}
	for _, row := range cmp.Rows {
		rv := comparisonRowView{
			Category:  row.Category,
			Budgeted:  row.Budgeted.String(),
			Actual:    row.Actual.String(),
			Remaining: row.Remaining().String(),
			Over:      row.Remaining().Cents < 0,
		}
		// Share of budget used, for the progress bar.
		switch {
		case row.Budgeted.Cents > 0:
			rv.Width = int(min(100, row.Actual.Cents*100/row.Budgeted.Cents))
		case row.Actual.Cents > 0:
			rv.Width = 100
		}
		v.Rows = append(v.Rows, rv)
	}
	return v
}

type jurisdictionOption struct {
	Code     string
	Name     string
	Selected bool
}

type budgetLine struct {
	Category string
	Amount   string
}

type expenseView struct {
	Date        string
	Category    string
	Description string
	Amount      string
	Source      string
}

type pageView struct {
	Username      string
	Income        string
	CityResident  bool
	Jurisdictions []jurisdictionOption
	Budget        []budgetLine
	Tax           *taxView
	Summary       summaryView
	Expenses      []expenseView
	Today         string
}

// recentExpenseLimit caps the expense list on the budget page.
const recentExpenseLimit = 15

func newPageView(rec core.UserRecord, cmp core.Comparison, today time.Time) pageView {
	v := pageView{
		Username:     rec.Username,
		CityResident: rec.CityResident,
		Summary:      newSummaryView(rec.Username, cmp),
		Today:        today.Format(time.DateOnly),
	}
	if rec.Income.Cents > 0 || rec.TaxSummary != nil {
		v.Income = fmt.Sprintf("%d.%02d", rec.Income.Cents/100, rec.Income.Cents%100)
	}
	if rec.TaxSummary != nil {
		v.Tax = newTaxView(*rec.TaxSummary)
	}

	for _, j := range tax.All {
		v.Jurisdictions = append(v.Jurisdictions, jurisdictionOption{
			Code:     string(j),
			Name:     j.Name(),
			Selected: j == rec.Jurisdiction,
		})
	}

	for _, c := range rec.Budget.Categories() {
		amt := rec.Budget[c]
		v.Budget = append(v.Budget, budgetLine{
			Category: c,
			Amount:   fmt.Sprintf("%d.%02d", amt.Cents/100, amt.Cents%100),
		})
	}

	// Newest first; stable so same-day entries keep insertion order reversed.
	expenses := slices.Clone(rec.Expenses)
	slices.Reverse(expenses)
	slices.SortStableFunc(expenses, func(a, b core.Expense) int {
		return b.Date.Compare(a.Date.Time)
	})
	if len(expenses) > recentExpenseLimit {
		expenses = expenses[:recentExpenseLimit]
	}
	for _, e := range expenses {
		v.Expenses = append(v.Expenses, expenseView{
			Date:        e.Date.String(),
			Category:    e.Category,
			Description: e.Description,
			Amount:      e.Amount.String(),
			Source:      string(e.Source),
		})
	}
	return v
}

type categoryJSON struct {
	Category       string `json:"category"`
	BudgetedCents  int64  `json:"budgeted_cents"`
	ActualCents    int64  `json:"actual_cents"`
	RemainingCents int64  `json:"remaining_cents"`
}

type comparisonJSON struct {
	Username              string         `json:"username"`
	Year                  int            `json:"year,omitempty"`
	Month                 int            `json:"month,omitempty"`
	MonthlyNetIncomeCents int64          `json:"monthly_net_income_cents"`
	EstimatedSpendCents   int64          `json:"estimated_spend_cents"`
	ExpectedSavingsCents  int64          `json:"expected_savings_cents"`
	TotalExpensesCents    int64          `json:"total_expenses_cents"`
	Categories            []categoryJSON `json:"categories"`
	Tax                   *tax.Result    `json:"tax,omitempty"`
}

func newComparisonJSON(rec core.UserRecord, cmp core.Comparison) comparisonJSON {
	out := comparisonJSON{
		Username:              rec.Username,
		Year:                  cmp.Year,
		Month:                 cmp.Month,
		MonthlyNetIncomeCents: cmp.MonthlyNetIncome.Cents,
		EstimatedSpendCents:   cmp.EstimatedSpend.Cents,
		ExpectedSavingsCents:  cmp.ExpectedSavings.Cents,
		TotalExpensesCents:    cmp.TotalExpenses.Cents,
		Categories:            make([]categoryJSON, 0, len(cmp.Rows)),
		Tax:                   rec.TaxSummary,
	}
	for _, row := range cmp.Rows {
		out.Categories = append(out.Categories, categoryJSON{
			Category:       row.Category,
			BudgetedCents:  row.Budgeted.Cents,
			ActualCents:    row.Actual.Cents,
			RemainingCents: row.Remaining().Cents,
		})
	}
	return out
}
