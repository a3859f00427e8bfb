package sheets

import (
	"time"

	"finpal/internal/core"
	"finpal/internal/tax"
)

// SummaryRows lays out a user's export as a grid of cells: the tax summary
// block, the federal and state bracket breakdowns, then budget vs actual.
// Money cells are plain dollar numbers so spreadsheets can format them.
func SummaryRows(rec core.UserRecord, cmp core.Comparison) [][]any {
	rows := [][]any{
		{"FinPal summary", rec.Username},
		{"Updated", formatTime(rec.UpdatedAt)},
		{},
	}

	ts := rec.TaxSummary
	if ts == nil {
		rows = append(rows,
			[]any{"Gross income", rec.Income.Dollars()},
			[]any{"Jurisdiction", string(rec.Jurisdiction)},
			[]any{"Taxes", "not calculated"},
		)
	} else {
		rows = append(rows,
			[]any{"Gross income", ts.GrossIncome},
			[]any{"Jurisdiction", string(ts.Jurisdiction)},
			[]any{"City resident", ts.CityResident},
			[]any{"Federal tax", ts.FederalTax},
			[]any{"State tax", ts.StateTax},
			[]any{"City tax", ts.CityTax},
			[]any{"Total tax", ts.TotalTax},
			[]any{"Net income", ts.NetIncome},
			[]any{"Monthly net income", ts.MonthlyNetIncome()},
			[]any{"Effective rate", ts.EffectiveRate()},
			[]any{},
		)
		rows = appendBreakdown(rows, "Federal brackets", ts.FederalBreakdown)
		rows = append(rows, []any{})
		rows = appendBreakdown(rows, "State brackets", ts.StateBreakdown)
	}

	rows = append(rows,
		[]any{},
		[]any{"Category", "Budgeted", "Actual", "Remaining"},
	)
	for _, r := range cmp.Rows {
		rows = append(rows, []any{r.Category, r.Budgeted.Dollars(), r.Actual.Dollars(), r.Remaining().Dollars()})
	}
	rows = append(rows,
		[]any{"Total", cmp.EstimatedSpend.Dollars(), cmp.TotalExpenses.Dollars(), cmp.EstimatedSpend.Sub(cmp.TotalExpenses).Dollars()},
		[]any{},
		[]any{"Monthly net income", cmp.MonthlyNetIncome.Dollars()},
		[]any{"Expected savings", cmp.ExpectedSavings.Dollars()},
	)
	return rows
}

func appendBreakdown(rows [][]any, title string, breakdown []tax.BreakdownRow) [][]any {
	rows = append(rows,
		[]any{title},
		[]any{"Lower", "Upper", "Rate", "Taxed", "Tax"},
	)
	for _, b := range breakdown {
		var upper any = b.UpperBound
		if b.Unbounded() {
			upper = "and above"
		}
		rows = append(rows, []any{b.LowerBound, upper, b.Rate, b.AmountTaxed, b.Tax})
	}
	return rows
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
