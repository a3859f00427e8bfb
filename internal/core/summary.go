package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// CategoryComparison lines up the budgeted and actual amount for one category.
// A category appearing on only one side has zero on the other.
type CategoryComparison struct {
	Category string
	Budgeted Money
	Actual   Money
}

// Remaining is budgeted minus actual; negative when overspent.
func (c CategoryComparison) Remaining() Money {
	return c.Budgeted.Sub(c.Actual)
}

// Comparison is the budget-vs-actual view of a user record.
type Comparison struct {
	// Year and Month are zero when the comparison covers the whole ledger.
	Year  int
	Month int
	// HasTaxSummary is false until an income profile has been saved; the
	// income figures are zero then.
	HasTaxSummary    bool
	MonthlyNetIncome Money
	EstimatedSpend   Money
	ExpectedSavings  Money
	TotalExpenses    Money
	Rows             []CategoryComparison
}

// Compare builds the comparison over every expense on record.
func Compare(r UserRecord) Comparison {
	return compare(r, r.Expenses, 0, 0)
}

// CompareMonth builds the comparison for expenses dated in year/month only.
func CompareMonth(r UserRecord, year, month int) Comparison {
	var in []Expense
	for _, e := range r.Expenses {
		if e.Date.Year() == year && e.Date.Month() == month {
			in = append(in, e)
		}
	}
	return compare(r, in, year, month)
}

func compare(r UserRecord, expenses []Expense, year, month int) Comparison {
	c := Comparison{Year: year, Month: month, HasTaxSummary: r.TaxSummary != nil}
	if r.TaxSummary != nil {
		c.MonthlyNetIncome = FromDollars(r.TaxSummary.MonthlyNetIncome())
	}
	c.EstimatedSpend = r.Budget.Total()
	c.ExpectedSavings = c.MonthlyNetIncome.Sub(c.EstimatedSpend)

	actual := make(map[string]Money)
	for _, e := range expenses {
		actual[e.Category] = actual[e.Category].Add(e.Amount)
		c.TotalExpenses = c.TotalExpenses.Add(e.Amount)
	}

	all := make(map[string]struct{}, len(r.Budget)+len(actual))
	for k := range r.Budget {
		all[k] = struct{}{}
	}
	for k := range actual {
		all[k] = struct{}{}
	}
	for _, name := range orderCategories(all) {
		c.Rows = append(c.Rows, CategoryComparison{
			Category: name,
			Budgeted: r.Budget[name],
			Actual:   actual[name],
		})
	}
	// Largest categories first; ties keep the category order.
	sort.SliceStable(c.Rows, func(i, j int) bool {
		a := c.Rows[i].Budgeted.Cents + c.Rows[i].Actual.Cents
		b := c.Rows[j].Budgeted.Cents + c.Rows[j].Actual.Cents
		return a > b
	})
	return c
}

// ByCategory totals expenses per category, largest first.
func ByCategory(expenses []Expense) []CategoryAmount {
	totals := make(map[string]Money)
	for _, e := range expenses {
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	out := make([]CategoryAmount, 0, len(totals))
	for _, name := range orderCategories(totals) {
		out = append(out, CategoryAmount{Name: name, Amount: totals[name]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount.Cents > out[j].Amount.Cents })
	return out
}
