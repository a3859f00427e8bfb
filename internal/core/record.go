package core

import (
	"time"

	"finpal/internal/tax"
)

// UserRecord is everything persisted for one user: profile, budget,
// the most recent tax calculation and the expense ledger.
type UserRecord struct {
	Username     string
	Income       Money
	Jurisdiction tax.Jurisdiction
	CityResident bool
	Budget       Budget
	// TaxSummary is nil until a calculation has been run for the current profile.
	TaxSummary *tax.Result
	Expenses   []Expense
	UpdatedAt  time.Time
}

// NewUserRecord returns the record a first-time user starts with.
func NewUserRecord(username string) UserRecord {
	return UserRecord{
		Username:     username,
		Jurisdiction: tax.NY,
		Budget:       NewBudget(),
	}
}

func (r UserRecord) Validate() error {
	if err := ValidateUsername(r.Username); err != nil {
		return err
	}
	if r.Income.Cents < 0 {
		return ErrNegativeIncome
	}
	for _, v := range r.Budget {
		if v.Cents < 0 {
			return ErrNegativeBudget
		}
	}
	for _, e := range r.Expenses {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TotalExpenses sums the whole ledger.
func (r UserRecord) TotalExpenses() Money {
	var t Money
	for _, e := range r.Expenses {
		t = t.Add(e.Amount)
	}
	return t
}

// Clone returns a deep copy so stores and caches never share maps or slices with callers.
func (r UserRecord) Clone() UserRecord {
	out := r
	if r.Budget != nil {
		out.Budget = make(Budget, len(r.Budget))
		for k, v := range r.Budget {
			out.Budget[k] = v
		}
	}
	if r.Expenses != nil {
		out.Expenses = append([]Expense(nil), r.Expenses...)
	}
	if r.TaxSummary != nil {
		ts := *r.TaxSummary
		ts.FederalBreakdown = append([]tax.BreakdownRow(nil), r.TaxSummary.FederalBreakdown...)
		ts.StateBreakdown = append([]tax.BreakdownRow(nil), r.TaxSummary.StateBreakdown...)
		out.TaxSummary = &ts
	}
	return out
}
