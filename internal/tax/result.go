package tax

import (
	"encoding/json"
	"math"
)

// BreakdownRow is one bracket's contribution to a tax amount.
type BreakdownRow struct {
	LowerBound  float64
	UpperBound  float64 // +Inf for the top bracket
	Rate        float64
	AmountTaxed float64
	Tax         float64
}

// Unbounded reports whether the row belongs to the open-ended top bracket.
func (r BreakdownRow) Unbounded() bool {
	return math.IsInf(r.UpperBound, 1)
}

type breakdownRowJSON struct {
	LowerBound  float64  `json:"lower_bound"`
	UpperBound  *float64 `json:"upper_bound"`
	Rate        float64  `json:"rate"`
	AmountTaxed float64  `json:"amount_taxed"`
	Tax         float64  `json:"tax"`
}

// MarshalJSON writes an unbounded upper bound as null.
func (r BreakdownRow) MarshalJSON() ([]byte, error) {
	out := breakdownRowJSON{
		LowerBound:  r.LowerBound,
		Rate:        r.Rate,
		AmountTaxed: r.AmountTaxed,
		Tax:         r.Tax,
	}
	if !r.Unbounded() {
		upper := r.UpperBound
		out.UpperBound = &upper
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null upper bound back as +Inf.
func (r *BreakdownRow) UnmarshalJSON(data []byte) error {
	var in breakdownRowJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = BreakdownRow{
		LowerBound:  in.LowerBound,
		UpperBound:  math.Inf(1),
		Rate:        in.Rate,
		AmountTaxed: in.AmountTaxed,
		Tax:         in.Tax,
	}
	if in.UpperBound != nil {
		r.UpperBound = *in.UpperBound
	}
	return nil
}

// Result is the outcome of one calculation. It holds no reference to the
// schedules that produced it.
type Result struct {
	GrossIncome       float64        `json:"gross_income"`
	Jurisdiction      Jurisdiction   `json:"jurisdiction"`
	CityResident      bool           `json:"city_resident"`
	StandardDeduction float64        `json:"standard_deduction"`
	TaxableIncome     float64        `json:"taxable_income"`
	FederalTax        float64        `json:"federal_tax"`
	StateTax          float64        `json:"state_tax"`
	CityTax           float64        `json:"city_tax"`
	TotalTax          float64        `json:"total_tax"`
	NetIncome         float64        `json:"net_income"`
	FederalBreakdown  []BreakdownRow `json:"federal_breakdown"`
	StateBreakdown    []BreakdownRow `json:"state_breakdown"`
}

// MonthlyNetIncome spreads net income over twelve months.
func (r Result) MonthlyNetIncome() float64 {
	return r.NetIncome / 12
}

// EffectiveRate is total tax as a fraction of gross income.
func (r Result) EffectiveRate() float64 {
	if r.GrossIncome <= 0 {
		return 0
	}
	return r.TotalTax / r.GrossIncome
}
