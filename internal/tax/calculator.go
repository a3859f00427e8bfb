package tax

import "math"

// Apply returns the progressive tax owed on income under s.
func Apply(income float64, s Schedule) float64 {
	tax, _ := ApplyWithBreakdown(income, s)
	return tax
}

// ApplyWithBreakdown returns the tax owed on income under s together with
// one row per bracket the income reaches. Each dollar is taxed at the rate
// of the bracket it falls in.
func ApplyWithBreakdown(income float64, s Schedule) (float64, []BreakdownRow) {
	var total float64
	rows := make([]BreakdownRow, 0, len(s.Brackets))
	for _, b := range s.Brackets {
		if income <= b.Lower {
			break
		}
		taxed := math.Min(income, b.Upper) - b.Lower
		amount := taxed * b.Rate
		total += amount
		rows = append(rows, BreakdownRow{
			LowerBound:  b.Lower,
			UpperBound:  b.Upper,
			Rate:        b.Rate,
			AmountTaxed: taxed,
			Tax:         amount,
		})
	}
	return total, rows
}

// CityTax is the flat surtax on gross income. It applies only to residents
// of the city-tax jurisdiction.
func CityTax(gross float64, j Jurisdiction, cityResident bool) float64 {
	if !cityResident || !j.HasCityTax() {
		return 0
	}
	return gross * CityTaxRate
}

// Calculator computes tax results against a fixed registry.
// It is safe for concurrent use.
type Calculator struct {
	registry *Registry
	federal  Schedule
}

// NewCalculator returns a Calculator resolving state schedules in reg.
// A nil registry makes every state fall back to the default schedule.
func NewCalculator(reg *Registry) *Calculator {
	return &Calculator{registry: reg, federal: FederalSchedule()}
}

// Registry returns the registry the calculator resolves against.
func (c *Calculator) Registry() *Registry {
	return c.registry
}

// Calculate computes federal, state and city tax on gross income.
// jurisdiction is normalized first; unknown values get the flat default
// state rate. Callers validate that gross is a non-negative number.
func (c *Calculator) Calculate(gross float64, jurisdiction string, cityResident bool) Result {
	j := Normalize(jurisdiction)

	federalTax, federalRows := ApplyWithBreakdown(gross, c.federal)
	stateTax, stateRows := ApplyWithBreakdown(gross, c.registry.Resolve(j))
	cityTax := CityTax(gross, j, cityResident)
	total := federalTax + stateTax + cityTax

	return Result{
		GrossIncome:       gross,
		Jurisdiction:      j,
		CityResident:      cityResident && j.HasCityTax(),
		StandardDeduction: 0,
		TaxableIncome:     gross,
		FederalTax:        federalTax,
		StateTax:          stateTax,
		CityTax:           cityTax,
		TotalTax:          total,
		NetIncome:         gross - total,
		FederalBreakdown:  federalRows,
		StateBreakdown:    stateRows,
	}
}
