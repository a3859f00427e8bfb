// Package tax computes progressive federal and state income tax.
//
// Schedules are plain values. Federal brackets are a constant, state brackets
// come from a Registry built once from a bracket table and shared read-only
// afterwards. A Calculator combines both with the city surtax rule.
package tax

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

const (
	// DefaultStateRate is the flat rate used when a jurisdiction has no
	// schedule in the registry.
	DefaultStateRate = 0.04

	// CityTaxRate is the flat surtax on gross income for city residents.
	CityTaxRate = 0.03876

	// CityTaxJurisdiction is the only state with a city surtax provision.
	CityTaxJurisdiction = NY

	// Federal marks the federal schedule.
	Federal Jurisdiction = "US"
)

var ErrInvalidSchedule = errors.New("invalid tax schedule")

// Bracket is one tier of a progressive schedule: income in [Lower, Upper)
// is taxed at Rate. The top tier has Upper == +Inf.
type Bracket struct {
	Lower float64
	Upper float64
	Rate  float64
}

// Unbounded reports whether b is the open-ended top tier.
func (b Bracket) Unbounded() bool {
	return math.IsInf(b.Upper, 1)
}

// Schedule is an ordered list of brackets for one jurisdiction.
type Schedule struct {
	Jurisdiction Jurisdiction
	Brackets     []Bracket
}

// Validate checks that brackets are sorted, contiguous, non-negative, use
// rates in [0, 1] and end with an unbounded tier.
func (s Schedule) Validate() error {
	if len(s.Brackets) == 0 {
		return fmt.Errorf("%w: %s has no brackets", ErrInvalidSchedule, s.Jurisdiction)
	}
	for i, b := range s.Brackets {
		if b.Lower < 0 || math.IsNaN(b.Lower) {
			return fmt.Errorf("%w: %s bracket %d has negative lower bound", ErrInvalidSchedule, s.Jurisdiction, i)
		}
		if b.Rate < 0 || b.Rate > 1 || math.IsNaN(b.Rate) {
			return fmt.Errorf("%w: %s bracket %d rate %v outside [0,1]", ErrInvalidSchedule, s.Jurisdiction, i, b.Rate)
		}
		if !(b.Upper > b.Lower) {
			return fmt.Errorf("%w: %s bracket %d is empty", ErrInvalidSchedule, s.Jurisdiction, i)
		}
		if i > 0 && s.Brackets[i-1].Upper != b.Lower {
			return fmt.Errorf("%w: %s bracket %d does not start where bracket %d ends", ErrInvalidSchedule, s.Jurisdiction, i, i-1)
		}
	}
	if !s.Brackets[len(s.Brackets)-1].Unbounded() {
		return fmt.Errorf("%w: %s top bracket must be unbounded", ErrInvalidSchedule, s.Jurisdiction)
	}
	return nil
}

func (s Schedule) clone() Schedule {
	return Schedule{Jurisdiction: s.Jurisdiction, Brackets: slices.Clone(s.Brackets)}
}

// 2024 single filer.
var federal = Schedule{
	Jurisdiction: Federal,
	Brackets: []Bracket{
		{Lower: 0, Upper: 11000, Rate: 0.10},
		{Lower: 11000, Upper: 44725, Rate: 0.12},
		{Lower: 44725, Upper: 95375, Rate: 0.22},
		{Lower: 95375, Upper: 182100, Rate: 0.24},
		{Lower: 182100, Upper: 231250, Rate: 0.32},
		{Lower: 231250, Upper: 578125, Rate: 0.35},
		{Lower: 578125, Upper: math.Inf(1), Rate: 0.37},
	},
}

// FederalSchedule returns the federal single-filer schedule.
func FederalSchedule() Schedule {
	return federal.clone()
}

// DefaultSchedule is the flat fallback used for jurisdictions missing from
// the bracket table.
func DefaultSchedule(j Jurisdiction) Schedule {
	return Schedule{
		Jurisdiction: j,
		Brackets:     []Bracket{{Lower: 0, Upper: math.Inf(1), Rate: DefaultStateRate}},
	}
}
