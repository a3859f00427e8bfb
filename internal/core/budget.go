package core

import (
	"sort"
	"strings"
)

// DefaultCategories seeds a new user's budget, in display order.
var DefaultCategories = []string{
	"Rent",
	"Groceries",
	"Transportation",
	"Entertainment",
	"Utilities",
	"Gym",
	"Internet",
}

// OtherCategory is used for imported transactions that carry no category.
const OtherCategory = "Other"

// Budget maps a category name to its planned monthly amount.
type Budget map[string]Money

// NewBudget returns a budget holding every default category at zero.
func NewBudget() Budget {
	b := make(Budget, len(DefaultCategories))
	for _, c := range DefaultCategories {
		b[c] = Money{}
	}
	return b
}

// WithDefaults returns a copy of b with any missing default category added at zero.
func (b Budget) WithDefaults() Budget {
	out := make(Budget, len(b)+len(DefaultCategories))
	for _, c := range DefaultCategories {
		out[c] = Money{}
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Set assigns amount to category. Blank category names and negative amounts are rejected.
func (b Budget) Set(category string, amount Money) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return ErrEmptyCategory
	}
	if amount.Cents < 0 {
		return ErrNegativeBudget
	}
	b[category] = amount
	return nil
}

// Total sums every category.
func (b Budget) Total() Money {
	var t Money
	for _, v := range b {
		t = t.Add(v)
	}
	return t
}

// Categories lists the default categories first in their fixed order,
// then any custom categories alphabetically.
func (b Budget) Categories() []string {
	return orderCategories(b)
}

func orderCategories[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	seen := make(map[string]bool, len(DefaultCategories))
	for _, c := range DefaultCategories {
		if _, ok := m[c]; ok {
			out = append(out, c)
			seen[c] = true
		}
	}
	var extra []string
	for c := range m {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
