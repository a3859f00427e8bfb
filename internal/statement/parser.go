// Package statement reads bank statement exports into expenses.
package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"finpal/internal/core"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

var dateLayouts = []string{
	time.DateOnly,
	"01/02/2006",
	"1/2/2006",
}

const maxDescription = 200

// Parse reads a CSV statement. The header must name "date" and "amount"
// columns; "description" and "category" are optional. Header names are
// matched case-insensitively.
//
// A statement where any amount is negative (or in parentheses) is signed:
// its negative rows are debits and are stored as positive expenses, while
// its positive rows are credits and are skipped. A statement with no
// negative amounts lists spending only, and every row is an expense.
// Zero-amount rows are always skipped.
func Parse(r io.Reader) ([]core.Expense, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("statement is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := map[string]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	for _, required := range []string{"date", "amount"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var (
		expenses []core.Expense
		signed   []bool // per expense: written as a debit
		anyDebit bool
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading statement: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}

		date, err := parseDate(field(record, "date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cents, err := parseAmount(field(record, "amount"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if cents == 0 {
			continue
		}
		debit := cents < 0
		if debit {
			cents = -cents
			anyDebit = true
		}

		category := field(record, "category")
		if category == "" {
			category = core.OtherCategory
		}
		description := truncate(field(record, "description"), maxDescription)

		expenses = append(expenses, core.Expense{
			Date:        date,
			Amount:      core.Money{Cents: cents},
			Category:    category,
			Description: description,
			Source:      core.SourceStatement,
		})
		signed = append(signed, debit)
	}
	if !anyDebit {
		return expenses, nil
	}
	debits := expenses[:0]
	for i, e := range expenses {
		if signed[i] {
			debits = append(debits, e)
		}
	}
	return debits, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func parseDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, fmt.Errorf("missing date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.Date{Time: t}, nil
		}
	}
	return core.Date{}, fmt.Errorf("could not parse date '%s'", s)
}

// parseAmount returns a statement amount in cents, negative for debits.
func parseAmount(s string) (int64, error) {
	raw := s
	// "-$12.50", "$-12.50" and "($12.50)" all mean a 12.50 debit.
	negative := strings.ContainsAny(s, "-(")
	s = strings.Trim(s, " ()+-$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("missing amount")
	}
	if strings.Trim(s, "0.") == "" {
		return 0, nil
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return 0, fmt.Errorf("could not parse amount '%s': %w", raw, err)
	}
	if negative {
		cents = -cents
	}
	return cents, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
