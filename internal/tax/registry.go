package tax

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
)

//go:embed data/state_brackets_2024.csv
var stateBrackets2024 []byte

// ErrMalformedTable is returned when the bracket table cannot be trusted.
var ErrMalformedTable = errors.New("malformed bracket table")

// Row is one (jurisdiction, bracket minimum, marginal rate) entry of a
// bracket table.
type Row struct {
	Jurisdiction string
	Min          float64
	Rate         float64
}

// Registry holds one schedule per jurisdiction. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	schedules map[Jurisdiction]Schedule
}

// NewRegistry groups rows by normalized jurisdiction, orders each group by
// bracket minimum and derives [lower, upper) ranges from consecutive minimums.
func NewRegistry(rows []Row) (*Registry, error) {
	grouped := make(map[Jurisdiction][]Row)
	for _, r := range rows {
		j := Normalize(r.Jurisdiction)
		if j == "" {
			return nil, fmt.Errorf("%w: empty jurisdiction", ErrMalformedTable)
		}
		grouped[j] = append(grouped[j], r)
	}

	schedules := make(map[Jurisdiction]Schedule, len(grouped))
	for j, group := range grouped {
		sort.SliceStable(group, func(a, b int) bool { return group[a].Min < group[b].Min })

		brackets := make([]Bracket, len(group))
		for i, r := range group {
			upper := math.Inf(1)
			if i+1 < len(group) {
				upper = group[i+1].Min
			}
			brackets[i] = Bracket{Lower: r.Min, Upper: upper, Rate: r.Rate}
		}

		s := Schedule{Jurisdiction: j, Brackets: brackets}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedTable, err)
		}
		schedules[j] = s
	}

	return &Registry{schedules: schedules}, nil
}

// Resolve returns the schedule for j, or the flat DefaultSchedule when the
// table has no entry for it. It never fails.
func (r *Registry) Resolve(j Jurisdiction) Schedule {
	if r != nil {
		if s, ok := r.schedules[j]; ok {
			return s.clone()
		}
	}
	return DefaultSchedule(j)
}

// Has reports whether the table contains a schedule for j.
func (r *Registry) Has(j Jurisdiction) bool {
	if r == nil {
		return false
	}
	_, ok := r.schedules[j]
	return ok
}

// Jurisdictions returns the codes present in the table, sorted.
func (r *Registry) Jurisdictions() []Jurisdiction {
	if r == nil {
		return nil
	}
	out := make([]Jurisdiction, 0, len(r.schedules))
	for j := range r.schedules {
		out = append(out, j)
	}
	slices.Sort(out)
	return out
}

// LoadRegistry reads a CSV bracket table with a header row containing
// State (or Jurisdiction), Bracket_Min and Rate columns. Extra columns are
// ignored. Any structural problem is reported as ErrMalformedTable.
func LoadRegistry(r io.Reader) (*Registry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedTable)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrMalformedTable, err)
	}

	colState, colMin, colRate := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "state", "jurisdiction":
			colState = i
		case "bracket_min", "bracket min", "min":
			colMin = i
		case "rate":
			colRate = i
		}
	}
	var missing []string
	if colState == -1 {
		missing = append(missing, "State")
	}
	if colMin == -1 {
		missing = append(missing, "Bracket_Min")
	}
	if colRate == -1 {
		missing = append(missing, "Rate")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s; got %v", ErrMalformedTable, strings.Join(missing, ","), header)
	}
	width := max(colState, colMin, colRate) + 1

	var rows []Row
	seen := make(map[Jurisdiction]map[float64]bool)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedTable, line, err)
		}
		if isBlank(record) {
			continue
		}
		if len(record) < width {
			return nil, fmt.Errorf("%w: line %d: expected at least %d fields, got %d", ErrMalformedTable, line, width, len(record))
		}

		state := strings.TrimSpace(record[colState])
		if state == "" {
			return nil, fmt.Errorf("%w: line %d: empty jurisdiction", ErrMalformedTable, line)
		}
		minimum, err := parseAmount(record[colMin])
		if err != nil || minimum < 0 {
			return nil, fmt.Errorf("%w: line %d: bad bracket minimum %q", ErrMalformedTable, line, record[colMin])
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(record[colRate]), 64)
		if err != nil || rate < 0 || rate > 1 {
			return nil, fmt.Errorf("%w: line %d: bad rate %q", ErrMalformedTable, line, record[colRate])
		}

		j := Normalize(state)
		if seen[j] == nil {
			seen[j] = make(map[float64]bool)
		}
		if seen[j][minimum] {
			return nil, fmt.Errorf("%w: line %d: duplicate bracket minimum %v for %s", ErrMalformedTable, line, minimum, j)
		}
		seen[j][minimum] = true

		rows = append(rows, Row{Jurisdiction: state, Min: minimum, Rate: rate})
	}

	return NewRegistry(rows)
}

// LoadRegistryFile loads a bracket table from path.
func LoadRegistryFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bracket table %s: %w", path, err)
	}
	defer f.Close()

	reg, err := LoadRegistry(f)
	if err != nil {
		return nil, fmt.Errorf("load bracket table %s: %w", path, err)
	}
	return reg, nil
}

// DefaultRegistry returns the registry built from the embedded 2024 table.
func DefaultRegistry() (*Registry, error) {
	return LoadRegistry(bytes.NewReader(stateBrackets2024))
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite amount %q", s)
	}
	return v, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
