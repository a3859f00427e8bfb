// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// It reduces code duplication by providing reusable functions for common
// form parsing, date extraction, and input sanitization patterns.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finpal/internal/core"
)

// maxFormBody bounds urlencoded and JSON bodies; statements have their own limit.
const maxFormBody = 64 << 10

// MonthParams holds a parsed year/month filter.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads an optional month filter from the query, either as
// month=YYYY-MM or as year=YYYY&month=M. ok is false when no filter is given.
func ParseMonthParams(query url.Values) (params MonthParams, ok bool, err error) {
	month := strings.TrimSpace(query.Get("month"))
	year := strings.TrimSpace(query.Get("year"))
	if month == "" {
		return MonthParams{}, false, nil
	}

	if y, m, found := strings.Cut(month, "-"); found && year == "" {
		year, month = y, m
	}
	if year == "" {
		year = strconv.Itoa(time.Now().Year())
	}

	params.Year, err = strconv.Atoi(year)
	if err != nil || params.Year < 1 {
		return MonthParams{}, false, errors.New("invalid year")
	}
	params.Month, err = strconv.Atoi(month)
	if err != nil || params.Month < 1 || params.Month > 12 {
		return MonthParams{}, false, core.ErrInvalidMonth
	}
	return params, true, nil
}

// ParseExpenseDate reads the "date" form value (YYYY-MM-DD), defaulting to
// today in UTC.
func ParseExpenseDate(form url.Values) (core.Date, error) {
	v := strings.TrimSpace(form.Get("date"))
	if v == "" {
		now := time.Now().UTC()
		return core.NewDate(now.Year(), int(now.Month()), now.Day()), nil
	}
	return core.ParseDate(v)
}

// parseBool accepts the usual checkbox and JSON spellings.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "on", "true", "yes", "y":
		return true
	default:
		return false
	}
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads at most maxFormBody bytes of the body once.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxFormBody))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Bool reports whether key holds a truthy value. Absent keys are false,
// matching unchecked checkboxes.
func (p *RequestBodyParser) Bool(key string) bool {
	return parseBool(p.Get(key))
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(w http.ResponseWriter, r *http.Request) *HTMXResponse {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		return ErrorResponse(http.StatusBadRequest, "Invalid request format")
	}
	return nil
}
