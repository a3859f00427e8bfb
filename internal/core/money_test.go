package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseIncomeToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"0", 0, true},
		{"85000", 8500000, true},
		{"$85000", 8500000, true},
		{"85,000", 8500000, true},
		{"85,000.50", 8500050, true},
		{"1,250,000", 125000000, true},
		{"100000.999", 10000100, true},
		{"-1", 0, false},
		{"-0", 0, false},
		{"lots", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseIncomeToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFromDollars(t *testing.T) {
	cases := map[float64]int64{
		0:        0,
		6307.5:   630750,
		7500.125: 750013,
		-2.5:     -250,
	}
	for in, want := range cases {
		if got := FromDollars(in).Cents; got != want {
			t.Fatalf("FromDollars(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestFormatDollars(t *testing.T) {
	cases := map[int64]string{
		0:         "$0.00",
		5:         "$0.05",
		123456:    "$1,234.56",
		100000000: "$1,000,000.00",
		-250:      "-$2.50",
	}
	for in, want := range cases {
		if got := FormatDollars(in); got != want {
			t.Fatalf("FormatDollars(%d) = %q, want %q", in, got, want)
		}
	}
}
