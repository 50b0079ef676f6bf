package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		err error
	}{
		{"1", "1", nil},
		{"1,234.56", "1234.56", nil},
		{"1,000,000", "1000000", nil},
		{" 900 ", "900", nil},
		{"-12.5", "-12.5", nil},
		{"", "0", ErrMissingValue},
		{"   ", "0", ErrMissingValue},
		{",", "0", ErrInvalidAmount},
		{"abc", "0", ErrInvalidAmount},
		{"1.2.3", "0", ErrInvalidAmount},
		{"1e3", "0", ErrInvalidAmount},
		{"R$ 10", "0", ErrInvalidAmount},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("%q expected %v, got %v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
		}
	}
}

func TestParseYear(t *testing.T) {
	cases := []struct {
		in  string
		out int
		ok  bool
	}{
		{"2024", 2024, true},
		{" 2025 ", 2025, true},
		{"2024.0", 2024, true},
		{"2024.5", 0, false},
		{"24", 0, false},
		{"20245", 0, false},
		{"two", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseYear(tc.in)
		if tc.ok != (err == nil) || got != tc.out {
			t.Fatalf("%q expected (%d, ok=%v), got (%d, %v)", tc.in, tc.out, tc.ok, got, err)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in    string
		month int
		ok    bool
	}{
		{"01-Jan", 1, true},
		{"10 - Out", 10, true},
		{" 02 - Fev", 2, true},
		{"12", 12, true},
		{"2 - Fev", 2, true},
		{"7", 7, true},
		{"00-Zero", 0, false},
		{"13-Foo", 0, false},
		{"1-Jan", 0, false},
		{"Jan", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.in)
		if tc.ok != (err == nil) || got != tc.month {
			t.Fatalf("%q expected (%d, ok=%v), got (%d, %v)", tc.in, tc.month, tc.ok, got, err)
		}
	}
}

func TestQuarter(t *testing.T) {
	want := []int{1, 1, 1, 2, 2, 2, 3, 3, 3, 4, 4, 4}
	for m := 1; m <= 12; m++ {
		if got := Quarter(m); got != want[m-1] {
			t.Fatalf("month %d: quarter %d, want %d", m, got, want[m-1])
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	cases := map[string]string{
		"0":          "R$ 0",
		"999":        "R$ 999",
		"1200":       "R$ 1.200",
		"1234567.8":  "R$ 1.234.568",
		"-1500":      "-R$ 1.500",
		"-0.4":       "R$ 0",
		"1000000000": "R$ 1.000.000.000",
	}
	for in, want := range cases {
		if got := FormatCurrency(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatCurrency(%s) = %q, want %q", in, got, want)
		}
	}

	usd := CurrencyFormat{Symbol: "$", Thousands: ",", Decimal: ".", Places: 2}
	if got := usd.Format(decimal.RequireFromString("-1234.5")); got != "-$ 1,234.50" {
		t.Errorf("usd format = %q", got)
	}
}

func TestFormatCompact(t *testing.T) {
	cases := map[string]string{
		"0":         "0",
		"0.4":       "0",
		"999":       "999",
		"1000":      "1.0K",
		"1500":      "1.5K",
		"1250000":   "1.3M",
		"2000000":   "2.0M",
		"-2500":     "-2.5K",
		"-3400000":  "-3.4M",
		"-12.6":     "-13",
		"999.4":     "999",
		"999.6":     "1.0K",
		"999949":    "999.9K",
		"999950":    "1.0M",
		"999999.99": "1.0M",
		"-999.6":    "-1.0K",
	}
	for in, want := range cases {
		if got := FormatCompact(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatCompact(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatPercentAndRatio(t *testing.T) {
	if got := FormatPercent(decimal.RequireFromString("-33.3333"), 1); got != "-33.3%" {
		t.Fatalf("percent = %q", got)
	}
	if got := FormatPercent(decimal.RequireFromString("-0.01"), 1); got != "0.0%" {
		t.Fatalf("negative zero percent = %q", got)
	}
	if got := FormatSignedPercent(decimal.RequireFromString("20"), 1); got != "+20.0%" {
		t.Fatalf("signed percent = %q", got)
	}
	if got := FormatSignedPercent(decimal.RequireFromString("-5"), 0); got != "-5%" {
		t.Fatalf("signed negative percent = %q", got)
	}
	if got := FormatRatio(decimal.RequireFromString("1.2")); got != "120.0%" {
		t.Fatalf("ratio = %q", got)
	}
}
