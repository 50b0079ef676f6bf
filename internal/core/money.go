// Package core provides the revenue domain types together with the parsing
// and formatting rules for monetary values and calendar keys.
//
// Parsing and formatting are deliberately split: commas are stripped as
// thousands separators exactly once, when a cell is parsed, and display
// strings are only produced from already-typed decimals.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
)

// ParseAmount converts a monetary cell to a decimal.
//
// Commas are thousands separators and are removed before parsing; the dot is
// the decimal point. A leading sign is accepted. Blank input returns
// ErrMissingValue so callers can tell "no value" from "bad value".
//
// Examples:
//
//	ParseAmount("1,234.50") -> 1234.5, nil
//	ParseAmount(" 900 ")    -> 900, nil
//	ParseAmount("")         -> 0, ErrMissingValue
//	ParseAmount("12a")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrMissingValue
	}
	s = strings.ReplaceAll(s, ",", "")

	body := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	intPart, fracPart, _ := strings.Cut(body, ".")
	if intPart == "" && fracPart == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return decimal.Zero, ErrInvalidAmount
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseYear accepts a four digit year, also when a spreadsheet rendered the
// number with a zero fraction ("2024.0").
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMissingValue
	}
	if y, err := strconv.Atoi(s); err == nil {
		return checkYear(y)
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, ErrInvalidYear
	}
	return checkYear(int(d.IntPart()))
}

func checkYear(y int) (int, error) {
	if y < 1000 || y > 9999 {
		return 0, ErrInvalidYear
	}
	return y, nil
}

// ParsePeriod reads the month number from the first two characters of a
// period label such as "01 - Jan", "10-Out" or "2 - Fev".
func ParsePeriod(label string) (int, error) {
	label = strings.TrimSpace(label)
	if len(label) > 2 {
		label = label[:2]
	}
	digits := strings.TrimSpace(label)
	if digits == "" {
		return 0, ErrInvalidPeriod
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, ErrInvalidPeriod
		}
	}
	month, _ := strconv.Atoi(digits)
	if month < 1 || month > 12 {
		return 0, ErrInvalidPeriod
	}
	return month, nil
}

// Quarter maps a month number (1-12) to its quarter (1-4).
func Quarter(month int) int {
	return (month-1)/3 + 1
}

// CurrencyFormat describes how money is rendered for display.
type CurrencyFormat struct {
	Symbol    string
	Thousands string
	Decimal   string
	Places    int32
}

// BRL renders whole reais with dot grouping, e.g. "R$ 1.200".
var BRL = CurrencyFormat{Symbol: "R$", Thousands: ".", Decimal: ",", Places: 0}

// Format renders d with the configured symbol and separators. Negative
// values get a leading minus sign; values that round to zero never do.
func (f CurrencyFormat) Format(d decimal.Decimal) string {
	abs := d.Abs().Round(f.Places)
	intPart, fracPart, _ := strings.Cut(abs.StringFixed(f.Places), ".")

	out := groupThousands(intPart, f.Thousands)
	if f.Places > 0 {
		out += f.Decimal + fracPart
	}
	if f.Symbol != "" {
		out = f.Symbol + " " + out
	}
	if d.IsNegative() && !abs.IsZero() {
		out = "-" + out
	}
	return out
}

// FormatCurrency renders d using the BRL format.
func FormatCurrency(d decimal.Decimal) string {
	return BRL.Format(d)
}

// FormatCompact renders d with an M suffix at or above one million and a K
// suffix at or above one thousand, both at one decimal place; smaller values
// are rounded to an integer. The unit is chosen after rounding, so 999.6
// renders as "1.0K" rather than "1000".
func FormatCompact(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	abs := d.Abs()

	if r := abs.Round(0); r.LessThan(thousand) {
		if r.IsZero() {
			return "0"
		}
		return sign + r.String()
	}
	if k := abs.Div(thousand).Round(1); k.LessThan(thousand) {
		return sign + k.StringFixed(1) + "K"
	}
	return sign + abs.Div(million).StringFixed(1) + "M"
}

// FormatPercent renders an already scaled percentage, e.g. -33.333 -> "-33.3%".
func FormatPercent(pct decimal.Decimal, places int32) string {
	s := pct.StringFixed(places)
	if strings.Trim(s, "-0.") == "" {
		s = strings.TrimPrefix(s, "-")
	}
	return s + "%"
}

// FormatSignedPercent is FormatPercent with an explicit "+" for gains.
func FormatSignedPercent(pct decimal.Decimal, places int32) string {
	s := FormatPercent(pct, places)
	if pct.Round(places).IsPositive() {
		return "+" + s
	}
	return s
}

// FormatRatio renders a ratio as a percentage with one decimal, 1.2 -> "120.0%".
func FormatRatio(r decimal.Decimal) string {
	return FormatPercent(r.Mul(hundred), 1)
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 || sep == "" {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
