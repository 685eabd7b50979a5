package codec

// convert.go turns CSV cell text into typed values and back.
//
// Archives written by this package are clean, but archives are also edited in
// spreadsheets before they come back, so the parsers accept the usual noise:
//   - Currency symbols, thousands separators and accounting negatives "(1.00)"
//   - Several date layouts besides RFC 3339
//   - yes/no, y/n and 1/0 booleans
//   - Excel formula prefixes (="value")

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	errInvalidNumber = errors.New("invalid number format")
	errInvalidDate   = errors.New("invalid date format")
	errInvalidBool   = errors.New("must be yes/no, true/false, or 1/0")
)

// numericRegex validates that a string is a plain decimal after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

var (
	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// ParseDecimal parses an exact decimal. Empty input yields zero and no error.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = CleanCell(s)
	if s == "" {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "\u20ac", "") // Euro
	s = strings.ReplaceAll(s, "\u00a3", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if !numericRegex.MatchString(s) {
		return decimal.Zero, errInvalidNumber
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errInvalidNumber
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseNullDecimal is ParseDecimal for optional columns: empty input is NULL.
func ParseNullDecimal(s string) (decimal.NullDecimal, error) {
	if CleanCell(s) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := ParseDecimal(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// FormatDecimal renders d without exponent or rounding.
func FormatDecimal(d decimal.Decimal) string {
	return d.String()
}

// FormatNullDecimal renders an optional decimal; NULL is empty.
func FormatNullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// ParseTime parses a timestamp or a plain date. Empty input yields the zero time.
func ParseTime(s string) (time.Time, error) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, nil
		}
	}

	return time.Time{}, errInvalidDate
}

// FormatTime renders t as RFC 3339 with nanoseconds in UTC; the zero time
// is empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseBool accepts true/false, yes/no, t/f, y/n and 1/0. Empty is false.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(CleanCell(s)) {
	case "":
		return false, nil
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	default:
		return false, errInvalidBool
	}
}

// FormatBool renders b as "true" or "false".
func FormatBool(b bool) string {
	return strconv.FormatBool(b)
}

// ParseInt parses a whole number. Empty is zero.
func ParseInt(s string) (int, error) {
	s = CleanCell(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, errInvalidNumber
	}
	return n, nil
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}
