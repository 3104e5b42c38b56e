package schema

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// Spreadsheet serial numbers accepted as dates: 1900-01-01 .. 9999-12-31
const (
	minSerialDate = 1
	maxSerialDate = 2958465
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1-2-06",
	"02 Jan 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"20060102",
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3:04:05 PM",
	"3 PM",
	"3PM",
}

// ToText renders a raw value as trimmed text
func ToText(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case json.Number:
		return v.String(), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

func isBlank(raw any) bool {
	_, ok := ToText(raw)
	return !ok
}

// ParseEmail trims and lower-cases an address. Format is checked by validation.
func ParseEmail(raw any) (any, bool) {
	s, ok := ToText(raw)
	if !ok {
		return nil, false
	}
	return strings.ToLower(s), true
}

// ParseDecimal parses a locale-invariant number: '.' is the decimal
// separator and ',' is accepted only as a thousands separator.
func ParseDecimal(raw any) (any, bool) {
	d, ok := parseDecimal(raw)
	if !ok {
		return nil, false
	}
	return d, true
}

func parseDecimal(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case bool, nil:
		return decimal.Decimal{}, false
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	}

	s, ok := ToText(raw)
	if !ok {
		return decimal.Decimal{}, false
	}
	if groupedNumber.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	s = strings.TrimPrefix(s, "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseInteger parses a whole number into int64. Fractional values are rejected.
func ParseInteger(raw any) (any, bool) {
	d, ok := parseDecimal(raw)
	if !ok || !d.IsInteger() {
		return nil, false
	}
	n := d.IntPart()
	if !decimal.NewFromInt(n).Equal(d) {
		return nil, false
	}
	return n, true
}

// ParseDate is the single date constructor used by every module. It accepts
// the layouts in dateLayouts and spreadsheet serial numbers, and returns the
// calendar date at UTC midnight.
func ParseDate(raw any) (any, bool) {
	t, ok := parseDate(raw)
	if !ok {
		return nil, false
	}
	return t, true
}

func parseDate(raw any) (time.Time, bool) {
	if d, ok := parseDecimal(raw); ok {
		if serial, exact := d.Float64(); exact || d.IsInteger() {
			if serial >= minSerialDate && serial <= maxSerialDate {
				t, err := excelize.ExcelDateToTime(serial, false)
				if err == nil {
					return dateOnly(t), true
				}
			}
		}
	}

	s, ok := ToText(raw)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseClock parses a time of day into "HH:MM". Spreadsheet day fractions
// (0 <= x < 1) are accepted.
func ParseClock(raw any) (any, bool) {
	if d, ok := parseDecimal(raw); ok {
		f := d.InexactFloat64()
		if f < 0 || f >= 1 {
			return nil, false
		}
		minutes := int(math.Round(f * 24 * 60))
		return formatClock(minutes/60, minutes%60), true
	}

	s, ok := ToText(raw)
	if !ok {
		return nil, false
	}
	s = strings.ToUpper(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return formatClock(t.Hour(), t.Minute()), true
		}
	}
	return nil, false
}

func formatClock(hour, minute int) string {
	if hour == 24 {
		hour = 0
	}
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04")
}

// EnumRule maps free text to one canonical value. Exact tokens are checked
// for every rule before any substring match is tried.
type EnumRule struct {
	Value    string
	Exact    []string
	Contains []string
}

// Canonicalize applies rules case-insensitively. Text that matches no rule is
// returned trimmed but otherwise unchanged.
func Canonicalize(s string, rules []EnumRule) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	for _, r := range rules {
		if lower == r.Value {
			return r.Value
		}
		for _, e := range r.Exact {
			if lower == e {
				return r.Value
			}
		}
	}
	for _, r := range rules {
		for _, c := range r.Contains {
			if strings.Contains(lower, c) {
				return r.Value
			}
		}
	}
	return s
}
