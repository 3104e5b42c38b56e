package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseInteger(t *testing.T) {
	good := map[string]struct {
		raw  any
		want int64
	}{
		"plain":       {"120", 120},
		"padded":      {"  42 ", 42},
		"plus":        {"+7", 7},
		"negative":    {"-3", -3},
		"grouped":     {"1,234", 1234},
		"json number": {json.Number("15"), 15},
		"float whole": {float64(9), 9},
		"trailing .0": {"10.0", 10},
	}
	for name, tc := range good {
		got, ok := ParseInteger(tc.raw)
		require.True(t, ok, name)
		assert.Equal(t, tc.want, got, name)
	}

	for name, raw := range map[string]any{
		"fraction":    "12.5",
		"text":        "twelve",
		"european":    "1.234,5",
		"bad group":   "12,34",
		"empty":       "",
		"bool":        true,
		"nil":         nil,
		"unit suffix": "12kg",
	} {
		_, ok := ParseInteger(raw)
		assert.False(t, ok, name)
	}
}

func TestParseDecimal(t *testing.T) {
	got, ok := ParseDecimal("1,234.50")
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("1234.5").Equal(got.(decimal.Decimal)))

	got, ok = ParseDecimal(json.Number("0.1"))
	require.True(t, ok)
	assert.Equal(t, "0.1", got.(decimal.Decimal).String())

	_, ok = ParseDecimal("12,5")
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	want := date(2024, time.March, 1)
	for _, raw := range []any{
		"2024-03-01",
		"2024-03-01T10:30:00Z",
		"2024-03-01 10:30:00",
		"2024/03/01",
		"03/01/2024",
		"3/1/2024",
		"03-01-24",
		"1 Mar 2024",
		"01-Mar-2024",
		"Mar 1, 2024",
		"March 1, 2024",
		"20240301",
		"45352",
		json.Number("45352"),
		float64(45352),
	} {
		got, ok := ParseDate(raw)
		require.True(t, ok, "%v", raw)
		assert.Equal(t, want, got, "%v", raw)
	}

	for _, raw := range []any{"2024-02-30", "yesterday", "13/13/2024", "", nil, "-5"} {
		_, ok := ParseDate(raw)
		assert.False(t, ok, "%v", raw)
	}
}

func TestParseClock(t *testing.T) {
	for raw, want := range map[any]string{
		"09:00":    "09:00",
		"9:05":     "09:05",
		"17:30:59": "17:30",
		"5:30 pm":  "17:30",
		"5:30PM":   "17:30",
		"12 AM":    "00:00",
		"0.375":    "09:00",
	} {
		got, ok := ParseClock(raw)
		require.True(t, ok, "%v", raw)
		assert.Equal(t, want, got, "%v", raw)
	}

	for _, raw := range []any{"25:00", "noon", "1.5"} {
		_, ok := ParseClock(raw)
		assert.False(t, ok, "%v", raw)
	}
}

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		rules []EnumRule
		in    string
		want  string
	}{
		{machineStatusRules, "Under Maintenance", "under_maintenance"},
		{machineStatusRules, "MAINT", "under_maintenance"},
		{machineStatusRules, "Running", "operational"},
		{machineStatusRules, "under_maintenance", "under_maintenance"},
		{inspectionResultRules, "Passed", "pass"},
		{inspectionResultRules, "FAILED", "fail"},
		{inspectionResultRules, "NG", "fail"},
		{attendanceStatusRules, "P", "present"},
		{attendanceStatusRules, "present", "present"},
		{attendanceStatusRules, " Absent ", "absent"},
		{attendanceStatusRules, "Half Day", "half_day"},
		{attendanceStatusRules, "Sick Leave", "on_leave"},
		{productionStatusRules, "WIP", "in_progress"},
		{priorityRules, "Urgent", "high"},
		{unitRules, "Kgs", "kg"},
		{unitRules, "Pieces", "pcs"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Canonicalize(tc.in, tc.rules), tc.in)
	}

	// unrecognized values pass through trimmed but unchanged
	assert.Equal(t, "Work From Home", Canonicalize("  Work From Home ", attendanceStatusRules))
}
