package schema

import (
	"time"

	"github.com/erp-bulk-import-api/internal/models"
	"github.com/shopspring/decimal"
)

var attendanceStatusRules = []EnumRule{
	{Value: "half_day", Exact: []string{"hd"}, Contains: []string{"half"}},
	{Value: "on_leave", Exact: []string{"lv", "ol"}, Contains: []string{"leave", "holiday", "vacation"}},
	{Value: "late", Exact: []string{"lt"}, Contains: []string{"late"}},
	{Value: "absent", Exact: []string{"a"}, Contains: []string{"absent"}},
	{Value: "present", Exact: []string{"p"}, Contains: []string{"present"}},
}

func attendanceSchema() *Schema {
	return &Schema{
		Module: models.ModuleAttendance,
		Fields: []Field{
			{Name: "employee_id", Kind: KindText, Required: true, Example: "E1001",
				Aliases: []string{"ID", "Emp ID", "Employee Code", "Emp Code", "Staff ID", "Employee"}},
			{Name: "date", Kind: KindDate, Required: true, Example: "2024-03-01",
				Aliases: []string{"Attendance Date", "Day", "Work Date"}},
			{Name: "status", Kind: KindEnum, Required: true, Enum: attendanceStatusRules, Example: "present",
				Aliases: []string{"Attendance", "Attendance Status", "Mark"}},
			{Name: "check_in", Kind: KindClock, Example: "09:00",
				Aliases: []string{"In Time", "Check In", "Time In", "Punch In", "Clock In"}},
			{Name: "check_out", Kind: KindClock, Example: "17:30",
				Aliases: []string{"Out Time", "Check Out", "Time Out", "Punch Out", "Clock Out"}},
			{Name: "hours_worked", Kind: KindDecimal, Rule: "min=0", Example: "8.5",
				Aliases: []string{"Hours", "Working Hours", "Total Hours"}},
			{Name: "notes", Kind: KindText,
				Aliases: []string{"Remarks", "Comments"}},
		},
		Derive: deriveHoursWorked,
	}
}

// deriveHoursWorked computes hours_worked from check_in/check_out when the file
// does not supply it. A check_out earlier than check_in is an overnight shift.
func deriveHoursWorked(rec models.NormalizedRecord) {
	if rec.Has("hours_worked") {
		return
	}
	in, okIn := rec["check_in"].(string)
	out, okOut := rec["check_out"].(string)
	if !okIn || !okOut {
		return
	}

	start, err := time.Parse("15:04", in)
	if err != nil {
		return
	}
	end, err := time.Parse("15:04", out)
	if err != nil {
		return
	}
	if end.Before(start) {
		end = end.Add(24 * time.Hour)
	}

	minutes := decimal.NewFromInt(int64(end.Sub(start) / time.Minute))
	rec["hours_worked"] = minutes.Div(decimal.NewFromInt(60)).Round(2)
}
