package schema

import "github.com/erp-bulk-import-api/internal/models"

var employmentStatusRules = []EnumRule{
	{Value: "inactive", Exact: []string{"n", "no", "false", "0"}, Contains: []string{"inact", "terminat", "resign", "former", "left", "exit"}},
	{Value: "on_leave", Contains: []string{"leave", "sabbatical"}},
	{Value: "active", Exact: []string{"y", "yes", "true", "1"}, Contains: []string{"active", "current", "employed", "working"}},
}

func employeesSchema() *Schema {
	return &Schema{
		Module: models.ModuleEmployees,
		Fields: []Field{
			{Name: "employee_id", Kind: KindText, Required: true, Example: "E1001",
				Aliases: []string{"ID", "Emp ID", "Employee Code", "Emp Code", "Staff ID", "Employee No", "Emp No", "Employee Number"}},
			{Name: "name", Kind: KindText, Required: true, Example: "Priya Sharma",
				Aliases: []string{"Full Name", "Employee Name", "Employee", "Staff Name"}},
			{Name: "email", Kind: KindEmail, Required: true, Rule: "email", Example: "priya@example.com",
				Aliases: []string{"E-mail", "Email Address", "Mail", "Work Email", "Official Email"}},
			{Name: "role", Kind: KindText, Required: true, Example: "Machine Operator",
				Aliases: []string{"Designation", "Position", "Job Title", "Title"}},
			{Name: "department", Kind: KindText, Example: "Production",
				Aliases: []string{"Dept", "Division", "Team"}},
			{Name: "phone", Kind: KindText, Example: "+91 98450 12345",
				Aliases: []string{"Phone", "Mobile", "Contact", "Phone Number", "Mobile Number"}},
			{Name: "status", Kind: KindEnum, Enum: employmentStatusRules, Default: constant("active"), Example: "active",
				Aliases: []string{"Employment Status", "Emp Status", "Active"}},
			{Name: "joined_on", Kind: KindDate, Example: "2023-07-15",
				Aliases: []string{"Joining Date", "Date of Joining", "DOJ", "Hire Date", "Start Date"}},
			{Name: "salary", Kind: KindDecimal, Rule: "min=0", Example: "45000",
				Aliases: []string{"CTC", "Monthly Salary", "Pay", "Gross Salary"}},
		},
	}
}
