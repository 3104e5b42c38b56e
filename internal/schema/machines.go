package schema

import "github.com/erp-bulk-import-api/internal/models"

var machineStatusRules = []EnumRule{
	{Value: "under_maintenance", Contains: []string{"maint", "repair", "servic"}},
	{Value: "breakdown", Contains: []string{"break", "fault", "broken", "out of order", "down"}},
	{Value: "idle", Contains: []string{"idle", "standby", "inactive"}},
	{Value: "retired", Contains: []string{"retir", "decommission", "scrap"}},
	{Value: "operational", Exact: []string{"ok", "up", "on"}, Contains: []string{"operat", "running", "active", "working", "online"}},
}

func machinesSchema() *Schema {
	return &Schema{
		Module: models.ModuleMachines,
		Fields: []Field{
			{Name: "machine_name", Kind: KindText, Required: true, Example: "CNC Lathe 2",
				Aliases: []string{"Machine", "Name", "Equipment", "Equipment Name", "Asset", "Asset Name"}},
			{Name: "machine_code", Kind: KindText, Example: "CNC-002",
				Aliases: []string{"Machine ID", "Code", "Asset ID", "Asset Tag", "Serial No"}},
			{Name: "type", Kind: KindText, Example: "Lathe",
				Aliases: []string{"Machine Type", "Category", "Model"}},
			{Name: "status", Kind: KindEnum, Required: true, Enum: machineStatusRules, Example: "operational",
				Aliases: []string{"Machine Status", "State", "Condition"}},
			{Name: "location", Kind: KindText, Example: "Line A",
				Aliases: []string{"Line", "Plant", "Shop Floor", "Section"}},
			{Name: "last_maintenance", Kind: KindDate, Example: "2024-02-10",
				Aliases: []string{"Last Maintenance", "Last Service", "Last Serviced", "Last Maintenance Date"}},
			{Name: "next_maintenance", Kind: KindDate, Example: "2024-05-10",
				Aliases: []string{"Next Maintenance", "Next Service", "Service Due", "Next Maintenance Date"}},
			{Name: "capacity", Kind: KindDecimal, Rule: "min=0", Example: "35",
				Aliases: []string{"Output Per Hour", "Rated Capacity"}},
		},
	}
}
