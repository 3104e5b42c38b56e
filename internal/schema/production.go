package schema

import "github.com/erp-bulk-import-api/internal/models"

var productionStatusRules = []EnumRule{
	{Value: "cancelled", Contains: []string{"cancel", "void"}},
	{Value: "on_hold", Contains: []string{"hold", "paus", "block"}},
	{Value: "completed", Contains: []string{"complet", "done", "finish", "closed"}},
	{Value: "in_progress", Exact: []string{"wip"}, Contains: []string{"progress", "running", "started", "ongoing"}},
	{Value: "planned", Exact: []string{"new", "open"}, Contains: []string{"plan", "sched"}},
}

var priorityRules = []EnumRule{
	{Value: "high", Exact: []string{"h", "p1"}, Contains: []string{"high", "urgent", "critical"}},
	{Value: "low", Exact: []string{"l", "p3"}, Contains: []string{"low"}},
	{Value: "medium", Exact: []string{"m", "p2"}, Contains: []string{"med", "normal", "standard"}},
}

func productionSchema() *Schema {
	return &Schema{
		Module: models.ModuleProduction,
		Fields: []Field{
			{Name: "order_no", Kind: KindText, Required: true, Example: "WO-2024-0042",
				Aliases: []string{"Order No", "Order Number", "Order ID", "Work Order", "WO", "WO No", "Production Order"}},
			{Name: "product_name", Kind: KindText, Required: true, Example: "Gear Housing",
				Aliases: []string{"Product", "Item", "Item Name"}},
			{Name: "quantity", Kind: KindInteger, Required: true, Rule: "gt=0", Example: "500",
				Aliases: []string{"Qty", "Order Qty", "Planned Qty", "Target Qty"}},
			{Name: "status", Kind: KindEnum, Enum: productionStatusRules, Default: constant("planned"), Example: "planned",
				Aliases: []string{"Order Status", "Stage"}},
			{Name: "priority", Kind: KindEnum, Enum: priorityRules, Default: constant("medium"), Example: "high",
				Aliases: []string{"Prio", "Urgency"}},
			{Name: "start_date", Kind: KindDate, Example: "2024-03-04",
				Aliases: []string{"Start", "Planned Start", "Start On"}},
			{Name: "due_date", Kind: KindDate, Example: "2024-03-15",
				Aliases: []string{"Due", "Deadline", "Delivery Date", "End Date"}},
			{Name: "machine_name", Kind: KindText, Example: "CNC Lathe 2",
				Aliases: []string{"Machine", "Line", "Work Center"}},
			{Name: "notes", Kind: KindText,
				Aliases: []string{"Remarks", "Comments"}},
		},
	}
}
