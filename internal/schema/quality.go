package schema

import "github.com/erp-bulk-import-api/internal/models"

var inspectionResultRules = []EnumRule{
	{Value: "rework", Contains: []string{"rework"}},
	{Value: "fail", Exact: []string{"ng", "f", "not ok"}, Contains: []string{"fail", "reject"}},
	{Value: "pending", Contains: []string{"pend", "hold", "await"}},
	{Value: "pass", Exact: []string{"ok"}, Contains: []string{"pass", "accept", "approv"}},
}

func qualityControlSchema() *Schema {
	return &Schema{
		Module: models.ModuleQualityControl,
		Fields: []Field{
			{Name: "product_name", Kind: KindText, Required: true, Example: "Gear Housing",
				Aliases: []string{"Product", "Item", "Item Name", "Part", "Part Name"}},
			{Name: "batch_no", Kind: KindText, Required: true, Example: "B-2024-031",
				Aliases: []string{"Batch", "Batch Number", "Batch ID", "Lot", "Lot No", "Lot Number"}},
			{Name: "result", Kind: KindEnum, Required: true, Enum: inspectionResultRules, Example: "pass",
				Aliases: []string{"QC Result", "Inspection Result", "Outcome", "Status"}},
			{Name: "inspector", Kind: KindText, Example: "R. Iyer",
				Aliases: []string{"Inspected By", "QC Inspector", "Checked By"}},
			// inspection_date defaults to the batch date only when the file has no value
			{Name: "inspection_date", Kind: KindDate, Default: today, Example: "2024-03-01",
				Aliases: []string{"Inspection Date", "Date", "QC Date", "Checked On"}},
			{Name: "defects", Kind: KindInteger, Rule: "min=0", Example: "0",
				Aliases: []string{"Defect Count", "No of Defects", "Rejected Qty"}},
			{Name: "sample_size", Kind: KindInteger, Rule: "min=0", Example: "50",
				Aliases: []string{"Sample", "Inspected Qty"}},
			{Name: "notes", Kind: KindText,
				Aliases: []string{"Remarks", "Comments", "Observation"}},
		},
	}
}
