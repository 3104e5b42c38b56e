package schema

import "github.com/erp-bulk-import-api/internal/models"

var unitRules = []EnumRule{
	{Value: "kg", Exact: []string{"kgs", "kilo", "kilos"}, Contains: []string{"kilogram"}},
	{Value: "g", Exact: []string{"gm", "gms", "gram", "grams"}},
	{Value: "l", Exact: []string{"ltr", "ltrs", "lt"}, Contains: []string{"litre", "liter"}},
	{Value: "ml", Contains: []string{"millilit"}},
	{Value: "m", Exact: []string{"mtr", "mtrs"}, Contains: []string{"metre", "meter"}},
	{Value: "pcs", Exact: []string{"pc", "nos", "no", "ea", "each", "unit", "units"}, Contains: []string{"piece"}},
	{Value: "box", Exact: []string{"bx", "boxes", "carton", "ctn"}},
}

func inventorySchema() *Schema {
	return &Schema{
		Module: models.ModuleInventory,
		Fields: []Field{
			{Name: "item_name", Kind: KindText, Required: true, Example: "Steel Rod 12mm",
				Aliases: []string{"Item", "Item Name", "Name", "Product", "Product Name", "Material", "Material Name"}},
			{Name: "sku", Kind: KindText, Example: "SR-12",
				Aliases: []string{"SKU", "Item Code", "Code", "Part Number", "Part No"}},
			{Name: "category", Kind: KindText, Example: "Raw Material",
				Aliases: []string{"Category", "Item Type", "Group"}},
			{Name: "stock_level", Kind: KindInteger, Required: true, Rule: "min=0", Example: "120",
				Aliases: []string{"Stock", "Stock Level", "Quantity", "Qty", "On Hand", "Qty On Hand", "Current Stock", "Available"}},
			{Name: "reorder_point", Kind: KindInteger, Required: true, Rule: "min=0", Example: "50",
				Aliases: []string{"Reorder", "Reorder Point", "Reorder Level", "Min Stock", "Minimum Stock", "Min Level", "Safety Stock", "Threshold"}},
			{Name: "unit", Kind: KindEnum, Enum: unitRules, Example: "kg",
				Aliases: []string{"Unit", "UOM", "Unit of Measure", "Units"}},
			{Name: "unit_price", Kind: KindDecimal, Rule: "min=0", Example: "42.50",
				Aliases: []string{"Price", "Unit Price", "Unit Cost", "Cost", "Rate"}},
			{Name: "location", Kind: KindText, Example: "WH-1",
				Aliases: []string{"Warehouse", "Bin", "Store", "Storage Location"}},
			{Name: "supplier", Kind: KindText, Example: "Acme Metals",
				Aliases: []string{"Vendor", "Supplier Name", "Vendor Name"}},
			{Name: "last_restocked", Kind: KindDate, Example: "2024-03-01",
				Aliases: []string{"Last Restocked", "Restock Date", "Last Received", "Received On"}},
		},
	}
}
