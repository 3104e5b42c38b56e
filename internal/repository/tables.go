package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp-bulk-import-api/internal/models"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TableSpec maps a module onto its table. Key is the conflict target; Upsert
// tables update the existing row on a key conflict, the others reject it.
// Unique lists further unique constraints besides Key.
type TableSpec struct {
	Module  models.Module
	Name    string
	Columns []string
	Key     []string
	Unique  [][]string
	Upsert  bool
}

var tables = map[models.Module]TableSpec{
	models.ModuleInventory: {
		Module: models.ModuleInventory,
		Name:   "inventory_items",
		Columns: []string{"item_name", "sku", "category", "stock_level", "reorder_point",
			"unit", "unit_price", "location", "supplier", "last_restocked"},
		Key:    []string{"item_name"},
		Upsert: true,
	},
	models.ModuleEmployees: {
		Module: models.ModuleEmployees,
		Name:   "employees",
		Columns: []string{"employee_id", "name", "email", "role", "department", "phone",
			"status", "joined_on", "salary"},
		Key:    []string{"employee_id"},
		Unique: [][]string{{"email"}},
		Upsert: true,
	},
	models.ModuleMachines: {
		Module: models.ModuleMachines,
		Name:   "machines",
		Columns: []string{"machine_name", "machine_code", "type", "status", "location",
			"last_maintenance", "next_maintenance", "capacity"},
		Key:    []string{"machine_name"},
		Upsert: true,
	},
	models.ModuleQualityControl: {
		Module: models.ModuleQualityControl,
		Name:   "quality_checks",
		Columns: []string{"product_name", "batch_no", "result", "inspector", "inspection_date",
			"defects", "sample_size", "notes"},
		Key: []string{"product_name", "batch_no"},
	},
	models.ModuleAttendance: {
		Module: models.ModuleAttendance,
		Name:   "attendance_records",
		Columns: []string{"employee_id", "date", "status", "check_in", "check_out",
			"hours_worked", "notes"},
		Key:    []string{"employee_id", "date"},
		Upsert: true,
	},
	models.ModuleProduction: {
		Module: models.ModuleProduction,
		Name:   "production_orders",
		Columns: []string{"order_no", "product_name", "quantity", "status", "priority",
			"start_date", "due_date", "machine_name", "notes"},
		Key: []string{"order_no"},
	},
}

// Table returns the table spec of a module
func Table(m models.Module) (TableSpec, error) {
	t, ok := tables[m]
	if !ok {
		return TableSpec{}, errors.Wrapf(models.ErrUnsupportedModule, "no table for %q", m)
	}
	return t, nil
}

// KeyOf renders the values of cols as a comparable key
func KeyOf(rec models.NormalizedRecord, cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = formatValue(rec[c])
	}
	return strings.Join(parts, ", ")
}

// DuplicateDetail formats a conflict the way Postgres reports it
func DuplicateDetail(rec models.NormalizedRecord, cols []string) string {
	return fmt.Sprintf("Key (%s)=(%s) already exists.", strings.Join(cols, ", "), KeyOf(rec, cols))
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format("2006-01-02")
	case decimal.Decimal:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// insertStatement builds the INSERT for the columns present in rec
func (t TableSpec) insertStatement(id string, rec models.NormalizedRecord, now time.Time) (string, []any) {
	cols := []string{"id"}
	args := []any{id}
	for _, c := range t.Columns {
		v, ok := rec[c]
		if !ok {
			continue
		}
		cols = append(cols, c)
		args = append(args, v)
	}
	cols = append(cols, "created_at", "updated_at")
	args = append(args, now, now)

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(t.Name), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	if t.Upsert {
		keys := make(map[string]bool, len(t.Key))
		conflict := make([]string, len(t.Key))
		for i, k := range t.Key {
			keys[k] = true
			conflict[i] = pq.QuoteIdentifier(k)
		}
		var updates []string
		for _, c := range cols {
			if c == "id" || c == "created_at" || keys[c] {
				continue
			}
			q := pq.QuoteIdentifier(c)
			updates = append(updates, q+" = EXCLUDED."+q)
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(conflict, ", "), strings.Join(updates, ", "))
	}

	b.WriteString(" RETURNING id")
	return b.String(), args
}
