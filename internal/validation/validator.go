package validation

import (
	"sort"
	"strings"

	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/schema"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Validator checks normalized records against a module's declared contract.
// It holds no module-specific logic; everything comes from the schema.
type Validator struct {
	rules *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{rules: validator.New()}
}

// Validate returns the sorted names of required fields that are missing or
// empty, together with present fields that break their declared rule. An
// empty result means the record is valid.
func (v *Validator) Validate(rec models.NormalizedRecord, s *schema.Schema) []string {
	bad := make(map[string]struct{})

	for _, field := range s.RequiredFields() {
		if isEmpty(rec[field]) {
			bad[field] = struct{}{}
		}
	}

	for _, f := range s.Fields {
		if f.Rule == "" {
			continue
		}
		value, ok := rec[f.Name]
		if !ok || isEmpty(value) {
			continue
		}
		if err := v.rules.Var(ruleValue(value), f.Rule); err != nil {
			bad[f.Name] = struct{}{}
		}
	}

	if len(bad) == 0 {
		return nil
	}
	fields := make([]string, 0, len(bad))
	for field := range bad {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// isEmpty treats absent values and blank strings as empty. Zero numbers are values.
func isEmpty(value any) bool {
	switch val := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	}
	return false
}

// ruleValue converts decimals so numeric rules such as min=0 apply
func ruleValue(value any) any {
	if d, ok := value.(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return value
}
