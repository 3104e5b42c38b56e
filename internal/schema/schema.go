// Package schema holds the static per-module import schemas: accepted column
// aliases, required fields, and the type coercion and value canonicalization
// applied to each field.
package schema

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/erp-bulk-import-api/internal/mapping"
	"github.com/erp-bulk-import-api/internal/models"
)

// Kind selects how a raw cell is coerced
type Kind int

const (
	KindText Kind = iota
	KindEmail
	KindInteger
	KindDecimal
	KindDate
	KindClock
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindEmail:
		return "email"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	case KindClock:
		return "time"
	case KindEnum:
		return "enum"
	default:
		return "text"
	}
}

// Field describes one internal field of a module
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Aliases  []string
	// Enum is the canonicalization table for KindEnum fields
	Enum []EnumRule
	// Rule is a go-playground/validator tag checked against present values
	Rule string
	// Default is applied only when the field is absent or blank in the row
	Default func(now time.Time) any
	Example string
}

// Schema is the import contract of one module
type Schema struct {
	Module models.Module
	Fields []Field
	// Derive fills computed fields after coercion
	Derive func(rec models.NormalizedRecord)

	index    *mapping.Index
	required []string
}

func (s *Schema) compile() error {
	aliases := make(map[string][]string, len(s.Fields))
	s.required = s.required[:0]
	for _, f := range s.Fields {
		if _, dup := aliases[f.Name]; dup {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		if f.Kind == KindEnum && len(f.Enum) == 0 {
			return fmt.Errorf("enum field %q has no rules", f.Name)
		}
		aliases[f.Name] = f.Aliases
		if f.Required {
			s.required = append(s.required, f.Name)
		}
	}
	sort.Strings(s.required)

	idx, err := mapping.NewIndex(aliases)
	if err != nil {
		return err
	}
	s.index = idx
	return nil
}

// RequiredFields returns the sorted required field names
func (s *Schema) RequiredFields() []string {
	return append([]string(nil), s.required...)
}

// Field looks up a field by internal name
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// MapRow resolves the raw record's labels against this module's aliases
func (s *Schema) MapRow(rec models.RawRecord) mapping.Row {
	return mapping.MapRow(rec, s.index)
}

// Normalize coerces a mapped row into typed values. Fields that fail to parse
// are left out so validation reports them; defaults fill only absent fields.
func (s *Schema) Normalize(row mapping.Row, now time.Time) models.NormalizedRecord {
	rec := make(models.NormalizedRecord, len(s.Fields))
	for _, f := range s.Fields {
		raw, ok := row[f.Name]
		if !ok || isBlank(raw) {
			if f.Default != nil {
				rec[f.Name] = f.Default(now)
			}
			continue
		}
		if v, ok := f.coerce(raw); ok {
			rec[f.Name] = v
		}
	}
	if s.Derive != nil {
		s.Derive(rec)
	}
	return rec
}

func (f Field) coerce(raw any) (any, bool) {
	switch f.Kind {
	case KindEmail:
		return ParseEmail(raw)
	case KindInteger:
		return ParseInteger(raw)
	case KindDecimal:
		return ParseDecimal(raw)
	case KindDate:
		return ParseDate(raw)
	case KindClock:
		return ParseClock(raw)
	case KindEnum:
		s, ok := ToText(raw)
		if !ok {
			return nil, false
		}
		return Canonicalize(s, f.Enum), true
	default:
		return ToText(raw)
	}
}

// Registry maps modules to their schemas. It is read-only once built.
type Registry struct {
	schemas map[models.Module]*Schema
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[models.Module]*Schema)}
}

// Register compiles and adds a schema
func (r *Registry) Register(s *Schema) error {
	if _, exists := r.schemas[s.Module]; exists {
		return fmt.Errorf("module %q already registered", s.Module)
	}
	if err := s.compile(); err != nil {
		return fmt.Errorf("module %q: %w", s.Module, err)
	}
	r.schemas[s.Module] = s
	return nil
}

// Lookup returns the schema for a module
func (r *Registry) Lookup(m models.Module) (*Schema, error) {
	s, ok := r.schemas[m]
	if !ok {
		return nil, models.ErrUnsupportedModule
	}
	return s, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r := NewRegistry()
	for _, s := range []*Schema{
		inventorySchema(),
		employeesSchema(),
		machinesSchema(),
		qualityControlSchema(),
		attendanceSchema(),
		productionSchema(),
	} {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
})

// Default returns the registry holding the six built-in modules
func Default() *Registry {
	return defaultRegistry()
}

func today(now time.Time) any {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func constant(v string) func(time.Time) any {
	return func(time.Time) any { return v }
}
