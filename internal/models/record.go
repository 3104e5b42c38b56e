package models

// RawRecord is one decoded file row before any field-name or type resolution.
// Labels and Values are parallel slices in original column order; duplicate
// labels are allowed. Values hold string, json.Number, float64, bool or nil.
type RawRecord struct {
	Row    int
	Labels []string
	Values []any
}

// NormalizedRecord maps internal field names to typed values: string, int64,
// decimal.Decimal or time.Time. Fields that could not be parsed are absent.
type NormalizedRecord map[string]any

// Has reports whether field is present
func (r NormalizedRecord) Has(field string) bool {
	_, ok := r[field]
	return ok
}
