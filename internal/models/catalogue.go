package models

// FieldInfo describes one importable field for upload clients
type FieldInfo struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Columns  []string `json:"accepted_columns"`
	Values   []string `json:"values,omitempty"`
	Example  string   `json:"example,omitempty"`
}

// ModuleInfo is the catalogue entry of one module
type ModuleInfo struct {
	Module         Module      `json:"module"`
	RequiredFields []string    `json:"required_fields"`
	Fields         []FieldInfo `json:"fields"`
}
