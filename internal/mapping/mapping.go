// Package mapping canonicalizes raw column labels and resolves them to
// internal field names through per-module alias tables.
package mapping

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/erp-bulk-import-api/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Row maps internal field names to raw, unconverted cell values
type Row map[string]any

// Canonical folds a label to lower-case ASCII letters and digits, so that
// "Stock Level", " stock_level " and "STOCK-LEVEL" all compare equal.
// Accented letters fold to their base letter.
func Canonical(label string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), label)
	if err != nil {
		folded = label
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Index is a compiled alias table: canonical label -> internal field
type Index struct {
	fields map[string]string
}

// NewIndex compiles the alias table. Every field name is implicitly its own
// alias. Two fields claiming the same canonical alias is an error.
func NewIndex(aliases map[string][]string) (*Index, error) {
	idx := &Index{fields: make(map[string]string)}

	names := make([]string, 0, len(aliases))
	for field := range aliases {
		names = append(names, field)
	}
	sort.Strings(names)

	for _, field := range names {
		for _, alias := range append([]string{field}, aliases[field]...) {
			key := Canonical(alias)
			if key == "" {
				return nil, fmt.Errorf("field %q: alias %q has no letters or digits", field, alias)
			}
			if owner, ok := idx.fields[key]; ok && owner != field {
				return nil, fmt.Errorf("alias %q claimed by both %q and %q", alias, owner, field)
			}
			idx.fields[key] = field
		}
	}
	return idx, nil
}

// Resolve returns the internal field for a raw label
func (idx *Index) Resolve(label string) (string, bool) {
	field, ok := idx.fields[Canonical(label)]
	return field, ok
}

// MapRow copies each resolvable cell under its internal field name. Unknown
// labels are ignored; when two labels resolve to the same field the later
// column wins.
func MapRow(rec models.RawRecord, idx *Index) Row {
	row := make(Row, len(rec.Labels))
	for i, label := range rec.Labels {
		field, ok := idx.Resolve(label)
		if !ok {
			continue
		}
		var value any
		if i < len(rec.Values) {
			value = rec.Values[i]
		}
		row[field] = value
	}
	return row
}
