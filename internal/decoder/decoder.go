// Package decoder turns uploaded CSV, workbook and JSON files into ordered raw records.
package decoder

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/erp-bulk-import-api/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Format is a supported upload container
type Format string

const (
	FormatCSV      Format = "csv"
	FormatWorkbook Format = "xlsx"
	FormatJSON     Format = "json"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file contains no data rows")
	ErrMalformed         = errors.New("malformed file")
)

// Error is a decoder-level failure. It aborts the whole import.
type Error struct {
	Kind   error
	Format Format
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Is matches the error against its kind sentinel
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindName returns a short machine-readable name for the error kind
func (e *Error) KindName() string {
	switch e.Kind {
	case ErrUnsupportedFormat:
		return "unsupported_format"
	case ErrEmptyFile:
		return "empty_file"
	default:
		return "malformed_file"
	}
}

func malformed(format Format, err error) *Error {
	return &Error{Kind: ErrMalformed, Format: format, Err: err}
}

// FormatFromName selects the container format from the file extension
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatWorkbook, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", &Error{Kind: ErrUnsupportedFormat, Err: errors.Errorf("extension %q", filepath.Ext(name))}
}

// Decode parses the file into raw records. Blank rows are skipped and take no
// row number: records are numbered 1, 2, ... in file order, header excluded.
func Decode(fileName string, data []byte) ([]models.RawRecord, error) {
	format, err := FormatFromName(fileName)
	if err != nil {
		return nil, err
	}

	var records []models.RawRecord
	switch format {
	case FormatCSV:
		records, err = decodeCSV(stripBOM(data))
	case FormatWorkbook:
		records, err = decodeWorkbook(data)
	case FormatJSON:
		records, err = decodeJSON(stripBOM(data))
	}
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, &Error{Kind: ErrEmptyFile, Format: format}
	}
	return records, nil
}

// stripBOM removes a UTF-8 byte-order mark and transcodes UTF-16 input that
// announces itself with a BOM. Input without a BOM is returned unchanged.
func stripBOM(data []byte) []byte {
	out, _, err := transform.Bytes(unicode.BOMOverride(encoding.Nop.NewDecoder()), data)
	if err != nil {
		return data
	}
	return out
}

// newRecord pairs header labels with row cells. Cells beyond the header get an
// empty label so the mapper ignores them. It reports false for blank rows.
func newRecord(row int, header []string, cells []any) (models.RawRecord, bool) {
	width := len(header)
	if len(cells) > width {
		width = len(cells)
	}

	rec := models.RawRecord{
		Row:    row,
		Labels: make([]string, width),
		Values: make([]any, width),
	}
	blank := true
	for i := 0; i < width; i++ {
		if i < len(header) {
			rec.Labels[i] = header[i]
		}
		if i < len(cells) {
			rec.Values[i] = cells[i]
			if !isBlank(cells[i]) {
				blank = false
			}
		}
	}
	return rec, !blank
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	}
	return false
}

func stringsToCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
