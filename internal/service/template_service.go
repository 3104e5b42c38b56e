package service

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedTemplateFormat is returned for template formats other than csv and xlsx
var ErrUnsupportedTemplateFormat = errors.New("unsupported template format")

const (
	templateSheet = "Template"
	columnsSheet  = "Columns"
)

// templateService is the concrete implementation of TemplateService
type templateService struct {
	registry  *schema.Registry
	catalogue []models.ModuleInfo
	log       zerolog.Logger
}

// newTemplateService creates a new TemplateService
func newTemplateService(registry *schema.Registry, log zerolog.Logger) *templateService {
	s := &templateService{
		registry: registry,
		log:      log.With().Str("service", "template").Logger(),
	}
	for _, m := range models.Modules {
		sc, err := registry.Lookup(m)
		if err != nil {
			continue
		}
		s.catalogue = append(s.catalogue, describe(sc))
	}
	return s
}

// Catalogue lists every module with its fields and accepted column names
func (s *templateService) Catalogue() []models.ModuleInfo {
	return s.catalogue
}

// WriteTemplate writes a header and example row for module in format csv or xlsx
func (s *templateService) WriteTemplate(w io.Writer, module models.Module, format string) error {
	sc, err := s.registry.Lookup(module)
	if err != nil {
		return err
	}

	s.log.Info().Str("module", module.String()).Str("format", format).Msg("Writing import template")

	switch strings.ToLower(format) {
	case "", "csv":
		return writeCSVTemplate(w, sc)
	case "xlsx":
		return writeWorkbookTemplate(w, sc)
	default:
		return errors.Wrapf(ErrUnsupportedTemplateFormat, "%q", format)
	}
}

func writeCSVTemplate(w io.Writer, sc *schema.Schema) error {
	header, example := templateRows(sc)
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.Write(example); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeWorkbookTemplate(w io.Writer, sc *schema.Schema) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), templateSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	header, example := templateRows(sc)
	if err := setRow(f, templateSheet, 1, header); err != nil {
		return err
	}
	if err := setRow(f, templateSheet, 2, example); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(templateSheet, "A1", last, bold); err != nil {
		return err
	}

	// Reference sheet; the decoder only reads the first sheet
	if _, err := f.NewSheet(columnsSheet); err != nil {
		return err
	}
	if err := setRow(f, columnsSheet, 1, []string{"Field", "Type", "Required", "Accepted columns", "Values"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(columnsSheet, "A1", "E1", bold); err != nil {
		return err
	}
	for i, field := range describe(sc).Fields {
		required := "no"
		if field.Required {
			required = "yes"
		}
		row := []string{field.Name, field.Type, required, strings.Join(field.Columns, ", "), strings.Join(field.Values, ", ")}
		if err := setRow(f, columnsSheet, i+2, row); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func templateRows(sc *schema.Schema) (header, example []string) {
	header = make([]string, len(sc.Fields))
	example = make([]string, len(sc.Fields))
	for i, f := range sc.Fields {
		header[i] = f.Name
		example[i] = f.Example
	}
	return header, example
}

func describe(sc *schema.Schema) models.ModuleInfo {
	info := models.ModuleInfo{
		Module:         sc.Module,
		RequiredFields: sc.RequiredFields(),
		Fields:         make([]models.FieldInfo, 0, len(sc.Fields)),
	}
	for _, f := range sc.Fields {
		field := models.FieldInfo{
			Name:     f.Name,
			Type:     f.Kind.String(),
			Required: f.Required,
			Columns:  append([]string{f.Name}, f.Aliases...),
			Example:  f.Example,
		}
		for _, rule := range f.Enum {
			field.Values = append(field.Values, rule.Value)
		}
		info.Fields = append(info.Fields, field)
	}
	return info
}
