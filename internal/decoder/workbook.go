package decoder

import (
	"bytes"

	"github.com/erp-bulk-import-api/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const legacyExcelMIME = "application/vnd.ms-excel"

// decodeWorkbook reads the first sheet of an OOXML workbook. Cells are read
// raw so numbers keep full precision and dates arrive as serial numbers.
func decodeWorkbook(data []byte) ([]models.RawRecord, error) {
	if mimetype.Detect(data).Is(legacyExcelMIME) {
		return nil, malformed(FormatWorkbook, errors.New("legacy binary .xls workbooks are not supported, save as .xlsx"))
	}

	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, malformed(FormatWorkbook, errors.Wrap(err, "open workbook"))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, malformed(FormatWorkbook, errors.Wrapf(err, "read sheet %q", sheets[0]))
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	var records []models.RawRecord
	for _, cells := range rows[1:] {
		if rec, ok := newRecord(len(records)+1, header, stringsToCells(cells)); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}
