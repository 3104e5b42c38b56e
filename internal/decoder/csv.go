package decoder

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/erp-bulk-import-api/internal/models"
	"github.com/pkg/errors"
)

var delimiterCandidates = []rune{',', ';', '\t', '|'}

func decodeCSV(data []byte) ([]models.RawRecord, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1 // ragged rows are tolerated

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, malformed(FormatCSV, errors.Wrap(err, "read header"))
	}
	header = append([]string(nil), header...)

	var records []models.RawRecord
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed(FormatCSV, err)
		}

		// Numbered per record, not per line: quoted cells may span lines
		if rec, ok := newRecord(len(records)+1, header, stringsToCells(fields)); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// sniffDelimiter picks the candidate occurring most often, outside quotes,
// on the header line. Comma wins ties.
func sniffDelimiter(data []byte) rune {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}

	counts := make(map[rune]int, len(delimiterCandidates))
	quoted := false
	for _, r := range string(data) {
		if r == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[r]++
		}
	}

	best := ','
	for _, c := range delimiterCandidates {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
