package decoder

import (
	"encoding/json"

	"github.com/erp-bulk-import-api/internal/models"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// containerKeys are the object keys that may hold the record array
var containerKeys = []string{"data", "records", "items"}

// decodeJSON walks the document with gjson so object keys keep their
// document order, which the mapper relies on for column precedence.
func decodeJSON(data []byte) ([]models.RawRecord, error) {
	if !gjson.ValidBytes(data) {
		return nil, malformed(FormatJSON, errors.New("invalid JSON document"))
	}

	root := gjson.ParseBytes(data)
	var list gjson.Result
	switch {
	case root.IsArray():
		list = root
	case root.IsObject():
		for _, key := range containerKeys {
			if v := root.Get(key); v.IsArray() {
				list = v
				break
			}
		}
		if !list.Exists() {
			return nil, malformed(FormatJSON, errors.New("object must hold a data, records or items array"))
		}
	default:
		return nil, malformed(FormatJSON, errors.New("document must be an array of objects"))
	}

	var (
		records []models.RawRecord
		walkErr error
		row     int
	)
	list.ForEach(func(_, item gjson.Result) bool {
		row++
		if !item.IsObject() {
			walkErr = malformed(FormatJSON, errors.Errorf("element %d is not an object", row))
			return false
		}

		var labels []string
		var cells []any
		item.ForEach(func(key, value gjson.Result) bool {
			labels = append(labels, key.String())
			cells = append(cells, jsonValue(value))
			return true
		})

		if rec, ok := newRecord(len(records)+1, labels, cells); ok {
			records = append(records, rec)
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return records, nil
}

func jsonValue(v gjson.Result) any {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.True, gjson.False:
		return v.Bool()
	case gjson.Number:
		return json.Number(v.Raw)
	case gjson.String:
		return v.Str
	default:
		return v.Raw
	}
}
