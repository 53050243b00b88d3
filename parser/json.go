package parser

import (
	"bytes"
	"encoding/json"

	"github.com/c360/fileingest/errors"
	"github.com/c360/fileingest/filetype"
	"github.com/c360/fileingest/mapping"
)

// JSONParser handles JSON files holding an array of objects or a single
// object
type JSONParser struct{}

// NewJSONParser creates a new JSON parser
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

// Format returns the file type this parser handles
func (p *JSONParser) Format() filetype.Type {
	return filetype.TypeJSON
}

// Headers returns the key names of the first record in document order
func (p *JSONParser) Headers(data []byte) ([]string, error) {
	records, err := p.Parse(data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyFile, "JSONParser", "Headers", "sample first record")
	}
	return records[0].Keys(), nil
}

// Parse decodes the file into records, one per array element. A single
// top-level object is treated as a one-record file. Key order within each
// record follows the document.
func (p *JSONParser) Parse(data []byte) ([]*mapping.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyFile, "JSONParser", "Parse", "decode document")
	}

	if trimmed[0] == '[' {
		var records []*mapping.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, errors.WrapInvalid(err, "JSONParser", "Parse", "decode array")
		}
		for _, record := range records {
			if record == nil {
				return nil, errors.WrapInvalid(errors.ErrInvalidData, "JSONParser", "Parse",
					"null element in record array")
			}
		}
		return records, nil
	}

	record := mapping.NewRecord()
	if err := json.Unmarshal(trimmed, record); err != nil {
		return nil, errors.WrapInvalid(err, "JSONParser", "Parse", "decode object")
	}
	return []*mapping.Record{record}, nil
}
