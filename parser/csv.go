package parser

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/c360/fileingest/errors"
	"github.com/c360/fileingest/filetype"
	"github.com/c360/fileingest/mapping"
)

// CSVParser handles comma-separated files with a header row
type CSVParser struct{}

// NewCSVParser creates a new CSV parser
func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// Format returns the file type this parser handles
func (p *CSVParser) Format() filetype.Type {
	return filetype.TypeCSV
}

// Headers returns the first row's column names
func (p *CSVParser) Headers(data []byte) ([]string, error) {
	return delimitedHeaders(data, ',', "CSVParser")
}

// Parse decodes the file into one record per data row
func (p *CSVParser) Parse(data []byte) ([]*mapping.Record, error) {
	return parseDelimited(data, ',', "CSVParser")
}

// delimitedHeaders reads just the header row of a delimited file
func delimitedHeaders(data []byte, comma rune, component string) ([]string, error) {
	if len(data) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyFile, component, "Headers", "read header row")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma

	headers, err := reader.Read()
	if err != nil {
		return nil, errors.WrapInvalid(err, component, "Headers", "read header row")
	}
	return headers, nil
}

// parseDelimited decodes a delimited file with a header row into records.
// Rows must have the same field count as the header; a malformed row fails
// the whole file.
func parseDelimited(data []byte, comma rune, component string) ([]*mapping.Record, error) {
	if len(data) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyFile, component, "Parse", "decode rows")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma

	headers, err := reader.Read()
	if err != nil {
		return nil, errors.WrapInvalid(err, component, "Parse", "read header row")
	}

	var records []*mapping.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapInvalid(err, component, "Parse", "decode rows")
		}

		record := mapping.NewRecord()
		for i, header := range headers {
			record.SetString(header, row[i])
		}
		records = append(records, record)
	}

	return records, nil
}
