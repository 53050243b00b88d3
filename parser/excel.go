package parser

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/c360/fileingest/errors"
	"github.com/c360/fileingest/filetype"
	"github.com/c360/fileingest/mapping"
)

// ExcelParser handles xlsx workbooks, reading the first sheet with a header
// row. The workbook is opened directly from memory, so there is no scratch
// file to clean up; the open handle is released on every path.
type ExcelParser struct{}

// NewExcelParser creates a new Excel parser
func NewExcelParser() *ExcelParser {
	return &ExcelParser{}
}

// Format returns the file type this parser handles
func (p *ExcelParser) Format() filetype.Type {
	return filetype.TypeExcel
}

// Headers returns the first sheet's header row
func (p *ExcelParser) Headers(data []byte) ([]string, error) {
	rows, err := p.readRows(data, "Headers")
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// Parse decodes the first sheet into one record per data row. Rows shorter
// than the header get null values for the missing trailing cells.
func (p *ExcelParser) Parse(data []byte) ([]*mapping.Record, error) {
	rows, err := p.readRows(data, "Parse")
	if err != nil {
		return nil, err
	}

	headers := rows[0]
	var records []*mapping.Record
	for _, row := range rows[1:] {
		record := mapping.NewRecord()
		for i, header := range headers {
			if i < len(row) {
				record.SetString(header, row[i])
			} else {
				record.Set(header, nil)
			}
		}
		records = append(records, record)
	}

	return records, nil
}

// readRows opens the workbook and returns all rows of the first sheet,
// guaranteeing at least a header row
func (p *ExcelParser) readRows(data []byte, method string) ([][]string, error) {
	if len(data) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyFile, "ExcelParser", method, "open workbook")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WrapInvalid(err, "ExcelParser", method, "open workbook")
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyFile, "ExcelParser", method, "locate first sheet")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.WrapInvalid(err, "ExcelParser", method,
			fmt.Sprintf("read sheet %q", sheets[0]))
	}
	if len(rows) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyFile, "ExcelParser", method,
			fmt.Sprintf("sheet %q has no rows", sheets[0]))
	}

	return rows, nil
}
