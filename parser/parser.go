// Package parser turns raw file bytes into ordered generic records, one
// implementation per supported file type. Parsing is atomic: malformed input
// fails the whole file and never returns a partial record list. Each parser
// can also peek the source's header names without parsing the full file,
// which the validator uses for its pre-parse mappability check.
package parser

import (
	"fmt"

	"github.com/c360/fileingest/errors"
	"github.com/c360/fileingest/filetype"
	"github.com/c360/fileingest/mapping"
)

// Parser decodes one file format into generic records
type Parser interface {
	// Format returns the file type this parser handles
	Format() filetype.Type

	// Headers returns the source's column or key names without parsing the
	// full file
	Headers(data []byte) ([]string, error)

	// Parse decodes the full file into records, preserving source row
	// order. On malformed input it fails atomically.
	Parse(data []byte) ([]*mapping.Record, error)
}

// ForType returns the parser for a detected file type
func ForType(t filetype.Type) (Parser, error) {
	switch t {
	case filetype.TypeCSV:
		return NewCSVParser(), nil
	case filetype.TypeJSON:
		return NewJSONParser(), nil
	case filetype.TypeExcel:
		return NewExcelParser(), nil
	case filetype.TypeText:
		return NewTextParser(), nil
	default:
		return nil, errors.WrapInvalid(errors.ErrUnsupportedFileType, "parser", "ForType",
			fmt.Sprintf("no parser for file type %q", t))
	}
}
