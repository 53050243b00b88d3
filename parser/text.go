package parser

import (
	"bytes"

	"github.com/c360/fileingest/filetype"
	"github.com/c360/fileingest/mapping"
)

// TextParser handles delimited text files, auto-detecting the delimiter
// between tab and comma from the first line
type TextParser struct{}

// NewTextParser creates a new delimited text parser
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Format returns the file type this parser handles
func (p *TextParser) Format() filetype.Type {
	return filetype.TypeText
}

// Headers returns the first row's column names using the detected delimiter
func (p *TextParser) Headers(data []byte) ([]string, error) {
	return delimitedHeaders(data, detectDelimiter(data), "TextParser")
}

// Parse decodes the file into one record per data row using the detected
// delimiter
func (p *TextParser) Parse(data []byte) ([]*mapping.Record, error) {
	return parseDelimited(data, detectDelimiter(data), "TextParser")
}

// detectDelimiter picks tab when the first line contains one, comma
// otherwise
func detectDelimiter(data []byte) rune {
	firstLine := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		firstLine = data[:idx]
	}
	if bytes.ContainsRune(firstLine, '\t') {
		return '\t'
	}
	return ','
}
