// Package filetype classifies uploaded files by name and content so the
// pipeline can route them to the right parser. Classification itself never
// fails: anything unrecognized is reported as TypeUnknown and rejected by
// downstream stages instead.
package filetype

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Type identifies a supported file format
type Type string

// Supported file types
const (
	TypeCSV     Type = "csv"
	TypeJSON    Type = "json"
	TypeExcel   Type = "excel"
	TypeText    Type = "text"
	TypeUnknown Type = "unknown"
)

// Descriptor carries the detected type together with the raw file extension
type Descriptor struct {
	Type      Type   `json:"type"`
	Extension string `json:"extension"`
}

// extensionTable maps file extensions to types. Extension matching runs
// before content sniffing.
var extensionTable = map[string]Type{
	"csv":  TypeCSV,
	"json": TypeJSON,
	"xls":  TypeExcel,
	"xlsx": TypeExcel,
	"txt":  TypeText,
	"tsv":  TypeText,
	"tab":  TypeText,
}

// mimeTable maps sniffed MIME types to file types for files carrying no
// extension at all. Ordered most-specific first; the sniffer walks the detected
// type's parent chain, so text/plain acts as the catch-all for delimited text.
var mimeTable = []struct {
	mime string
	t    Type
}{
	{"application/json", TypeJSON},
	{"text/csv", TypeCSV},
	{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", TypeExcel},
	{"application/vnd.ms-excel", TypeExcel},
	{"text/tab-separated-values", TypeText},
	{"text/plain", TypeText},
}

// Detector classifies files by extension with a content-sniffing fallback
type Detector struct{}

// NewDetector creates a file type detector
func NewDetector() *Detector {
	return &Detector{}
}

// Detect classifies a file by its name, falling back to content sniffing only
// when the filename carries no extension at all. An unrecognized extension is
// an explicit signal and classifies as unknown regardless of content. A nil or
// empty content slice skips the sniffing fallback.
func (d *Detector) Detect(filename string, content []byte) Descriptor {
	ext := extensionOf(filename)

	if t, ok := extensionTable[ext]; ok {
		return Descriptor{Type: t, Extension: ext}
	}

	if ext == "" && len(content) > 0 {
		if t := sniffContent(content); t != TypeUnknown {
			return Descriptor{Type: t, Extension: ext}
		}
	}

	return Descriptor{Type: TypeUnknown, Extension: ext}
}

// extensionOf returns the lowercase extension without the leading dot
func extensionOf(filename string) string {
	ext := filepath.Ext(filename)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// sniffContent identifies the file type from its leading bytes
func sniffContent(content []byte) Type {
	for detected := mimetype.Detect(content); detected != nil; detected = detected.Parent() {
		for _, entry := range mimeTable {
			if detected.Is(entry.mime) {
				return entry.t
			}
		}
	}

	return TypeUnknown
}
