package parser

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/c360/fileingest/filetype"
	"github.com/c360/fileingest/mapping"
)

// serializeCSV renders records back to CSV using the first record's key
// order, for round-trip checks
func serializeCSV(t *testing.T, records []*mapping.Record) []byte {
	t.Helper()
	require.NotEmpty(t, records)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	headers := records[0].Keys()
	require.NoError(t, w.Write(headers))

	for _, record := range records {
		row := make([]string, len(headers))
		for i, h := range headers {
			if v, ok := record.Get(h); ok && v != nil {
				row[i] = *v
			}
		}
		require.NoError(t, w.Write(row))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return buf.Bytes()
}

// serializeJSON renders records as a JSON array for round-trip checks
func serializeJSON(t *testing.T, records []*mapping.Record) []byte {
	t.Helper()
	data, err := json.Marshal(records)
	require.NoError(t, err)
	return data
}

func TestForType(t *testing.T) {
	tests := []struct {
		fileType filetype.Type
		wantErr  bool
	}{
		{filetype.TypeCSV, false},
		{filetype.TypeJSON, false},
		{filetype.TypeExcel, false},
		{filetype.TypeText, false},
		{filetype.TypeUnknown, true},
		{filetype.Type("pdf"), true},
	}

	for _, tt := range tests {
		t.Run(string(tt.fileType), func(t *testing.T) {
			p, err := ForType(tt.fileType)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, p)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.fileType, p.Format())
			}
		})
	}
}

func TestCSVParser_Parse(t *testing.T) {
	data := []byte("full_name,city,auth_id\nAcme Corp,Austin,A-1\nBeta LLC,Boston,B-2\n")
	p := NewCSVParser()

	records, err := p.Parse(data)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"full_name", "city", "auth_id"}, records[0].Keys())
	v, _ := records[0].Get("full_name")
	require.NotNil(t, v)
	assert.Equal(t, "Acme Corp", *v)
	v, _ = records[1].Get("auth_id")
	require.NotNil(t, v)
	assert.Equal(t, "B-2", *v)
}

func TestCSVParser_Headers(t *testing.T) {
	p := NewCSVParser()
	headers, err := p.Headers([]byte("a,b,c\n1,2,3\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, headers)
}

func TestCSVParser_MalformedFailsAtomically(t *testing.T) {
	// Second data row has the wrong field count
	data := []byte("a,b\n1,2\n1,2,3\n")
	p := NewCSVParser()

	records, err := p.Parse(data)
	assert.Error(t, err)
	assert.Nil(t, records)
}

func TestCSVParser_EmptyInput(t *testing.T) {
	p := NewCSVParser()

	_, err := p.Parse(nil)
	assert.Error(t, err)
	_, err = p.Headers(nil)
	assert.Error(t, err)
}

func TestCSVParser_RoundTrip(t *testing.T) {
	p := NewCSVParser()
	original := []byte("full_name,city,auth_id\nAcme Corp,Austin,A-1\nBeta LLC,Boston,B-2\n")

	records, err := p.Parse(original)
	require.NoError(t, err)

	reparsed, err := p.Parse(serializeCSV(t, records))
	require.NoError(t, err)

	require.Len(t, reparsed, len(records))
	for i := range records {
		assert.True(t, records[i].Equal(reparsed[i]), "record %d differs after round trip", i)
	}
}

func TestJSONParser_ParseArray(t *testing.T) {
	data := []byte(`[
		{"name": "Acme", "auth_id": "A-1"},
		{"name": "Beta", "auth_id": "B-2", "city": null}
	]`)
	p := NewJSONParser()

	records, err := p.Parse(data)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"name", "auth_id"}, records[0].Keys())
	v, ok := records[1].Get("city")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestJSONParser_ParseSingleObject(t *testing.T) {
	p := NewJSONParser()

	records, err := p.Parse([]byte(`{"name": "Solo", "auth_id": "S-1"}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	v, _ := records[0].Get("name")
	require.NotNil(t, v)
	assert.Equal(t, "Solo", *v)
}

func TestJSONParser_Headers(t *testing.T) {
	p := NewJSONParser()

	headers, err := p.Headers([]byte(`[{"zeta": 1, "alpha": 2}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, headers)
}

func TestJSONParser_Malformed(t *testing.T) {
	p := NewJSONParser()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", []byte(`[{"a": 1}`)},
		{"scalar array", []byte(`[1, 2, 3]`)},
		{"null element", []byte(`[{"a": 1}, null]`)},
		{"bare string", []byte(`"text"`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := p.Parse(tt.data)
			assert.Error(t, err)
			assert.Nil(t, records)
		})
	}
}

func TestJSONParser_RoundTrip(t *testing.T) {
	p := NewJSONParser()
	original := []byte(`[{"name": "Acme", "auth_id": "A-1", "city": null}, {"name": "Beta", "auth_id": "B-2"}]`)

	records, err := p.Parse(original)
	require.NoError(t, err)

	reparsed, err := p.Parse(serializeJSON(t, records))
	require.NoError(t, err)

	require.Len(t, reparsed, len(records))
	for i := range records {
		assert.True(t, records[i].Equal(reparsed[i]), "record %d differs after round trip", i)
	}
}

func TestTextParser_TabDelimited(t *testing.T) {
	data := []byte("name\tauth_id\nAcme\tA-1\n")
	p := NewTextParser()

	headers, err := p.Headers(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "auth_id"}, headers)

	records, err := p.Parse(data)
	require.NoError(t, err)
	require.Len(t, records, 1)
	v, _ := records[0].Get("auth_id")
	require.NotNil(t, v)
	assert.Equal(t, "A-1", *v)
}

func TestTextParser_CommaFallback(t *testing.T) {
	data := []byte("name,auth_id\nAcme,A-1\n")
	p := NewTextParser()

	records, err := p.Parse(data)
	require.NoError(t, err)
	require.Len(t, records, 1)
	v, _ := records[0].Get("name")
	require.NotNil(t, v)
	assert.Equal(t, "Acme", *v)
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, '\t', detectDelimiter([]byte("a\tb\n1\t2\n")))
	assert.Equal(t, ',', detectDelimiter([]byte("a,b\n1,2\n")))
	// Only the first line decides
	assert.Equal(t, ',', detectDelimiter([]byte("a,b\n1\t2\n")))
}

// buildWorkbook creates an xlsx document in memory for parser tests
func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestExcelParser_Parse(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"full_name", "city", "auth_id"},
		{"Acme Corp", "Austin", "A-1"},
		{"Beta LLC", "Boston", "B-2"},
	})
	p := NewExcelParser()

	headers, err := p.Headers(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"full_name", "city", "auth_id"}, headers)

	records, err := p.Parse(data)
	require.NoError(t, err)
	require.Len(t, records, 2)

	v, _ := records[0].Get("full_name")
	require.NotNil(t, v)
	assert.Equal(t, "Acme Corp", *v)
	v, _ = records[1].Get("auth_id")
	require.NotNil(t, v)
	assert.Equal(t, "B-2", *v)
}

func TestExcelParser_ShortRowsGetNulls(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"name", "auth_id", "city"},
		{"Acme", "A-1"},
	})
	p := NewExcelParser()

	records, err := p.Parse(data)
	require.NoError(t, err)
	require.Len(t, records, 1)

	v, ok := records[0].Get("city")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestExcelParser_MalformedInput(t *testing.T) {
	p := NewExcelParser()

	_, err := p.Parse(nil)
	assert.Error(t, err)

	_, err = p.Parse([]byte("not a workbook"))
	assert.Error(t, err)
}
