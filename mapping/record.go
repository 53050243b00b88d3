package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/c360/fileingest/errors"
)

// Record is a generic source-field-name to value mapping produced by a
// parser. Key order is the insertion order from the source file and is
// significant: normalization walks the record's own fields, not the alias
// list, so the record must remember the order it was built in.
//
// Values are strings or null. Parsers coerce scalar source values to strings
// before insertion.
type Record struct {
	keys   []string
	fields map[string]*string
}

// NewRecord creates an empty record
func NewRecord() *Record {
	return &Record{fields: make(map[string]*string)}
}

// Set assigns a value to a field, appending the field to the key order if it
// is new. A nil value records an explicit null.
func (r *Record) Set(key string, value *string) {
	if r.fields == nil {
		r.fields = make(map[string]*string)
	}
	if _, exists := r.fields[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = value
}

// SetString assigns a non-null string value to a field
func (r *Record) SetString(key, value string) {
	v := value
	r.Set(key, &v)
}

// Get returns the value for a field and whether the field is present.
// A present field may still hold a null value.
func (r *Record) Get(key string) (*string, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Keys returns the field names in insertion order
func (r *Record) Keys() []string {
	return r.keys
}

// Len returns the number of fields
func (r *Record) Len() int {
	return len(r.keys)
}

// Equal reports whether two records hold the same fields in the same order
// with the same values
func (r *Record) Equal(other *Record) bool {
	if r.Len() != other.Len() {
		return false
	}
	for i, key := range r.keys {
		if other.keys[i] != key {
			return false
		}
		a := r.fields[key]
		b := other.fields[key]
		if (a == nil) != (b == nil) {
			return false
		}
		if a != nil && *a != *b {
			return false
		}
	}
	return true
}

// MarshalJSON renders the record as a JSON object preserving field order
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		if v := r.fields[key]; v == nil {
			buf.WriteString("null")
		} else {
			valJSON, err := json.Marshal(*v)
			if err != nil {
				return nil, err
			}
			buf.Write(valJSON)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a JSON object into the record, preserving the order
// of keys as they appear in the document. Scalar values are coerced to
// strings; nested objects and arrays are kept as their compact JSON text.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return errors.WrapInvalid(err, "Record", "UnmarshalJSON", "read opening token")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.WrapInvalid(errors.ErrInvalidData, "Record", "UnmarshalJSON",
			fmt.Sprintf("expected object, got %v", tok))
	}

	r.keys = nil
	r.fields = make(map[string]*string)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return errors.WrapInvalid(err, "Record", "UnmarshalJSON", "read key")
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.WrapInvalid(errors.ErrInvalidData, "Record", "UnmarshalJSON", "non-string key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.WrapInvalid(err, "Record", "UnmarshalJSON",
				fmt.Sprintf("decode value for %q", key))
		}

		value, err := CoerceValue(raw)
		if err != nil {
			return errors.WrapInvalid(err, "Record", "UnmarshalJSON",
				fmt.Sprintf("coerce value for %q", key))
		}
		r.Set(key, value)
	}

	// Consume closing brace
	if _, err := dec.Token(); err != nil {
		return errors.WrapInvalid(err, "Record", "UnmarshalJSON", "read closing token")
	}

	return nil
}

// CoerceValue converts a raw JSON value to the record's string-or-null value
// model. Numbers and booleans become their literal text; nested structures
// keep their compact JSON representation.
func CoerceValue(raw json.RawMessage) (*string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return &s, nil
	}

	// Numbers, booleans, objects and arrays keep their literal JSON text
	s := string(trimmed)
	return &s, nil
}

// NormalizedRecord is a mapping restricted to a configuration's target
// fields, each value either the matched source value or null.
type NormalizedRecord map[string]*string

// Field returns the value of a target field, or empty string when null
func (n NormalizedRecord) Field(name string) string {
	if v, ok := n[name]; ok && v != nil {
		return *v
	}
	return ""
}

// HasValue reports whether a target field holds a non-null, non-blank value
func (n NormalizedRecord) HasValue(name string) bool {
	v, ok := n[name]
	if !ok || v == nil {
		return false
	}
	return len(bytes.TrimSpace([]byte(*v))) > 0
}
