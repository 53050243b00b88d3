// Package mapping holds the field-mapping data model and the single
// normalization implementation shared by every entry point.
//
// A Config names an ordered set of target fields, each carrying the alias
// strings that may represent it in a source file. Parsers produce generic
// Records (ordered source-field to value maps); the Normalizer walks each
// record's fields in insertion order and assigns values to the first target
// field whose alias list matches, case-insensitively, by equality or
// substring containment.
//
// The Registry stores named configurations. Lookups never fail the caller:
// a missing name or a backing-store error degrades to the canonical default
// configuration, which always exists.
//
// The substring containment rule is intentionally loose and can over-match
// (an alias "id" matches any source column containing "id"). This mirrors
// the observed production behavior and must not be tightened without a
// product decision.
package mapping
