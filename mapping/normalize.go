package mapping

// MapResult summarizes one normalization pass over a batch of records
type MapResult struct {
	Total          int                `json:"total"`
	Valid          int                `json:"valid"`
	Invalid        int                `json:"invalid"`
	Records        []NormalizedRecord `json:"records"`
	InvalidRecords []NormalizedRecord `json:"invalidRecords,omitempty"`
}

// Normalizer applies a mapping configuration to parsed records. It is the
// single normalization implementation used by both the pipeline and the
// synchronous API, so matching behavior is identical everywhere.
type Normalizer struct{}

// NewNormalizer creates a normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeRecord maps one generic record onto the configuration's target
// fields. Matching walks the record's fields in insertion order; each source
// field is assigned to the first target field whose alias list matches it,
// unless that target field was already assigned, null values included.
// Unmatched target fields stay null.
//
// The operation is deterministic and idempotent: the same record and
// configuration always produce the same normalized record.
func (n *Normalizer) NormalizeRecord(record *Record, cfg *Config) NormalizedRecord {
	normalized := make(NormalizedRecord, len(cfg.Fields))
	for _, f := range cfg.Fields {
		normalized[f.Name] = nil
	}

	// First matching source field wins even when its value is null; a later
	// match never reassigns
	assigned := make(map[string]bool, len(cfg.Fields))
	for _, key := range record.Keys() {
		target := cfg.matchTarget(key)
		if target == nil || assigned[target.Name] {
			continue
		}
		if value, ok := record.Get(key); ok {
			normalized[target.Name] = value
			assigned[target.Name] = true
		}
	}

	return normalized
}

// IsValid reports whether a normalized record carries a usable value for
// every required target field. Blank values count as missing.
func (n *Normalizer) IsValid(record NormalizedRecord, cfg *Config) bool {
	for _, f := range cfg.Fields {
		if f.Required && !record.HasValue(f.Name) {
			return false
		}
	}
	return true
}

// Normalize maps a batch of records and splits them into valid and invalid
// sets. A record is valid iff every required target field is non-null and
// non-blank.
func (n *Normalizer) Normalize(records []*Record, cfg *Config) MapResult {
	result := MapResult{
		Total:   len(records),
		Records: make([]NormalizedRecord, 0, len(records)),
	}

	for _, record := range records {
		normalized := n.NormalizeRecord(record, cfg)
		if n.IsValid(normalized, cfg) {
			result.Records = append(result.Records, normalized)
		} else {
			result.InvalidRecords = append(result.InvalidRecords, normalized)
		}
	}

	result.Valid = len(result.Records)
	result.Invalid = len(result.InvalidRecords)
	return result
}
