package mapping

import (
	"fmt"
	"strings"
)

// ValidationResult reports whether a file's headers can satisfy a mapping
// configuration's required target fields
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// Validate checks, from headers alone, whether every required target field of
// the configuration can be mapped from the source file. A required field is
// satisfied when any of its aliases matches any header case-insensitively,
// by equality or substring containment. The full file is never parsed here.
func Validate(headers []string, cfg *Config) ValidationResult {
	result := ValidationResult{Errors: []string{}}

	var missing []string
	for _, f := range cfg.Fields {
		if !f.Required {
			continue
		}
		if !fieldMappable(headers, f) {
			missing = append(missing, f.Name)
		}
	}

	if len(missing) > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("missing mappable fields: %s", strings.Join(missing, ", ")))
		return result
	}

	result.IsValid = true
	return result
}

// fieldMappable reports whether any header can be mapped to the target field
func fieldMappable(headers []string, field TargetField) bool {
	for _, header := range headers {
		for _, alias := range field.Aliases {
			if aliasMatches(header, alias) {
				return true
			}
		}
	}
	return false
}
