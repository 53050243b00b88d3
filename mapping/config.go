package mapping

import (
	"fmt"
	"strings"

	"github.com/c360/fileingest/errors"
)

// DefaultName is the mapping configuration that always exists. Lookups for
// unknown names resolve to it.
const DefaultName = "default"

// TargetField is a canonical output field a normalized record is built
// toward, with the ordered alias strings that may represent it in a source
// file.
type TargetField struct {
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases"`
	Required bool     `json:"required,omitempty"`
}

// Config is a named, ordered collection of target fields
type Config struct {
	Name   string        `json:"name"`
	Fields []TargetField `json:"fields"`
}

// DefaultConfig returns the canonical default mapping configuration
func DefaultConfig() *Config {
	return &Config{
		Name: DefaultName,
		Fields: []TargetField{
			{Name: "name", Aliases: []string{"name", "full_name", "customer_name", "client_name"}, Required: true},
			{Name: "address1", Aliases: []string{"address", "address1", "street_address", "street"}},
			{Name: "city", Aliases: []string{"city", "town"}},
			{Name: "state", Aliases: []string{"state", "province", "region"}},
			{Name: "zip", Aliases: []string{"zip", "zipcode", "postal_code", "postalcode", "zip_code"}},
			{Name: "auth_id", Aliases: []string{"auth_id", "authid", "authorization_id", "auth", "id"}, Required: true},
		},
	}
}

// Clone returns a deep copy so callers can hold an immutable snapshot
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := &Config{
		Name:   c.Name,
		Fields: make([]TargetField, len(c.Fields)),
	}
	for i, f := range c.Fields {
		clone.Fields[i] = TargetField{
			Name:     f.Name,
			Aliases:  append([]string(nil), f.Aliases...),
			Required: f.Required,
		}
	}
	return clone
}

// RequiredFields returns the names of required target fields in order
func (c *Config) RequiredFields() []string {
	var required []string
	for _, f := range c.Fields {
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return required
}

// Validate checks structural soundness of the configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "empty name")
	}
	if len(c.Fields) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "no target fields")
	}

	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "target field with empty name")
		}
		if seen[f.Name] {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("duplicate target field %q", f.Name))
		}
		seen[f.Name] = true
		if len(f.Aliases) == 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("target field %q has no aliases", f.Name))
		}
	}
	return nil
}

// aliasMatches reports whether a source field name matches an alias, either
// by case-insensitive equality or by containing the alias as a substring.
// The containment direction follows observed behavior: the alias must appear
// inside the source field name.
func aliasMatches(sourceField, alias string) bool {
	src := strings.ToLower(strings.TrimSpace(sourceField))
	al := strings.ToLower(alias)
	if src == al {
		return true
	}
	return strings.Contains(src, al)
}

// matchTarget returns the first target field whose alias list matches the
// given source field name, or nil.
func (c *Config) matchTarget(sourceField string) *TargetField {
	for i := range c.Fields {
		for _, alias := range c.Fields[i].Aliases {
			if aliasMatches(sourceField, alias) {
				return &c.Fields[i]
			}
		}
	}
	return nil
}
