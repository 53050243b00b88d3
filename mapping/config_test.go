package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultName, cfg.Name)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"name", "auth_id"}, cfg.RequiredFields())

	names := make([]string, len(cfg.Fields))
	for i, f := range cfg.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"name", "address1", "city", "state", "zip", "auth_id"}, names)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Name: "x", Fields: []TargetField{{Name: "f", Aliases: []string{"a"}}}}, false},
		{"empty name", Config{Fields: []TargetField{{Name: "f", Aliases: []string{"a"}}}}, true},
		{"no fields", Config{Name: "x"}, true},
		{"field without name", Config{Name: "x", Fields: []TargetField{{Aliases: []string{"a"}}}}, true},
		{"field without aliases", Config{Name: "x", Fields: []TargetField{{Name: "f"}}}, true},
		{"duplicate fields", Config{Name: "x", Fields: []TargetField{
			{Name: "f", Aliases: []string{"a"}},
			{Name: "f", Aliases: []string{"b"}},
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_CloneIsDeep(t *testing.T) {
	original := DefaultConfig()
	clone := original.Clone()

	clone.Fields[0].Aliases[0] = "mutated"
	clone.Fields[0].Name = "mutated"

	assert.Equal(t, "name", original.Fields[0].Name)
	assert.Equal(t, "name", original.Fields[0].Aliases[0])
}

func TestAliasMatches(t *testing.T) {
	tests := []struct {
		source   string
		alias    string
		expected bool
	}{
		{"name", "name", true},
		{"NAME", "name", true},
		{"  name  ", "name", true},
		{"customer_name", "name", true},
		{"name", "customer_name", false},
		{"zipcode", "zip", true},
		{"paid", "id", true},
		{"city", "town", false},
	}

	for _, tt := range tests {
		t.Run(tt.source+"/"+tt.alias, func(t *testing.T) {
			assert.Equal(t, tt.expected, aliasMatches(tt.source, tt.alias))
		})
	}
}
