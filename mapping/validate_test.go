package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AllRequiredMappable(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name    string
		headers []string
	}{
		{"exact aliases", []string{"name", "auth_id"}},
		{"alternate aliases", []string{"full_name", "authorization_id"}},
		{"case insensitive", []string{"Full_Name", "AUTH_ID"}},
		{"alias as substring of header", []string{"customer_name_primary", "legacy_auth_id"}},
		{"extra unmapped headers", []string{"name", "auth_id", "favorite_color"}},
		{"canonical csv header", []string{"full_name", "street_address", "city", "state", "zipcode", "auth_id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.headers, cfg)
			assert.True(t, result.IsValid)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestValidate_MissingRequiredField(t *testing.T) {
	cfg := DefaultConfig()

	result := Validate([]string{"full_name", "street_address", "city", "state", "zipcode"}, cfg)

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "auth_id")
}

func TestValidate_AllRequiredMissing(t *testing.T) {
	cfg := DefaultConfig()

	result := Validate([]string{"favorite_color", "shoe_size"}, cfg)

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "name")
	assert.Contains(t, result.Errors[0], "auth_id")
}

func TestValidate_EmptyHeaders(t *testing.T) {
	result := Validate(nil, DefaultConfig())
	assert.False(t, result.IsValid)
	assert.NotEmpty(t, result.Errors)
}

func TestValidate_OptionalFieldsNeverBlock(t *testing.T) {
	cfg := &Config{
		Name: "loose",
		Fields: []TargetField{
			{Name: "key", Aliases: []string{"key"}, Required: true},
			{Name: "extra", Aliases: []string{"extra"}},
		},
	}

	result := Validate([]string{"key"}, cfg)
	assert.True(t, result.IsValid)
}
