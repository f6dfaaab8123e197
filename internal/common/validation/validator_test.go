package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorPassesCleanInput(t *testing.T) {
	v := NewValidator()
	v.RequireString("Signer One", "name")
	v.RequireNonEmpty(2, "signers")
	v.RequireEmail("signer@example.com", "email")

	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Error())
}

func TestRequireString(t *testing.T) {
	v := NewValidator()
	v.RequireString("", "name")
	v.RequireString("   ", "label")

	require.True(t, v.HasErrors())
	assert.Contains(t, v.Error().Error(), "name is required")
	assert.Contains(t, v.Error().Error(), "label is required")
}

func TestRequireNonEmpty(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty(0, "signers")

	require.True(t, v.HasErrors())
	assert.Contains(t, v.Error().Error(), "signers must not be empty")
}

func TestRequireEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"signer@example.com", true},
		{"first.last+tag@sub.example.co", true},
		{"", false},
		{"not-an-email", false},
		{"missing@tld", false},
		{"@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			v := NewValidator()
			v.RequireEmail(tt.email, "email")
			assert.Equal(t, !tt.valid, v.HasErrors())
		})
	}
}

func TestPrefixApplied(t *testing.T) {
	v := NewValidatorWithPrefix("send request")
	v.RequireString("", "name")

	require.True(t, v.HasErrors())
	assert.Contains(t, v.Error().Error(), "send request: name is required")
}

func TestErrorsJoined(t *testing.T) {
	v := NewValidator()
	v.RequireString("", "name").RequireEmail("bad", "email")

	require.True(t, v.HasErrors())
	assert.Contains(t, v.Error().Error(), "; ")
}
