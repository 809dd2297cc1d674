package plate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viscan/viscan-backend/internal/domain"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"uppercase passthrough", "KA01AB1234", "KA01AB1234"},
		{"lowercase", "ka01ab1234", "KA01AB1234"},
		{"spaces and hyphens", "KA-01 AB 1234", "KA01AB1234"},
		{"dots", "29A-123.45", "29A12345"},
		{"leading and trailing separators", "  -KA01AB1234- ", "KA01AB1234"},
		{"tabs and newlines", "KA\t01\nAB 1234", "KA01AB1234"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Canonicalize(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanonicalize_RegistrationAndDetectionAgree(t *testing.T) {
	a, err := Canonicalize("KA-01 AB 1234")
	require.NoError(t, err)
	b, err := Canonicalize("ka01ab1234")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCanonicalize_OneCharDifferenceStaysDistinct(t *testing.T) {
	a, err := Canonicalize("KA01AB1234")
	require.NoError(t, err)
	b, err := Canonicalize("KA01AB1235")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCanonicalize_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "--", " -.\t"} {
		_, err := Canonicalize(raw)
		assert.ErrorIs(t, err, domain.ErrEmptyPlate, "raw=%q", raw)
	}
}
