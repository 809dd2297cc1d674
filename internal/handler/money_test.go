package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viscan/viscan-backend/internal/domain"
)

func TestParseAmountMinor(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"500.00", 50000},
		{"500", 50000},
		{"0.01", 1},
		{"1234.5", 123450},
	}
	for _, tc := range tests {
		got, err := parseAmountMinor(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseAmountMinor_Rejects(t *testing.T) {
	for _, in := range []string{"", "abc", "0", "-5", "0.001", "1.999"} {
		_, err := parseAmountMinor(in)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, in)
	}
}

func TestFormatMinor(t *testing.T) {
	assert.Equal(t, "500.00", formatMinor(50000))
	assert.Equal(t, "0.01", formatMinor(1))
	assert.Equal(t, "0.00", formatMinor(0))
}
