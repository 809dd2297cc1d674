package handler

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/viscan/viscan-backend/internal/domain"
)

// parseAmountMinor converts a decimal rupee string ("500.00") into minor
// units (50000). Anything finer than two fractional digits, or not a
// positive amount, is rejected; no float arithmetic is involved.
func parseAmountMinor(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parseAmountMinor: %w", domain.ErrInvalidAmount)
	}

	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("parseAmountMinor: more than two decimal places: %w", domain.ErrInvalidAmount)
	}
	if !minor.IsPositive() {
		return 0, fmt.Errorf("parseAmountMinor: %w", domain.ErrInvalidAmount)
	}
	return minor.IntPart(), nil
}

// formatMinor renders minor units back into a two-decimal string.
func formatMinor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
