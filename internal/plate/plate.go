// Package plate canonicalizes recognized plate strings so that
// registration-time and detection-time forms always compare equal.
package plate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/viscan/viscan-backend/internal/domain"
)

// Canonicalize uppercases raw and strips whitespace, hyphens, and dots.
// It is a pure function of its input: no locale or time dependence, so the
// key stored at registration and the key computed at detection agree.
// Returns domain.ErrEmptyPlate if nothing is left.
func Canonicalize(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) || r == '-' || r == '.' {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}

	key := b.String()
	if key == "" {
		return "", fmt.Errorf("Canonicalize: %w", domain.ErrEmptyPlate)
	}
	return key, nil
}
