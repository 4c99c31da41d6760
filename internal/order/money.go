package order

import (
	"fmt"
	"strings"
)

// ParseMinorUnits converts a decimal currency string ("12.50") into integer
// minor units (1250) without going through floating point.
//
// Accepts at most two fraction digits; a single fraction digit means tenths
// ("12.5" -> 1250). Sign prefixes are rejected - prices in the capture
// pipeline are never negative.
//
// This exists because the degraded-checkout payload carries prices as the
// upstream platform emitted them; converting via float64 would allow
// one-cent drift on values like 12.50 * 3.
func ParseMinorUnits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse amount: empty string")
	}
	if s[0] == '+' || s[0] == '-' {
		return 0, fmt.Errorf("parse amount %q: signed amounts not allowed", s)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	var units int64
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("parse amount %q: invalid character", s)
		}
		units = units*10 + int64(r-'0')
	}
	units *= 100

	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("parse amount %q: expected at most two fraction digits", s)
		}
		mult := int64(10)
		if len(frac) == 2 {
			mult = 1
		}
		var cents int64
		for _, r := range frac {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("parse amount %q: invalid character", s)
			}
			cents = cents*10 + int64(r-'0')
		}
		units += cents * mult
	}

	return units, nil
}

// FormatMinorUnits renders integer minor units as a decimal string
// ("1250" -> "12.50"). Inverse of ParseMinorUnits for display output.
func FormatMinorUnits(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
