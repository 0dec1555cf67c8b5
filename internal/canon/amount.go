package canon

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ZeroAmount is the wire form of an absent or unparseable amount.
const ZeroAmount = "0.00"

// ToAmount canonicalizes a locale-formatted amount to a two-decimal string.
// Thousands-separator commas are removed; empty or unparseable input
// becomes ZeroAmount.
//
//	ToAmount("5,000,000") == "5000000.00"
func ToAmount(raw string) string {
	d, ok := parseAmount(raw)
	if !ok {
		return ZeroAmount
	}
	return d.StringFixed(2)
}

// IsZeroAmount reports whether raw canonicalizes to a zero amount. Empty and
// unparseable text counts as zero.
func IsZeroAmount(raw string) bool {
	d, ok := parseAmount(raw)
	return !ok || d.IsZero()
}

func parseAmount(raw string) (decimal.Decimal, bool) {
	clean := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if clean == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
