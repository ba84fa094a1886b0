// Package money centralizes the decimal conventions used for all monetary
// values: balances and amounts are stored at full precision and only rounded
// (half-up, two places) at formatting boundaries.
package money

import "github.com/shopspring/decimal"

// DisplayPlaces is the scale applied when presenting amounts to users.
const DisplayPlaces = 2

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// IsPositive reports whether the amount is strictly greater than zero.
func IsPositive(amount decimal.Decimal) bool {
	return amount.IsPositive()
}

// Format renders the amount rounded half-up to two decimal places. Stored
// values are never mutated by formatting.
func Format(amount decimal.Decimal) string {
	return amount.Round(DisplayPlaces).StringFixed(DisplayPlaces)
}

// RoundDisplay returns the amount rounded half-up to two decimal places, for
// derived figures such as averages that are reported rather than stored.
func RoundDisplay(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(DisplayPlaces)
}

// Parse converts raw input into a decimal amount.
func Parse(value string) (decimal.Decimal, error) {
	return decimal.NewFromString(value)
}
