// Package money provides integer minor-unit monetary arithmetic for refund
// amounts. Floating point never enters the math path; floats appear only at
// the result boundary where callers expect decimal amounts.
package money

import (
	"fmt"
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money represents a monetary value in minor units of a specific currency.
type Money struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"` // ISO 4217 code
}

// FromMinor creates Money from an amount in minor units (e.g. cents).
func FromMinor(amountMinor int64, cur string) Money {
	return Money{AmountMinor: amountMinor, Currency: cur}
}

// FromFloat creates Money from a decimal major-unit amount, rounding to the
// nearest minor unit. Catalog prices arrive as decimals.
func FromFloat(amount float64, cur string) Money {
	return Money{AmountMinor: int64(math.Round(amount * 100)), Currency: cur}
}

// Zero returns a zero amount in the given currency.
func Zero(cur string) Money {
	return Money{Currency: cur}
}

// Add adds two amounts. Returns an error on currency mismatch.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{AmountMinor: m.AmountMinor + other.AmountMinor, Currency: m.Currency}, nil
}

// MulQuantity multiplies the amount by an item quantity.
func (m Money) MulQuantity(qty int) Money {
	return Money{AmountMinor: m.AmountMinor * int64(qty), Currency: m.Currency}
}

// DeductPercent returns the amount after deducting the given percentage,
// rounded to the nearest minor unit. Used for restocking fees.
func (m Money) DeductPercent(percent float64) Money {
	kept := float64(m.AmountMinor) * (1 - percent/100)
	return Money{AmountMinor: int64(math.Round(kept)), Currency: m.Currency}
}

// IsZero returns true if the amount is 0.
func (m Money) IsZero() bool {
	return m.AmountMinor == 0
}

// LessThan compares amounts, ignoring currency.
func (m Money) LessThan(other Money) bool {
	return m.AmountMinor < other.AmountMinor
}

// Float64 returns the decimal major-unit value for result payloads.
func (m Money) Float64() float64 {
	return float64(m.AmountMinor) / 100
}

// Display renders a human-facing string such as "$199.99" for receipts.
// Unknown currency codes fall back to a plain decimal rendering.
func (m Money) Display() string {
	unit, err := currency.ParseISO(m.Currency)
	if err != nil {
		return fmt.Sprintf("%.2f %s", m.Float64(), m.Currency)
	}
	p := message.NewPrinter(language.AmericanEnglish)
	return p.Sprint(currency.Symbol(unit.Amount(m.Float64())))
}
