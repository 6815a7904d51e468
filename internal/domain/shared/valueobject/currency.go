package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
	xcurrency "golang.org/x/text/currency"
)

// Currency represents an ISO 4217 currency code
type Currency string

const (
	USD Currency = "USD" // US Dollar (default)
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	JPY Currency = "JPY" // Japanese Yen
	CAD Currency = "CAD" // Canadian Dollar
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = USD

// String returns the ISO code
func (c Currency) String() string {
	return string(c)
}

// Validate checks that the code is a known ISO 4217 currency
func (c Currency) Validate() error {
	if _, err := xcurrency.ParseISO(string(c)); err != nil {
		return fmt.Errorf("invalid currency code %q: %w", string(c), err)
	}
	return nil
}

// FractionDigits returns the number of minor-unit digits for the
// currency (2 for USD, 0 for JPY). Unknown codes fall back to 2.
func (c Currency) FractionDigits() int32 {
	unit, err := xcurrency.ParseISO(string(c))
	if err != nil {
		return 2
	}
	scale, _ := xcurrency.Standard.Rounding(unit)
	return int32(scale)
}

// SmallestUnit returns 10^-fractionDigits, the increment used when
// distributing rounding remainders.
func (c Currency) SmallestUnit() decimal.Decimal {
	return decimal.New(1, -c.FractionDigits())
}

// Round rounds an amount to the currency's default rounding
// (half away from zero at the minor-unit precision).
func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.FractionDigits())
}
