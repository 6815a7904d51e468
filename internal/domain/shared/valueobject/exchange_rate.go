package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ExchangeRate is a conversion factor between two currencies. It is
// ephemeral: computed or cached by the conversion layer, never persisted.
type ExchangeRate struct {
	From Currency        `json:"from"`
	To   Currency        `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}

// NewExchangeRate creates an exchange rate, rejecting non-positive factors
func NewExchangeRate(from, to Currency, rate decimal.Decimal) (ExchangeRate, error) {
	if from == "" || to == "" {
		return ExchangeRate{}, fmt.Errorf("exchange rate requires both currencies, got %q -> %q", from, to)
	}
	if !rate.IsPositive() {
		return ExchangeRate{}, fmt.Errorf("exchange rate must be positive, got %s", rate)
	}
	return ExchangeRate{From: from, To: to, Rate: rate}, nil
}

// IdentityRate returns the rate 1.0 for a currency onto itself
func IdentityRate(currency Currency) ExchangeRate {
	return ExchangeRate{From: currency, To: currency, Rate: decimal.NewFromInt(1)}
}

// IsIdentity reports whether the rate converts a currency onto itself
func (r ExchangeRate) IsIdentity() bool {
	return r.From == r.To
}

// String returns a diagnostic representation
func (r ExchangeRate) String() string {
	return fmt.Sprintf("%s->%s@%s", r.From, r.To, r.Rate)
}
