package invoice

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/libraria/acquisitions/internal/domain/shared"
	"github.com/libraria/acquisitions/internal/domain/shared/valueobject"
)

// Invoice is an acquisitions invoice. The engine mutates it only in
// memory; persistence belongs to the external finance service.
type Invoice struct {
	ID               uuid.UUID            `json:"id"`
	InvoiceNumber    string               `json:"invoice_number"`
	VendorID         uuid.UUID            `json:"vendor_id,omitempty"`
	Currency         valueobject.Currency `json:"currency"`
	SubTotal         decimal.Decimal      `json:"sub_total"`
	AdjustmentsTotal decimal.Decimal      `json:"adjustments_total"`
	Total            decimal.Decimal      `json:"total"`
	ExchangeRate     *decimal.Decimal     `json:"exchange_rate,omitempty"`
	Adjustments      []Adjustment         `json:"adjustments,omitempty"`
}

// ProratedAdjustmentIDs returns the ids of invoice-level adjustments
// that are currently prorated across lines.
func (inv *Invoice) ProratedAdjustmentIDs() map[uuid.UUID]struct{} {
	ids := make(map[uuid.UUID]struct{})
	for _, adj := range inv.Adjustments {
		if adj.IsProrated() && adj.ID != nil {
			ids[*adj.ID] = struct{}{}
		}
	}
	return ids
}

// NotProratedAdjustments returns invoice-level adjustments that stay on
// the invoice itself (invisible to the proration engine).
func (inv *Invoice) NotProratedAdjustments() []Adjustment {
	out := make([]Adjustment, 0)
	for _, adj := range inv.Adjustments {
		if !adj.IsProrated() {
			out = append(out, adj)
		}
	}
	return out
}

// HasExchangeRateOverride reports whether the invoice carries an
// explicit, non-zero exchange rate. An explicit value always wins over
// a fresh remote lookup.
func (inv *Invoice) HasExchangeRateOverride() bool {
	return inv.ExchangeRate != nil && !inv.ExchangeRate.IsZero()
}

// RecalculateTotals recomputes subTotal, adjustmentsTotal and total from
// the given lines. Percentage adjustments are collapsed against the
// currency-rounded sum of |subTotal| across lines, the same base the
// proration engine uses.
func (inv *Invoice) RecalculateTotals(lines []InvoiceLine) {
	subTotal := decimal.Zero
	for _, line := range lines {
		subTotal = subTotal.Add(line.SubTotal)
	}

	adjTotal := decimal.Zero
	for _, adj := range inv.Adjustments {
		adjTotal = adjTotal.Add(adj.AmountFor(lines, inv.Currency))
	}

	inv.SubTotal = inv.Currency.Round(subTotal)
	inv.AdjustmentsTotal = inv.Currency.Round(adjTotal)
	inv.Total = inv.SubTotal.Add(inv.AdjustmentsTotal)
}

// AmountFor collapses the adjustment into a currency amount. AMOUNT
// adjustments are their value; PERCENTAGE adjustments are resolved
// against the currency-rounded sum of |subTotal| across lines.
func (a Adjustment) AmountFor(lines []InvoiceLine, currency valueobject.Currency) decimal.Decimal {
	if a.Type != AdjustmentTypePercentage {
		return a.Value
	}
	base := decimal.Zero
	for _, line := range lines {
		base = base.Add(line.SubTotal.Abs())
	}
	base = currency.Round(base)
	return currency.Round(a.Value.Mul(base).Div(decimal.NewFromInt(100)))
}

// InvoiceLine belongs to exactly one invoice. Its adjustments list is
// rewritten by the proration engine; fund distributions drive the
// transaction reconciler.
type InvoiceLine struct {
	ID                uuid.UUID          `json:"id"`
	InvoiceID         uuid.UUID          `json:"invoice_id"`
	InvoiceLineNumber string             `json:"invoice_line_number"`
	Description       string             `json:"description,omitempty"`
	SubTotal          decimal.Decimal    `json:"sub_total"`
	Quantity          int                `json:"quantity"`
	Adjustments       []Adjustment       `json:"adjustments,omitempty"`
	FundDistributions []FundDistribution `json:"fund_distributions,omitempty"`
}

// AdjustmentsTotal returns the sum of the line's adjustment values.
// Line-level adjustments are always AMOUNT after proration.
func (l *InvoiceLine) AdjustmentsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, adj := range l.Adjustments {
		total = total.Add(adj.Value)
	}
	return total
}

// Total returns subTotal plus the line's adjustments
func (l *InvoiceLine) Total() decimal.Decimal {
	return l.SubTotal.Add(l.AdjustmentsTotal())
}

// Clone returns a copy with its own adjustments and fund distribution
// slices, so proration never aliases a caller-owned line.
func (l InvoiceLine) Clone() InvoiceLine {
	out := l
	out.Adjustments = make([]Adjustment, len(l.Adjustments))
	copy(out.Adjustments, l.Adjustments)
	out.FundDistributions = make([]FundDistribution, len(l.FundDistributions))
	copy(out.FundDistributions, l.FundDistributions)
	return out
}

// NumberSuffix parses the integer suffix of the invoice line number
// (text after the last hyphen). The format "<invoiceNumber>-<int>" is a
// contract with upstream; a line that does not match fails explicitly
// rather than being ordered by guesswork.
func (l *InvoiceLine) NumberSuffix() (int, error) {
	idx := strings.LastIndex(l.InvoiceLineNumber, "-")
	if idx < 0 || idx == len(l.InvoiceLineNumber)-1 {
		return 0, shared.NewDomainErrorWithParams(
			shared.CodeInvalidLineNumber,
			fmt.Sprintf("invoice line number %q has no integer suffix", l.InvoiceLineNumber),
			map[string]string{"invoiceLineNumber": l.InvoiceLineNumber},
		)
	}
	suffix, err := strconv.Atoi(l.InvoiceLineNumber[idx+1:])
	if err != nil {
		return 0, shared.NewDomainErrorWithParams(
			shared.CodeInvalidLineNumber,
			fmt.Sprintf("invoice line number %q has no integer suffix", l.InvoiceLineNumber),
			map[string]string{"invoiceLineNumber": l.InvoiceLineNumber},
		)
	}
	return suffix, nil
}
