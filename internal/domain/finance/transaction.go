package finance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/libraria/acquisitions/internal/domain/shared/valueobject"
)

// TransactionType defines the ledger transaction type
type TransactionType string

const (
	TransactionTypePendingPayment TransactionType = "PENDING_PAYMENT"
	TransactionTypeEncumbrance    TransactionType = "ENCUMBRANCE"
	TransactionTypePayment        TransactionType = "PAYMENT"
	TransactionTypeCredit         TransactionType = "CREDIT"
)

// IsValid checks if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypePendingPayment, TransactionTypeEncumbrance,
		TransactionTypePayment, TransactionTypeCredit:
		return true
	}
	return false
}

// String returns the string representation
func (t TransactionType) String() string {
	return string(t)
}

// TransactionSource defines what produced a transaction
type TransactionSource string

const (
	TransactionSourceInvoice TransactionSource = "INVOICE"
)

// Transaction is a ledger transaction held by the external finance
// service. A nil SourceInvoiceLineID denotes an invoice-level,
// non-line-specific transaction.
type Transaction struct {
	ID                  uuid.UUID            `json:"id"`
	TransactionType     TransactionType      `json:"transaction_type"`
	Source              TransactionSource    `json:"source"`
	Amount              decimal.Decimal      `json:"amount"`
	Currency            valueobject.Currency `json:"currency"`
	FromFundID          uuid.UUID            `json:"from_fund_id"`
	FiscalYearID        uuid.UUID            `json:"fiscal_year_id"`
	SourceInvoiceID     uuid.UUID            `json:"source_invoice_id"`
	SourceInvoiceLineID *uuid.UUID           `json:"source_invoice_line_id,omitempty"`
}

// TransactionKey is the identity used to match expected amounts against
// persisted transactions.
type TransactionKey struct {
	SourceInvoiceID     uuid.UUID
	SourceInvoiceLineID uuid.UUID // uuid.Nil for invoice-level transactions
	FromFundID          uuid.UUID
	TransactionType     TransactionType
}

// Key returns the matching identity of the transaction
func (t Transaction) Key() TransactionKey {
	k := TransactionKey{
		SourceInvoiceID: t.SourceInvoiceID,
		FromFundID:      t.FromFundID,
		TransactionType: t.TransactionType,
	}
	if t.SourceInvoiceLineID != nil {
		k.SourceInvoiceLineID = *t.SourceInvoiceLineID
	}
	return k
}

// TransactionFilter narrows a transaction query against the external
// finance service.
type TransactionFilter struct {
	SourceInvoiceID uuid.UUID
	Types           []TransactionType
}

// InvoiceTransactionSummary records how many transactions the external
// finance service should expect for an invoice, so it can detect when
// all of them have arrived.
type InvoiceTransactionSummary struct {
	InvoiceID          uuid.UUID `json:"invoice_id"`
	NumPendingPayments int       `json:"num_pending_payments"`
	NumPaymentsCredits int       `json:"num_payments_credits"`
}
