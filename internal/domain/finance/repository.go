package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/libraria/acquisitions/internal/domain/shared/valueobject"
)

// The engine is a library; these contracts are its whole boundary. The
// external finance service implements them, the engine only consumes.

// FiscalYearSource resolves the current fiscal year of a fund
type FiscalYearSource interface {
	GetCurrentFiscalYear(ctx context.Context, fundID uuid.UUID) (*FiscalYear, error)
}

// BudgetSource resolves the active budget of a fund within a fiscal year
type BudgetSource interface {
	GetActiveBudget(ctx context.Context, fundID, fiscalYearID uuid.UUID) (*Budget, error)
}

// ExpenseClassSource resolves expense classes and their budget links
type ExpenseClassSource interface {
	GetBudgetExpenseClasses(ctx context.Context, budgetID, expenseClassID uuid.UUID) ([]BudgetExpenseClass, error)
	GetExpenseClass(ctx context.Context, id uuid.UUID) (*ExpenseClass, error)
}

// TransactionStore reads and writes ledger transactions held by the
// external finance service.
type TransactionStore interface {
	QueryTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	CreateTransaction(ctx context.Context, t *Transaction) error
	UpdateTransaction(ctx context.Context, t *Transaction) error
	UpdateInvoiceTransactionSummary(ctx context.Context, summary *InvoiceTransactionSummary) error
}

// RateResolver converts between currencies. Implemented by the exchange
// infrastructure; a nil custom rate means "resolve one for me".
type RateResolver interface {
	Resolve(ctx context.Context, from, to valueobject.Currency, custom *decimal.Decimal) (valueobject.ExchangeRate, error)
}
