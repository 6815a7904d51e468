package finance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/libraria/acquisitions/internal/domain/shared/valueobject"
)

// Fund is a ledger fund, read-only reference data
type Fund struct {
	ID       uuid.UUID `json:"id"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	LedgerID uuid.UUID `json:"ledger_id"`
}

// FiscalYear is the accounting period a fund currently operates in
type FiscalYear struct {
	ID       uuid.UUID            `json:"id"`
	Code     string               `json:"code"`
	Currency valueobject.Currency `json:"currency"`
}

// Budget is the active budget of a fund within a fiscal year
type Budget struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	FundID       uuid.UUID       `json:"fund_id"`
	FiscalYearID uuid.UUID       `json:"fiscal_year_id"`
	Allocated    decimal.Decimal `json:"allocated"`
}

// ExpenseClass is a budget sub-category a fund distribution may be
// tagged with.
type ExpenseClass struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

// ExpenseClassStatus is the status of an expense class link on a budget
type ExpenseClassStatus string

const (
	ExpenseClassStatusActive   ExpenseClassStatus = "ACTIVE"
	ExpenseClassStatusInactive ExpenseClassStatus = "INACTIVE"
)

// IsValid checks if the status is valid
func (s ExpenseClassStatus) IsValid() bool {
	switch s {
	case ExpenseClassStatusActive, ExpenseClassStatusInactive:
		return true
	}
	return false
}

// BudgetExpenseClass links an expense class to a budget. A fund
// distribution carrying an expense class is only usable when this link
// exists and is ACTIVE.
type BudgetExpenseClass struct {
	ID             uuid.UUID          `json:"id"`
	BudgetID       uuid.UUID          `json:"budget_id"`
	ExpenseClassID uuid.UUID          `json:"expense_class_id"`
	Status         ExpenseClassStatus `json:"status"`
}
