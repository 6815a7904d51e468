package shared

// DomainError represents a domain-level failure with a machine-readable
// code and optional parameters for the caller to render.
type DomainError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithParams creates a domain error carrying parameters
// (fund code, expense class name, ...) for user-visible rendering.
func NewDomainErrorWithParams(code, message string, params map[string]string) *DomainError {
	return &DomainError{
		Code:       code,
		Message:    message,
		Parameters: params,
	}
}

// Common domain errors
var (
	ErrNotFound     = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Error codes raised by the financial engine. The surrounding service
// layer maps them onto HTTP statuses.
const (
	CodeBudgetExpenseClassNotFound = "BUDGET_EXPENSE_CLASS_NOT_FOUND"
	CodeInactiveExpenseClass       = "INACTIVE_EXPENSE_CLASS"
	CodeInvalidLineNumber          = "INVALID_LINE_NUMBER"
	CodeExchangeRateUnavailable    = "EXCHANGE_RATE_UNAVAILABLE"
	CodeFiscalYearNotFound         = "FISCAL_YEAR_NOT_FOUND"
	CodeBudgetNotFound             = "BUDGET_NOT_FOUND"
	CodeCurrencyMismatch           = "CURRENCY_MISMATCH"
)
