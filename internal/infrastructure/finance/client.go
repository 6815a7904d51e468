// Package finance implements the engine's collaborator contracts over
// the external finance service's REST API. It is thin I/O glue: no
// retries, no graceful degradation; failures propagate to the engine
// as-is.
package finance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/libraria/acquisitions/internal/domain/finance"
	"github.com/libraria/acquisitions/internal/domain/shared"
	"github.com/libraria/acquisitions/internal/domain/shared/valueobject"
)

// ClientConfig holds connection settings for the finance service
type ClientConfig struct {
	BaseURL string
	Tenant  string
	Token   string
	Timeout time.Duration
}

// Client talks to the external finance service. It implements
// domain.FiscalYearSource, domain.BudgetSource, domain.ExpenseClassSource,
// domain.TransactionStore and exchange.RateSource.
type Client struct {
	baseURL    string
	tenant     string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a finance service client
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		tenant:     cfg.Tenant,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// collection is the envelope the finance service wraps list results in
type collection[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// GetCurrentFiscalYear fetches the fiscal year a fund currently operates in
func (c *Client) GetCurrentFiscalYear(ctx context.Context, fundID uuid.UUID) (*domain.FiscalYear, error) {
	var year domain.FiscalYear
	path := fmt.Sprintf("/finance/funds/%s/current-fiscal-year", fundID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &year); err != nil {
		return nil, err
	}
	return &year, nil
}

// GetActiveBudget fetches the active budget of a fund within a fiscal year
func (c *Client) GetActiveBudget(ctx context.Context, fundID, fiscalYearID uuid.UUID) (*domain.Budget, error) {
	query := url.Values{}
	query.Set("fundId", fundID.String())
	query.Set("fiscalYearId", fiscalYearID.String())
	query.Set("status", "Active")

	var budgets collection[domain.Budget]
	if err := c.doJSON(ctx, http.MethodGet, "/finance/budgets", query, nil, &budgets); err != nil {
		return nil, err
	}
	if len(budgets.Items) == 0 {
		return nil, shared.NewDomainErrorWithParams(
			shared.CodeBudgetNotFound,
			"no active budget for fund in current fiscal year",
			map[string]string{"fundId": fundID.String(), "fiscalYearId": fiscalYearID.String()},
		)
	}
	return &budgets.Items[0], nil
}

// GetBudgetExpenseClasses fetches the budget/expense-class links for the pair
func (c *Client) GetBudgetExpenseClasses(ctx context.Context, budgetID, expenseClassID uuid.UUID) ([]domain.BudgetExpenseClass, error) {
	query := url.Values{}
	query.Set("budgetId", budgetID.String())
	query.Set("expenseClassId", expenseClassID.String())

	var links collection[domain.BudgetExpenseClass]
	if err := c.doJSON(ctx, http.MethodGet, "/finance/budget-expense-classes", query, nil, &links); err != nil {
		return nil, err
	}
	return links.Items, nil
}

// GetExpenseClass fetches a single expense class by id
func (c *Client) GetExpenseClass(ctx context.Context, id uuid.UUID) (*domain.ExpenseClass, error) {
	var class domain.ExpenseClass
	if err := c.doJSON(ctx, http.MethodGet, "/finance/expense-classes/"+id.String(), nil, nil, &class); err != nil {
		return nil, err
	}
	return &class, nil
}

// QueryTransactions lists the invoice's persisted transactions
func (c *Client) QueryTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	query := url.Values{}
	query.Set("sourceInvoiceId", filter.SourceInvoiceID.String())
	for _, t := range filter.Types {
		query.Add("transactionType", t.String())
	}

	var transactions collection[domain.Transaction]
	if err := c.doJSON(ctx, http.MethodGet, "/finance/transactions", query, nil, &transactions); err != nil {
		return nil, err
	}
	return transactions.Items, nil
}

// CreateTransaction creates a new ledger transaction
func (c *Client) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	return c.doJSON(ctx, http.MethodPost, "/finance/transactions", nil, t, t)
}

// UpdateTransaction updates an existing ledger transaction
func (c *Client) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	return c.doJSON(ctx, http.MethodPut, "/finance/transactions/"+t.ID.String(), nil, t, nil)
}

// UpdateInvoiceTransactionSummary records the expected transaction
// counts for the invoice.
func (c *Client) UpdateInvoiceTransactionSummary(ctx context.Context, summary *domain.InvoiceTransactionSummary) error {
	path := "/finance/invoice-transaction-summaries/" + summary.InvoiceID.String()
	return c.doJSON(ctx, http.MethodPut, path, nil, summary, nil)
}

// FetchExchangeRate fetches a published rate for the pair
func (c *Client) FetchExchangeRate(ctx context.Context, from, to valueobject.Currency) (*valueobject.ExchangeRate, error) {
	query := url.Values{}
	query.Set("from", from.String())
	query.Set("to", to.String())

	var rate valueobject.ExchangeRate
	if err := c.doJSON(ctx, http.MethodGet, "/finance/exchange-rate", query, nil, &rate); err != nil {
		return nil, err
	}
	return &rate, nil
}

// doJSON performs one JSON request/response round trip
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tenant != "" {
		req.Header.Set("X-Tenant", c.tenant)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return shared.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("finance service returned an error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%s %s: finance service returned %d: %s", method, path, resp.StatusCode, payload)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
