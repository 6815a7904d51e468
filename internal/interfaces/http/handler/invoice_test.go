package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	financeapp "github.com/libraria/acquisitions/internal/application/finance"
	findomain "github.com/libraria/acquisitions/internal/domain/finance"
	"github.com/libraria/acquisitions/internal/domain/invoice"
	"github.com/libraria/acquisitions/internal/domain/shared"
	"github.com/libraria/acquisitions/internal/domain/shared/valueobject"
	"github.com/libraria/acquisitions/internal/interfaces/http/dto"
)

// stubFinance backs the reconciler with canned reference data
type stubFinance struct {
	fundID uuid.UUID
	yearID uuid.UUID
}

func (s *stubFinance) GetCurrentFiscalYear(_ context.Context, fundID uuid.UUID) (*findomain.FiscalYear, error) {
	return &findomain.FiscalYear{ID: s.yearID, Code: "FY2026", Currency: valueobject.USD}, nil
}

func (s *stubFinance) GetActiveBudget(_ context.Context, fundID, _ uuid.UUID) (*findomain.Budget, error) {
	return &findomain.Budget{ID: uuid.New(), Name: "HIST-2026", FundID: fundID}, nil
}

func (s *stubFinance) GetBudgetExpenseClasses(_ context.Context, _, _ uuid.UUID) ([]findomain.BudgetExpenseClass, error) {
	return nil, nil
}

func (s *stubFinance) GetExpenseClass(_ context.Context, id uuid.UUID) (*findomain.ExpenseClass, error) {
	return &findomain.ExpenseClass{ID: id, Name: "Serials"}, nil
}

func (s *stubFinance) QueryTransactions(_ context.Context, _ findomain.TransactionFilter) ([]findomain.Transaction, error) {
	return nil, nil
}

func (s *stubFinance) CreateTransaction(_ context.Context, _ *findomain.Transaction) error { return nil }

func (s *stubFinance) UpdateTransaction(_ context.Context, _ *findomain.Transaction) error { return nil }

func (s *stubFinance) UpdateInvoiceTransactionSummary(_ context.Context, _ *findomain.InvoiceTransactionSummary) error {
	return nil
}

type stubRates struct{}

func (stubRates) Resolve(_ context.Context, from, to valueobject.Currency, custom *decimal.Decimal) (valueobject.ExchangeRate, error) {
	if custom != nil {
		return valueobject.ExchangeRate{From: from, To: to, Rate: *custom}, nil
	}
	return valueobject.IdentityRate(from), nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *stubFinance) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stub := &stubFinance{fundID: uuid.New(), yearID: uuid.New()}
	guard := findomain.NewBudgetExpenseClassGuard(stub, nil)
	reconciler := findomain.NewTransactionReconciler(stub, stub, stub, stubRates{}, guard, nil)
	service := financeapp.NewInvoiceFinancialService(invoice.NewProrationEngine(nil), reconciler, nil)

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewInvoiceHandler(service, "default", nil).RegisterRoutes(api)
	return engine, stub
}

func perform(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestRecalculateAdjustmentsEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t)

	t.Run("prorates and returns updated lines", func(t *testing.T) {
		adjID := uuid.New()
		inv := invoice.Invoice{
			ID:       uuid.New(),
			Currency: valueobject.USD,
			Adjustments: []invoice.Adjustment{{
				ID:      &adjID,
				Type:    invoice.AdjustmentTypeAmount,
				Prorate: invoice.ProrateByLine,
				Value:   decimal.RequireFromString("10"),
			}},
		}
		lines := make([]invoice.InvoiceLine, 0, 3)
		for i := 1; i <= 3; i++ {
			lines = append(lines, invoice.InvoiceLine{
				ID:                uuid.New(),
				InvoiceID:         inv.ID,
				InvoiceLineNumber: fmt.Sprintf("10000-%d", i),
				SubTotal:          decimal.NewFromInt(20),
				Quantity:          1,
			})
		}

		rec, resp := perform(t, engine, http.MethodPost,
			"/api/v1/invoices/"+inv.ID.String()+"/adjustments/recalculate",
			InvoiceRequest{Invoice: inv, Lines: lines})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Success)

		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var result financeapp.RecalculateResult
		require.NoError(t, json.Unmarshal(data, &result))
		assert.Equal(t, 3, result.UpdatedLines)
		assert.True(t, result.Invoice.Total.Equal(decimal.RequireFromString("70")))
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost,
			"/api/v1/invoices/"+uuid.NewString()+"/adjustments/recalculate",
			bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("path and body id must match", func(t *testing.T) {
		inv := invoice.Invoice{ID: uuid.New(), Currency: valueobject.USD}
		rec, resp := perform(t, engine, http.MethodPost,
			"/api/v1/invoices/"+uuid.NewString()+"/adjustments/recalculate",
			InvoiceRequest{Invoice: inv})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	})

	t.Run("unknown currency is a bad request", func(t *testing.T) {
		inv := invoice.Invoice{ID: uuid.New(), Currency: "NOPE"}
		rec, _ := perform(t, engine, http.MethodPost,
			"/api/v1/invoices/"+inv.ID.String()+"/adjustments/recalculate",
			InvoiceRequest{Invoice: inv})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed line number surfaces the domain code", func(t *testing.T) {
		adjID := uuid.New()
		inv := invoice.Invoice{
			ID:       uuid.New(),
			Currency: valueobject.USD,
			Adjustments: []invoice.Adjustment{{
				ID:      &adjID,
				Type:    invoice.AdjustmentTypeAmount,
				Prorate: invoice.ProrateByLine,
				Value:   decimal.RequireFromString("10"),
			}},
		}
		lines := []invoice.InvoiceLine{{
			ID:                uuid.New(),
			InvoiceID:         inv.ID,
			InvoiceLineNumber: "no-suffix-",
			SubTotal:          decimal.NewFromInt(20),
			Quantity:          1,
		}}

		rec, resp := perform(t, engine, http.MethodPost,
			"/api/v1/invoices/"+inv.ID.String()+"/adjustments/recalculate",
			InvoiceRequest{Invoice: inv, Lines: lines})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, shared.CodeInvalidLineNumber, resp.Error.Code)
		assert.Equal(t, "no-suffix-", resp.Error.Parameters["invoiceLineNumber"])
	})
}

func TestReconcileEndpoint(t *testing.T) {
	engine, stub := newTestRouter(t)

	t.Run("reconciles the invoice distributions", func(t *testing.T) {
		inv := invoice.Invoice{ID: uuid.New(), Currency: valueobject.USD}
		lines := []invoice.InvoiceLine{{
			ID:                uuid.New(),
			InvoiceID:         inv.ID,
			InvoiceLineNumber: "10000-1",
			SubTotal:          decimal.NewFromInt(100),
			Quantity:          1,
			FundDistributions: []invoice.FundDistribution{{
				FundID:           stub.fundID,
				DistributionType: invoice.DistributionTypePercentage,
				Value:            decimal.NewFromInt(100),
			}},
		}}

		rec, resp := perform(t, engine, http.MethodPost,
			"/api/v1/invoices/"+inv.ID.String()+"/reconcile",
			InvoiceRequest{Invoice: inv, Lines: lines})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Success)

		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var result findomain.ReconcileResult
		require.NoError(t, json.Unmarshal(data, &result))
		require.Len(t, result.Created, 1)
		assert.Equal(t, findomain.TransactionTypePendingPayment, result.Created[0].TransactionType)
		assert.Equal(t, 1, result.Summary.NumPendingPayments)
	})

	t.Run("expense class violation maps to 422", func(t *testing.T) {
		classID := uuid.New()
		inv := invoice.Invoice{ID: uuid.New(), Currency: valueobject.USD}
		lines := []invoice.InvoiceLine{{
			ID:                uuid.New(),
			InvoiceID:         inv.ID,
			InvoiceLineNumber: "10000-1",
			SubTotal:          decimal.NewFromInt(100),
			Quantity:          1,
			FundDistributions: []invoice.FundDistribution{{
				FundID:           stub.fundID,
				FundCode:         "HIST",
				ExpenseClassID:   &classID,
				DistributionType: invoice.DistributionTypePercentage,
				Value:            decimal.NewFromInt(100),
			}},
		}}

		rec, resp := perform(t, engine, http.MethodPost,
			"/api/v1/invoices/"+inv.ID.String()+"/reconcile",
			InvoiceRequest{Invoice: inv, Lines: lines})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, shared.CodeBudgetExpenseClassNotFound, resp.Error.Code)
		assert.Equal(t, "HIST", resp.Error.Parameters["fundCode"])
	})
}
