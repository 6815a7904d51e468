package finance

import (
	"context"

	"go.uber.org/zap"

	findomain "github.com/libraria/acquisitions/internal/domain/finance"
	"github.com/libraria/acquisitions/internal/domain/invoice"
)

// InvoiceFinancialService orchestrates the financial engine: adjustment
// proration and fund-transaction reconciliation. It owns no state; all
// persistence lives in the external finance service.
type InvoiceFinancialService struct {
	proration  *invoice.ProrationEngine
	reconciler *findomain.TransactionReconciler
	logger     *zap.Logger
}

// NewInvoiceFinancialService creates the orchestration service
func NewInvoiceFinancialService(
	proration *invoice.ProrationEngine,
	reconciler *findomain.TransactionReconciler,
	logger *zap.Logger,
) *InvoiceFinancialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceFinancialService{
		proration:  proration,
		reconciler: reconciler,
		logger:     logger,
	}
}

// RecalculateResult carries the outcome of an adjustment recalculation
type RecalculateResult struct {
	Invoice      *invoice.Invoice      `json:"invoice"`
	Lines        []invoice.InvoiceLine `json:"lines"`
	UpdatedLines int                   `json:"updated_lines"`
}

// RecalculateAdjustments removes stale prorated line adjustments,
// re-applies every prorated invoice-level adjustment and recomputes the
// invoice totals in memory. The caller persists the result.
func (s *InvoiceFinancialService) RecalculateAdjustments(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) (*RecalculateResult, error) {
	updated, err := s.proration.ProcessProratedAdjustments(lines, inv)
	if err != nil {
		return nil, err
	}

	merged := mergeLines(lines, updated)
	inv.RecalculateTotals(merged)

	s.logger.Debug("adjustments recalculated",
		zap.String("invoice_id", inv.ID.String()),
		zap.Int("lines", len(merged)),
		zap.Int("updated", len(updated)))
	return &RecalculateResult{
		Invoice:      inv,
		Lines:        merged,
		UpdatedLines: len(updated),
	}, nil
}

// ReconcileInvoice runs the full reconciliation workflow for the
// invoice. Callers must serialize concurrent reconciliations of one
// invoice; the engine performs read-then-decide without a lock.
func (s *InvoiceFinancialService) ReconcileInvoice(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) (*findomain.ReconcileResult, error) {
	return s.reconciler.Reconcile(ctx, inv, lines)
}

// mergeLines replaces originals with their updated counterparts by line
// identity, keeping the original order for untouched lines.
func mergeLines(original, updated []invoice.InvoiceLine) []invoice.InvoiceLine {
	byID := make(map[string]invoice.InvoiceLine, len(updated))
	for _, line := range updated {
		byID[line.ID.String()] = line
	}
	merged := make([]invoice.InvoiceLine, 0, len(original))
	for _, line := range original {
		if replaced, ok := byID[line.ID.String()]; ok {
			merged = append(merged, replaced)
			continue
		}
		merged = append(merged, line)
	}
	return merged
}
