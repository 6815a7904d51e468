package finance

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/libraria/acquisitions/internal/domain/invoice"
	"github.com/libraria/acquisitions/internal/domain/shared/valueobject"
)

// TransactionReconciler turns an invoice's fund distributions into
// create/update operations against the ledger transactions held by the
// external finance service. The workflow is "validate everything, then
// write everything": any fetch or validation failure aborts the batch
// before a single write is attempted.
//
// The engine performs read-then-decide without a distributed lock;
// callers must serialize reconciliation per invoice.
type TransactionReconciler struct {
	fiscalYears  FiscalYearSource
	budgets      BudgetSource
	transactions TransactionStore
	rates        RateResolver
	guard        *BudgetExpenseClassGuard
	logger       *zap.Logger
}

// NewTransactionReconciler creates a reconciler over the collaborator
// contracts.
func NewTransactionReconciler(
	fiscalYears FiscalYearSource,
	budgets BudgetSource,
	transactions TransactionStore,
	rates RateResolver,
	guard *BudgetExpenseClassGuard,
	logger *zap.Logger,
) *TransactionReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionReconciler{
		fiscalYears:  fiscalYears,
		budgets:      budgets,
		transactions: transactions,
		rates:        rates,
		guard:        guard,
		logger:       logger,
	}
}

// ReconcileResult reports what the reconciliation did
type ReconcileResult struct {
	Created []Transaction             `json:"created"`
	Updated []Transaction             `json:"updated"`
	Summary InvoiceTransactionSummary `json:"summary"`
	Rate    valueobject.ExchangeRate  `json:"rate"`
}

// pendingAmount is one expected transaction amount before matching
type pendingAmount struct {
	key          TransactionKey
	lineID       *uuid.UUID
	fiscalYearID uuid.UUID
	amount       valueobject.Money
}

// Reconcile computes the expected per-fund transaction amounts for the
// invoice, validates budget/expense-class constraints, matches the
// amounts against persisted transactions and issues creates/updates plus
// the transaction summary.
func (r *TransactionReconciler) Reconcile(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine) (*ReconcileResult, error) {
	fundIDs := referencedFunds(inv, lines)
	if len(fundIDs) == 0 {
		r.logger.Debug("invoice has no fund distributions, nothing to reconcile",
			zap.String("invoice_id", inv.ID.String()))
		return &ReconcileResult{Summary: InvoiceTransactionSummary{InvoiceID: inv.ID}}, nil
	}

	years, err := r.resolveFiscalYears(ctx, fundIDs)
	if err != nil {
		return nil, err
	}
	targetYear := years[fundIDs[0]]

	rate, err := r.resolveRate(ctx, inv, targetYear.Currency)
	if err != nil {
		return nil, err
	}

	expected, err := r.expectedAmounts(inv, lines, years, rate)
	if err != nil {
		return nil, err
	}

	holders, err := r.collectHolders(ctx, inv, lines, years)
	if err != nil {
		return nil, err
	}
	if err := r.guard.CheckExpenseClasses(ctx, holders); err != nil {
		return nil, err
	}

	existing, err := r.transactions.QueryTransactions(ctx, TransactionFilter{
		SourceInvoiceID: inv.ID,
		Types:           []TransactionType{TransactionTypePendingPayment, TransactionTypeEncumbrance},
	})
	if err != nil {
		return nil, err
	}

	result := r.matchTransactions(inv, expected, existing, rate)

	for i := range result.Created {
		if err := r.transactions.CreateTransaction(ctx, &result.Created[i]); err != nil {
			return nil, fmt.Errorf("creating transaction for fund %s: %w", result.Created[i].FromFundID, err)
		}
	}
	for i := range result.Updated {
		if err := r.transactions.UpdateTransaction(ctx, &result.Updated[i]); err != nil {
			return nil, fmt.Errorf("updating transaction %s: %w", result.Updated[i].ID, err)
		}
	}
	if err := r.transactions.UpdateInvoiceTransactionSummary(ctx, &result.Summary); err != nil {
		return nil, fmt.Errorf("updating transaction summary for invoice %s: %w", inv.ID, err)
	}

	r.logger.Info("invoice reconciled",
		zap.String("invoice_id", inv.ID.String()),
		zap.Int("created", len(result.Created)),
		zap.Int("updated", len(result.Updated)))
	return result, nil
}

// resolveFiscalYears fetches the current fiscal year for every
// referenced fund. A missing year is a hard failure.
func (r *TransactionReconciler) resolveFiscalYears(ctx context.Context, fundIDs []uuid.UUID) (map[uuid.UUID]*FiscalYear, error) {
	years := make(map[uuid.UUID]*FiscalYear, len(fundIDs))
	for _, fundID := range fundIDs {
		year, err := r.fiscalYears.GetCurrentFiscalYear(ctx, fundID)
		if err != nil {
			return nil, fmt.Errorf("resolving fiscal year for fund %s: %w", fundID, err)
		}
		years[fundID] = year
	}
	return years, nil
}

// resolveRate resolves the conversion rate from the invoice currency to
// the fiscal-year currency. An explicit non-zero invoice-level override
// wins over a fresh lookup; when absent, the resolved rate is written
// back onto the in-memory invoice.
func (r *TransactionReconciler) resolveRate(ctx context.Context, inv *invoice.Invoice, target valueobject.Currency) (valueobject.ExchangeRate, error) {
	if inv.HasExchangeRateOverride() {
		return r.rates.Resolve(ctx, inv.Currency, target, inv.ExchangeRate)
	}
	rate, err := r.rates.Resolve(ctx, inv.Currency, target, nil)
	if err != nil {
		return valueobject.ExchangeRate{}, err
	}
	factor := rate.Rate
	inv.ExchangeRate = &factor
	return rate, nil
}

// expectedAmounts computes one expected transaction per matching
// identity. Distributions on NOT_PRORATED invoice-level adjustments map
// to invoice-level transactions (no line id); line distributions map to
// one transaction per line per fund. Two distributions hitting the same
// identity are merged, since the finance service matches on identity.
func (r *TransactionReconciler) expectedAmounts(inv *invoice.Invoice, lines []invoice.InvoiceLine, years map[uuid.UUID]*FiscalYear, rate valueobject.ExchangeRate) ([]pendingAmount, error) {
	byKey := make(map[TransactionKey]*pendingAmount)

	add := func(dist invoice.FundDistribution, lineID *uuid.UUID, ownerTotal valueobject.Money) error {
		raw := valueobject.MustMoney(dist.ResolveAmount(ownerTotal.Amount()), inv.Currency)
		converted, err := raw.Convert(rate)
		if err != nil {
			return err
		}
		year, ok := years[dist.FundID]
		if !ok {
			return fmt.Errorf("no fiscal year resolved for fund %s", dist.FundID)
		}
		key := TransactionKey{
			SourceInvoiceID: inv.ID,
			FromFundID:      dist.FundID,
			TransactionType: TransactionTypePendingPayment,
		}
		if lineID != nil {
			key.SourceInvoiceLineID = *lineID
		}
		if existing, ok := byKey[key]; ok {
			sum, err := existing.amount.Add(converted)
			if err != nil {
				return err
			}
			existing.amount = sum
			return nil
		}
		byKey[key] = &pendingAmount{key: key, lineID: lineID, fiscalYearID: year.ID, amount: converted}
		return nil
	}

	for _, adj := range inv.NotProratedAdjustments() {
		ownerTotal := valueobject.MustMoney(adj.AmountFor(lines, inv.Currency), inv.Currency)
		for _, dist := range adj.FundDistributions {
			if err := add(dist, nil, ownerTotal); err != nil {
				return nil, err
			}
		}
	}
	for i := range lines {
		lineID := lines[i].ID
		ownerTotal := valueobject.MustMoney(lines[i].Total(), inv.Currency)
		for _, dist := range lines[i].FundDistributions {
			if err := add(dist, &lineID, ownerTotal); err != nil {
				return nil, err
			}
		}
	}

	out := make([]pendingAmount, 0, len(byKey))
	for _, p := range byKey {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].key.SourceInvoiceLineID != out[j].key.SourceInvoiceLineID {
			return out[i].key.SourceInvoiceLineID.String() < out[j].key.SourceInvoiceLineID.String()
		}
		return out[i].key.FromFundID.String() < out[j].key.FromFundID.String()
	})
	return out, nil
}

// collectHolders pairs every expense-class-carrying distribution with
// the active budget of its fund, fetched once per fund.
func (r *TransactionReconciler) collectHolders(ctx context.Context, inv *invoice.Invoice, lines []invoice.InvoiceLine, years map[uuid.UUID]*FiscalYear) ([]DistributionBudget, error) {
	budgetByFund := make(map[uuid.UUID]*Budget)
	holders := make([]DistributionBudget, 0)

	collect := func(dists []invoice.FundDistribution) error {
		for _, dist := range dists {
			if dist.ExpenseClassID == nil {
				continue
			}
			budget, ok := budgetByFund[dist.FundID]
			if !ok {
				year := years[dist.FundID]
				var err error
				budget, err = r.budgets.GetActiveBudget(ctx, dist.FundID, year.ID)
				if err != nil {
					return fmt.Errorf("resolving active budget for fund %s: %w", dist.FundID, err)
				}
				budgetByFund[dist.FundID] = budget
			}
			holders = append(holders, DistributionBudget{
				Distribution: dist,
				Budget:       *budget,
				FundCode:     dist.FundCode,
			})
		}
		return nil
	}

	for _, adj := range inv.NotProratedAdjustments() {
		if err := collect(adj.FundDistributions); err != nil {
			return nil, err
		}
	}
	for i := range lines {
		if err := collect(lines[i].FundDistributions); err != nil {
			return nil, err
		}
	}
	return holders, nil
}

// matchTransactions splits the expected amounts into creates and
// updates. A persisted transaction with the same identity gets the
// recomputed amount; an unmatched amount becomes a new PENDING_PAYMENT
// with source INVOICE. Matching encumbrances are updated alongside.
func (r *TransactionReconciler) matchTransactions(inv *invoice.Invoice, expected []pendingAmount, existing []Transaction, rate valueobject.ExchangeRate) *ReconcileResult {
	byKey := make(map[TransactionKey]Transaction, len(existing))
	for _, t := range existing {
		byKey[t.Key()] = t
	}

	result := &ReconcileResult{
		Created: make([]Transaction, 0),
		Updated: make([]Transaction, 0),
		Rate:    rate,
	}

	for _, p := range expected {
		if match, ok := byKey[p.key]; ok {
			match.Amount = p.amount.Amount()
			match.Currency = p.amount.Currency()
			result.Updated = append(result.Updated, match)
		} else {
			result.Created = append(result.Created, Transaction{
				ID:                  uuid.New(),
				TransactionType:     TransactionTypePendingPayment,
				Source:              TransactionSourceInvoice,
				Amount:              p.amount.Amount(),
				Currency:            p.amount.Currency(),
				FromFundID:          p.key.FromFundID,
				FiscalYearID:        p.fiscalYearID,
				SourceInvoiceID:     inv.ID,
				SourceInvoiceLineID: p.lineID,
			})
		}

		encumbranceKey := p.key
		encumbranceKey.TransactionType = TransactionTypeEncumbrance
		if enc, ok := byKey[encumbranceKey]; ok {
			enc.Amount = p.amount.Amount()
			enc.Currency = p.amount.Currency()
			result.Updated = append(result.Updated, enc)
		}
	}

	result.Summary = InvoiceTransactionSummary{
		InvoiceID:          inv.ID,
		NumPendingPayments: len(expected),
		NumPaymentsCredits: len(expected),
	}
	return result
}

// referencedFunds returns the distinct fund ids across line
// distributions and NOT_PRORATED invoice-level adjustment distributions,
// in order of first appearance.
func referencedFunds(inv *invoice.Invoice, lines []invoice.InvoiceLine) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	out := make([]uuid.UUID, 0)
	add := func(dists []invoice.FundDistribution) {
		for _, dist := range dists {
			if _, ok := seen[dist.FundID]; ok {
				continue
			}
			seen[dist.FundID] = struct{}{}
			out = append(out, dist.FundID)
		}
	}
	for _, adj := range inv.NotProratedAdjustments() {
		add(adj.FundDistributions)
	}
	for i := range lines {
		add(lines[i].FundDistributions)
	}
	return out
}
