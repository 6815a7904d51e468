package finance

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/libraria/acquisitions/internal/domain/invoice"
	"github.com/libraria/acquisitions/internal/domain/shared"
)

// DistributionBudget pairs a fund distribution with the budget it draws
// from, plus the fund code for error parameters.
type DistributionBudget struct {
	Distribution invoice.FundDistribution
	Budget       Budget
	FundCode     string
}

// BudgetExpenseClassGuard verifies that every fund distribution carrying
// an expense class references a class that is assigned to the active
// budget and not inactive.
type BudgetExpenseClassGuard struct {
	expenseClasses ExpenseClassSource
	logger         *zap.Logger
}

// NewBudgetExpenseClassGuard creates a guard over the given source
func NewBudgetExpenseClassGuard(expenseClasses ExpenseClassSource, logger *zap.Logger) *BudgetExpenseClassGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BudgetExpenseClassGuard{
		expenseClasses: expenseClasses,
		logger:         logger,
	}
}

// CheckExpenseClasses runs one check per expense-class-carrying
// distribution. Every check is issued concurrently; the first failure
// observed fails the whole batch, but checks already in flight are not
// recalled.
func (g *BudgetExpenseClassGuard) CheckExpenseClasses(ctx context.Context, holders []DistributionBudget) error {
	var eg errgroup.Group
	for _, holder := range holders {
		if holder.Distribution.ExpenseClassID == nil {
			continue
		}
		eg.Go(func() error {
			return g.checkOne(ctx, holder)
		})
	}
	return eg.Wait()
}

func (g *BudgetExpenseClassGuard) checkOne(ctx context.Context, holder DistributionBudget) error {
	classID := *holder.Distribution.ExpenseClassID
	links, err := g.expenseClasses.GetBudgetExpenseClasses(ctx, holder.Budget.ID, classID)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return shared.NewDomainErrorWithParams(
			shared.CodeBudgetExpenseClassNotFound,
			fmt.Sprintf("budget %s has no link to expense class", holder.Budget.Name),
			g.errorParams(ctx, holder),
		)
	}
	for _, link := range links {
		if link.Status == ExpenseClassStatusInactive {
			return shared.NewDomainErrorWithParams(
				shared.CodeInactiveExpenseClass,
				fmt.Sprintf("expense class on budget %s is inactive", holder.Budget.Name),
				g.errorParams(ctx, holder),
			)
		}
	}
	return nil
}

// errorParams resolves the human-readable fund code and expense class
// name for the structured error. Lookup failures degrade the parameters,
// never the error itself.
func (g *BudgetExpenseClassGuard) errorParams(ctx context.Context, holder DistributionBudget) map[string]string {
	params := map[string]string{
		"fundCode": holder.FundCode,
	}
	class, err := g.expenseClasses.GetExpenseClass(ctx, *holder.Distribution.ExpenseClassID)
	if err != nil {
		g.logger.Warn("could not resolve expense class name for error parameters",
			zap.String("expense_class_id", holder.Distribution.ExpenseClassID.String()),
			zap.Error(err))
		params["expenseClassName"] = holder.Distribution.ExpenseClassID.String()
		return params
	}
	params["expenseClassName"] = class.Name
	return params
}
