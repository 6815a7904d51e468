package invoice

import (
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/libraria/acquisitions/internal/domain/shared/valueobject"
)

// ProrationEngine splits invoice-level adjustments across invoice lines
// with exact monetary conservation: for every prorated adjustment the
// per-line values it produces sum to the adjustment's expected total at
// the currency's minor-unit precision, never relying on floating-point
// equality.
//
// The engine is pure and synchronous. It never mutates the lines it is
// given; it works on clones and returns the lines that changed.
type ProrationEngine struct {
	logger *zap.Logger
}

// NewProrationEngine creates a proration engine. A nil logger is
// replaced with a no-op logger.
func NewProrationEngine(logger *zap.Logger) *ProrationEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProrationEngine{logger: logger}
}

// ApplyProratedAdjustments applies every prorated invoice-level
// adjustment to the lines and returns the distinct set of updated lines,
// ordered by line number suffix. Adjustments are processed independently
// and additively, in the order they appear on the invoice; later
// adjustments see lines already updated by earlier ones.
func (e *ProrationEngine) ApplyProratedAdjustments(lines []InvoiceLine, inv *Invoice) ([]InvoiceLine, error) {
	work, err := sortedClones(lines)
	if err != nil {
		return nil, err
	}

	updated := make(map[int]bool, len(work))
	for _, adj := range inv.Adjustments {
		if !adj.IsProrated() {
			continue
		}
		touched, err := e.applyOne(adj, work, inv.Currency)
		if err != nil {
			return nil, err
		}
		for idx := range touched {
			updated[idx] = true
		}
	}

	return collectUpdated(work, updated), nil
}

// ProcessProratedAdjustments first removes stale line-level adjustments
// whose originating invoice-level adjustment no longer exists, then
// re-applies every prorated adjustment. Running it twice with no change
// to the invoice-level adjustments yields identical per-line values.
func (e *ProrationEngine) ProcessProratedAdjustments(lines []InvoiceLine, inv *Invoice) ([]InvoiceLine, error) {
	work, err := sortedClones(lines)
	if err != nil {
		return nil, err
	}

	updated := make(map[int]bool, len(work))
	valid := inv.ProratedAdjustmentIDs()
	for i := range work {
		kept := work[i].Adjustments[:0]
		removed := false
		for _, adj := range work[i].Adjustments {
			if adj.AdjustmentID != nil {
				if _, ok := valid[*adj.AdjustmentID]; !ok {
					removed = true
					continue
				}
			}
			kept = append(kept, adj)
		}
		if removed {
			work[i].Adjustments = kept
			updated[i] = true
		}
	}

	for _, adj := range inv.Adjustments {
		if !adj.IsProrated() {
			continue
		}
		touched, err := e.applyOne(adj, work, inv.Currency)
		if err != nil {
			return nil, err
		}
		for idx := range touched {
			updated[idx] = true
		}
	}

	return collectUpdated(work, updated), nil
}

// applyOne prorates a single invoice-level adjustment over the already
// suffix-sorted working lines, mutating their adjustment lists in place.
// It returns the indexes of the lines whose adjustments changed.
func (e *ProrationEngine) applyOne(adj Adjustment, work []InvoiceLine, currency valueobject.Currency) (map[int]bool, error) {
	touched := make(map[int]bool)
	if len(work) == 0 {
		return touched, nil
	}
	if adj.ID == nil {
		e.logger.Warn("skipping prorated adjustment without id",
			zap.String("description", adj.Description),
			zap.String("prorate", adj.Prorate.String()))
		return touched, nil
	}

	// Percentage adjustments are collapsed into one amount first; the
	// amount is then prorated, never per-line percentages.
	expected := adj.Value
	if adj.Type == AdjustmentTypePercentage {
		expected = adj.AmountFor(work, currency)
	}

	shares, ok := e.computeShares(adj, expected, work, currency)
	if !ok {
		return touched, nil
	}
	distributeRemainder(shares, expected, currency)

	for i := range work {
		lineAdj := Adjustment{
			AdjustmentID: adj.ID,
			Description:  adj.Description,
			Type:         AdjustmentTypeAmount,
			Prorate:      ProrateNotProrated,
			Value:        shares[i],
		}
		if replaceLineAdjustment(&work[i], lineAdj) {
			touched[i] = true
		}
	}
	return touched, nil
}

// computeShares returns the currency-rounded raw share per line for the
// adjustment's prorate kind. The second return is false when the kind is
// unknown, which is logged and skipped rather than treated as an error.
func (e *ProrationEngine) computeShares(adj Adjustment, expected decimal.Decimal, work []InvoiceLine, currency valueobject.Currency) ([]decimal.Decimal, bool) {
	kind := adj.Prorate

	switch kind {
	case ProrateByAmount:
		base := decimal.Zero
		for i := range work {
			base = base.Add(work[i].SubTotal.Abs())
		}
		if base.IsZero() {
			// Every line has zero subtotal: fall back to an even split.
			return evenShares(expected, work, currency), true
		}
		shares := make([]decimal.Decimal, len(work))
		for i := range work {
			shares[i] = currency.Round(expected.Mul(work[i].SubTotal.Abs()).Div(base))
		}
		return shares, true

	case ProrateByQuantity:
		total := int64(0)
		for i := range work {
			total += int64(work[i].Quantity)
		}
		if total == 0 {
			return evenShares(expected, work, currency), true
		}
		shares := make([]decimal.Decimal, len(work))
		for i := range work {
			shares[i] = currency.Round(expected.Mul(decimal.NewFromInt(int64(work[i].Quantity))).Div(decimal.NewFromInt(total)))
		}
		return shares, true

	case ProrateByLine:
		return evenShares(expected, work, currency), true

	default:
		e.logger.Warn("unknown prorate kind, adjustment skipped",
			zap.String("adjustment_id", adj.ID.String()),
			zap.String("prorate", kind.String()))
		return nil, false
	}
}

// evenShares splits the expected amount evenly across lines
func evenShares(expected decimal.Decimal, work []InvoiceLine, currency valueobject.Currency) []decimal.Decimal {
	n := decimal.NewFromInt(int64(len(work)))
	share := currency.Round(expected.Div(n))
	shares := make([]decimal.Decimal, len(work))
	for i := range shares {
		shares[i] = share
	}
	return shares
}

// distributeRemainder spreads the rounding remainder one smallest
// currency unit at a time so that the shares sum to the expected total
// exactly. When the remainder signum is positive the walk starts at the
// tail, otherwise at the head; the unit added is signed by
// sign(expected) x remainderSignum.
func distributeRemainder(shares []decimal.Decimal, expected decimal.Decimal, currency valueobject.Currency) {
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s)
	}
	remainder := expected.Abs().Sub(sum.Abs())
	signum := remainder.Sign()
	if signum == 0 {
		return
	}

	unit := currency.SmallestUnit()
	signedUnit := unit.Mul(decimal.NewFromInt(int64(expected.Sign() * signum)))
	steps := remainder.Abs().Div(unit).IntPart()

	for k := int64(0); k < steps && k < int64(len(shares)); k++ {
		idx := int(k)
		if signum > 0 {
			idx = len(shares) - 1 - int(k)
		}
		shares[idx] = shares[idx].Add(signedUnit)
	}
}

// replaceLineAdjustment installs the prorated copy on the line,
// replacing any stale adjustment from the same origin. It reports
// whether the line actually changed, so re-running with identical input
// does not mark lines as updated.
func replaceLineAdjustment(line *InvoiceLine, lineAdj Adjustment) bool {
	for i, existing := range line.Adjustments {
		if existing.AdjustmentID == nil || *existing.AdjustmentID != *lineAdj.AdjustmentID {
			continue
		}
		if existing.Equals(lineAdj) {
			return false
		}
		line.Adjustments = append(line.Adjustments[:i], line.Adjustments[i+1:]...)
		line.Adjustments = append(line.Adjustments, lineAdj)
		return true
	}
	line.Adjustments = append(line.Adjustments, lineAdj)
	return true
}

// sortedClones clones every line and sorts the clones by the integer
// suffix of the invoice line number. This ordering governs which lines
// absorb rounding remainders, so it must be deterministic.
func sortedClones(lines []InvoiceLine) ([]InvoiceLine, error) {
	type keyed struct {
		line   InvoiceLine
		suffix int
	}
	work := make([]keyed, 0, len(lines))
	for _, line := range lines {
		suffix, err := line.NumberSuffix()
		if err != nil {
			return nil, err
		}
		work = append(work, keyed{line: line.Clone(), suffix: suffix})
	}
	sort.SliceStable(work, func(i, j int) bool {
		return work[i].suffix < work[j].suffix
	})
	out := make([]InvoiceLine, len(work))
	for i := range work {
		out[i] = work[i].line
	}
	return out, nil
}

// collectUpdated returns the updated lines in suffix order, de-duplicated
// by line identity (a line may be updated by multiple adjustments).
func collectUpdated(work []InvoiceLine, updated map[int]bool) []InvoiceLine {
	out := make([]InvoiceLine, 0, len(updated))
	for i := range work {
		if updated[i] {
			out = append(out, work[i])
		}
	}
	return out
}
