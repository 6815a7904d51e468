package invoice

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentType defines how an adjustment value is expressed
type AdjustmentType string

const (
	AdjustmentTypeAmount     AdjustmentType = "AMOUNT"
	AdjustmentTypePercentage AdjustmentType = "PERCENTAGE"
)

// IsValid checks if the adjustment type is valid
func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentTypeAmount, AdjustmentTypePercentage:
		return true
	}
	return false
}

// String returns the string representation
func (t AdjustmentType) String() string {
	return string(t)
}

// ProrateKind defines how an invoice-level adjustment is split across lines
type ProrateKind string

const (
	ProrateNotProrated ProrateKind = "NOT_PRORATED"
	ProrateByLine      ProrateKind = "BY_LINE"
	ProrateByAmount    ProrateKind = "BY_AMOUNT"
	ProrateByQuantity  ProrateKind = "BY_QUANTITY"
)

// IsValid checks if the prorate kind is valid
func (k ProrateKind) IsValid() bool {
	switch k {
	case ProrateNotProrated, ProrateByLine, ProrateByAmount, ProrateByQuantity:
		return true
	}
	return false
}

// String returns the string representation
func (k ProrateKind) String() string {
	return string(k)
}

// AllProrateKinds returns all valid prorate kinds
func AllProrateKinds() []ProrateKind {
	return []ProrateKind{ProrateNotProrated, ProrateByLine, ProrateByAmount, ProrateByQuantity}
}

// Adjustment is a monetary or percentage modification attached either to
// the invoice (possibly prorated) or to a single line.
//
// Invariant: a line-level adjustment always has Prorate NOT_PRORATED and
// a non-nil AdjustmentID pointing at the invoice-level adjustment that
// produced it; an invoice-level prorated adjustment has AdjustmentID nil.
type Adjustment struct {
	ID                *uuid.UUID         `json:"id,omitempty"`
	AdjustmentID      *uuid.UUID         `json:"adjustment_id,omitempty"`
	Description       string             `json:"description,omitempty"`
	Type              AdjustmentType     `json:"type"`
	Prorate           ProrateKind        `json:"prorate"`
	Value             decimal.Decimal    `json:"value"`
	FundDistributions []FundDistribution `json:"fund_distributions,omitempty"`
}

// IsProrated reports whether the adjustment is split across lines
func (a Adjustment) IsProrated() bool {
	return a.Prorate != ProrateNotProrated && a.Prorate != ""
}

// Equals compares the fields that matter for idempotent replacement on a
// line: origin, type, prorate kind and value.
func (a Adjustment) Equals(other Adjustment) bool {
	if (a.AdjustmentID == nil) != (other.AdjustmentID == nil) {
		return false
	}
	if a.AdjustmentID != nil && *a.AdjustmentID != *other.AdjustmentID {
		return false
	}
	return a.Type == other.Type &&
		a.Prorate == other.Prorate &&
		a.Value.Equal(other.Value)
}

// DistributionType defines how a fund distribution value is expressed
type DistributionType string

const (
	DistributionTypeAmount     DistributionType = "AMOUNT"
	DistributionTypePercentage DistributionType = "PERCENTAGE"
)

// IsValid checks if the distribution type is valid
func (t DistributionType) IsValid() bool {
	switch t {
	case DistributionTypeAmount, DistributionTypePercentage:
		return true
	}
	return false
}

// String returns the string representation
func (t DistributionType) String() string {
	return string(t)
}

// FundDistribution assigns a portion of a monetary value to a ledger
// fund, optionally tagged with an expense class. It belongs to either an
// Adjustment or an InvoiceLine.
type FundDistribution struct {
	FundID           uuid.UUID        `json:"fund_id"`
	FundCode         string           `json:"fund_code,omitempty"`
	ExpenseClassID   *uuid.UUID       `json:"expense_class_id,omitempty"`
	DistributionType DistributionType `json:"distribution_type"`
	Value            decimal.Decimal  `json:"value"`
}

// ResolveAmount returns the monetary amount this distribution assigns
// out of the owning line's or adjustment's total. AMOUNT distributions
// pass their absolute value through; PERCENTAGE distributions are
// resolved against the owning total first.
func (d FundDistribution) ResolveAmount(ownerTotal decimal.Decimal) decimal.Decimal {
	if d.DistributionType == DistributionTypePercentage {
		return ownerTotal.Mul(d.Value).Div(decimal.NewFromInt(100))
	}
	return d.Value.Abs()
}
