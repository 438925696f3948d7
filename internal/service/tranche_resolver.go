package service

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-adp-billing/internal/models"
	"github.com/noah-isme/sma-adp-billing/pkg/money"
)

// ResolveOptions toggles which parts of a fee row count toward the amount owed.
// The zero value yields the raw cash amount of a mandatory fee.
type ResolveOptions struct {
	IncludePhysical bool
	IncludeOptional bool
	Scholarship     *models.ClassScholarship
}

// TrancheAmountResolver looks up what a student owes for one tranche from the per-class fee table.
type TrancheAmountResolver struct{}

// NewTrancheAmountResolver constructs a resolver.
func NewTrancheAmountResolver() *TrancheAmountResolver {
	return &TrancheAmountResolver{}
}

// Resolve returns the amount owed by student for tranche. Tranches without a fee row for
// the student's class, and optional fees unless requested, resolve to zero.
func (r *TrancheAmountResolver) Resolve(tranche models.Tranche, student *models.BillingStudent, opts ResolveOptions) decimal.Decimal {
	if !student.HasClass() {
		return decimal.Zero
	}
	fee, ok := tranche.AmountFor(student.Class())
	if !ok {
		return decimal.Zero
	}
	if fee.Optional && !opts.IncludeOptional {
		return decimal.Zero
	}

	amount := fee.Amount
	if opts.IncludePhysical {
		amount = amount.Add(fee.PhysicalAmount)
	}
	if opts.Scholarship.Targets(student.Class(), tranche.ID) {
		amount = money.NonNegative(amount.Sub(opts.Scholarship.Amount))
	}
	return amount
}
