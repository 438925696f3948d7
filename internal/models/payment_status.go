package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountingPath names how per-tranche discounts were derived for a snapshot.
type AccountingPath string

const (
	AccountingPathStandard             AccountingPath = "standard"
	AccountingPathLastTrancheReduction AccountingPath = "last_tranche_reduction"
)

// TrancheBasis explains which rule produced a tranche's figures.
type TrancheBasis string

const (
	TrancheBasisNormal               TrancheBasis = "normal"
	TrancheBasisScholarship          TrancheBasis = "scholarship"
	TrancheBasisLastTrancheReduction TrancheBasis = "last_tranche_reduction"
	TrancheBasisFullDiscount         TrancheBasis = "full_discount"
	TrancheBasisRecordedReduction    TrancheBasis = "recorded_reduction"
)

// TrancheReduction is one row of the last-tranche-first discount distribution.
type TrancheReduction struct {
	TrancheID        string          `json:"tranche_id"`
	Name             string          `json:"name"`
	Order            int             `json:"order"`
	NormalAmount     decimal.Decimal `json:"normal_amount"`
	ReducedAmount    decimal.Decimal `json:"reduced_amount"`
	ReductionApplied decimal.Decimal `json:"reduction_applied"`
}

// LastTrancheReduction is the global discount spread from the last tranche backward.
// Rows keep the order of the tranches passed in.
type LastTrancheReduction struct {
	Tranches       []TrancheReduction `json:"tranches"`
	TotalReduction decimal.Decimal    `json:"total_reduction"`
	// Unconsumed is the part of TotalReduction larger than the fees themselves.
	Unconsumed decimal.Decimal `json:"unconsumed"`
}

// ForTranche returns the row for trancheID.
func (r LastTrancheReduction) ForTranche(trancheID string) (TrancheReduction, bool) {
	for _, row := range r.Tranches {
		if row.TrancheID == trancheID {
			return row, true
		}
	}
	return TrancheReduction{}, false
}

// FinalPayment is the outcome of pricing a prospective payment.
type FinalPayment struct {
	FinalAmount     decimal.Decimal `json:"final_amount"`
	HasReduction    bool            `json:"has_reduction"`
	ReductionAmount decimal.Decimal `json:"reduction_amount"`
	PaymentType     PaymentType     `json:"payment_type"`
}

// TrancheStatus is the per-tranche line of a payment status snapshot.
type TrancheStatus struct {
	TrancheID         string          `json:"id"`
	Name              string          `json:"name"`
	Order             int             `json:"order"`
	RequiredAmount    decimal.Decimal `json:"required_amount"`
	EffectiveRequired decimal.Decimal `json:"effective_required"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	RemainingAmount   decimal.Decimal `json:"remaining_amount"`
	IsFullyPaid       bool            `json:"is_fully_paid"`
	ScholarshipAmount decimal.Decimal `json:"scholarship_amount"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	Basis             TrancheBasis    `json:"basis"`
}

// PaymentStatus is the billing snapshot of one student for one school year.
type PaymentStatus struct {
	StudentID    string  `json:"student_id"`
	StudentName  string  `json:"student_name"`
	ClassID      *string `json:"class_id,omitempty"`
	SchoolYearID string  `json:"school_year_id"`

	TotalRequired          decimal.Decimal `json:"total_required"`
	TotalEffectiveRequired decimal.Decimal `json:"total_effective_required"`
	TotalPaid              decimal.Decimal `json:"total_paid"`
	TotalRemaining         decimal.Decimal `json:"total_remaining"`
	IsFullyPaid            bool            `json:"is_fully_paid"`

	HasScholarship   bool            `json:"has_scholarship"`
	TotalScholarship decimal.Decimal `json:"total_scholarship"`
	TotalDiscount    decimal.Decimal `json:"total_discount"`

	AccountingPath      AccountingPath `json:"accounting_path"`
	HasExistingPayments bool           `json:"has_existing_payments"`

	DiscountEligible        bool            `json:"discount_eligible"`
	DiscountPercentage      decimal.Decimal `json:"discount_percentage"`
	DiscountDeadline        *time.Time      `json:"discount_deadline,omitempty"`
	DiscountAmount          decimal.Decimal `json:"discount_amount"`
	AmountToPayWithDiscount decimal.Decimal `json:"amount_to_pay_with_discount"`

	Tranches     []TrancheStatus `json:"tranches"`
	Installments []Tranche       `json:"installments"`
	Payments     []Payment       `json:"payments"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// TrancheStatusFor returns the breakdown line for trancheID.
func (s *PaymentStatus) TrancheStatusFor(trancheID string) (TrancheStatus, bool) {
	if s == nil {
		return TrancheStatus{}, false
	}
	for _, line := range s.Tranches {
		if line.TrancheID == trancheID {
			return line, true
		}
	}
	return TrancheStatus{}, false
}

// PaymentQuote prices a prospective payment and shows how it would be allocated.
type PaymentQuote struct {
	StudentID    string          `json:"student_id"`
	SchoolYearID string          `json:"school_year_id"`
	PaymentDate  time.Time       `json:"payment_date"`
	Payment      FinalPayment    `json:"payment"`
	Allocations  []PaymentDetail `json:"allocations"`
	Unallocated  decimal.Decimal `json:"unallocated"`
}

// ClassPaymentStatus gathers the snapshots of every student enrolled in a class.
type ClassPaymentStatus struct {
	ClassID        string          `json:"class_id"`
	SchoolYearID   string          `json:"school_year_id"`
	Students       []PaymentStatus `json:"students"`
	TotalRequired  decimal.Decimal `json:"total_required"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	FullyPaidCount int             `json:"fully_paid_count"`
	GeneratedAt    time.Time       `json:"generated_at"`
}
