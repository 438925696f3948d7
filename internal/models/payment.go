package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountProvenance records, at allocation time, why a detail's required amount was reduced.
type DiscountProvenance string

const (
	ProvenanceNone             DiscountProvenance = "NONE"
	ProvenanceClassScholarship DiscountProvenance = "CLASS_SCHOLARSHIP"
	ProvenanceGlobalDiscount   DiscountProvenance = "GLOBAL_DISCOUNT"
)

// Valid reports whether p is one of the known provenance values.
func (p DiscountProvenance) Valid() bool {
	switch p {
	case ProvenanceNone, ProvenanceClassScholarship, ProvenanceGlobalDiscount:
		return true
	default:
		return false
	}
}

// PaymentType classifies a payer for a given payment.
type PaymentType string

const (
	PaymentTypeScholarship    PaymentType = "scholarship"
	PaymentTypeGlobalDiscount PaymentType = "global_discount"
	PaymentTypeNormal         PaymentType = "normal"
)

// Payment is a historical payment made by a student for a school year.
type Payment struct {
	ID           string          `db:"id" json:"id"`
	StudentID    string          `db:"student_id" json:"student_id"`
	SchoolYearID string          `db:"school_year_id" json:"school_year_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	PaymentDate  time.Time       `db:"payment_date" json:"payment_date"`
	PhysicalOnly bool            `db:"physical_only" json:"physical_only"`
	Reference    *string         `db:"reference" json:"reference,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	Details      []PaymentDetail `db:"-" json:"details"`
}

// PaymentDetail is the share of a payment allocated to one tranche.
type PaymentDetail struct {
	ID                   string             `db:"id" json:"id"`
	PaymentID            string             `db:"payment_id" json:"payment_id"`
	TrancheID            string             `db:"tranche_id" json:"tranche_id"`
	AmountAllocated      decimal.Decimal    `db:"amount_allocated" json:"amount_allocated"`
	RequiredAmountAtTime decimal.Decimal    `db:"required_amount_at_time" json:"required_amount_at_time"`
	WasReduced           bool               `db:"was_reduced" json:"was_reduced"`
	Provenance           DiscountProvenance `db:"provenance" json:"provenance"`
}
