package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GlobalDiscountSettings is the school-wide early-payment discount: a student with no
// prior payment who settles the whole discounted balance by the deadline gets the
// percentage off every tranche.
type GlobalDiscountSettings struct {
	ScholarshipDeadline *time.Time      `json:"scholarship_deadline,omitempty"`
	ReductionPercentage decimal.Decimal `json:"reduction_percentage"`
	UpdatedAt           *time.Time      `json:"updated_at,omitempty"`
}

// Configured reports whether both a deadline and a positive percentage are set.
func (s *GlobalDiscountSettings) Configured() bool {
	return s != nil && s.ScholarshipDeadline != nil && s.ReductionPercentage.IsPositive()
}

// Percentage returns the reduction percentage, zero when settings are absent.
func (s *GlobalDiscountSettings) Percentage() decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return s.ReductionPercentage
}
