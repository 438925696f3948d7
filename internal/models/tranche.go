package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tranche is a named, ordered billing period of a school year (e.g. "1st term").
type Tranche struct {
	ID           string               `db:"id" json:"id"`
	Name         string               `db:"name" json:"name"`
	Order        int                  `db:"sort_order" json:"order"`
	Active       bool                 `db:"active" json:"active"`
	SchoolYearID string               `db:"school_year_id" json:"school_year_id"`
	DueDate      *time.Time           `db:"due_date" json:"due_date,omitempty"`
	ClassAmounts []TrancheClassAmount `db:"-" json:"class_amounts,omitempty"`
}

// TrancheClassAmount is the fee a class owes for one tranche.
type TrancheClassAmount struct {
	TrancheID      string          `db:"tranche_id" json:"tranche_id"`
	ClassID        string          `db:"class_id" json:"class_id"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	PhysicalAmount decimal.Decimal `db:"physical_amount" json:"physical_amount"`
	Optional       bool            `db:"optional" json:"optional"`
}

// AmountFor returns the fee row for classID when one exists.
func (t *Tranche) AmountFor(classID string) (TrancheClassAmount, bool) {
	if t == nil || classID == "" {
		return TrancheClassAmount{}, false
	}
	for _, amount := range t.ClassAmounts {
		if amount.ClassID == classID {
			return amount, true
		}
	}
	return TrancheClassAmount{}, false
}
