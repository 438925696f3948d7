package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClassScholarship grants a fixed reduction on one tranche to the eligible students of one class.
type ClassScholarship struct {
	ID          string          `db:"id" json:"id"`
	ClassID     string          `db:"class_id" json:"class_id"`
	TrancheID   string          `db:"tranche_id" json:"tranche_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Active      bool            `db:"active" json:"active"`
	Description *string         `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Targets reports whether the scholarship applies to the given class and tranche.
func (s *ClassScholarship) Targets(classID, trancheID string) bool {
	return s != nil && s.Active && s.ClassID == classID && s.TrancheID == trancheID
}
