package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-billing/internal/models"
)

// PaymentRepository reads payment history with per-tranche allocations.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListForStudent returns the student's payments for the school year, oldest first,
// with their details attached. Physical-only payments (in-kind contributions) are excluded.
func (r *PaymentRepository) ListForStudent(ctx context.Context, studentID, schoolYearID string) ([]models.Payment, error) {
	const query = `SELECT id, student_id, school_year_id, amount, payment_date, physical_only, reference, created_at
        FROM payments
        WHERE student_id = $1 AND school_year_id = $2 AND physical_only = false
        ORDER BY payment_date ASC, created_at ASC`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID, schoolYearID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	if len(payments) == 0 {
		return payments, nil
	}

	ids := make([]string, len(payments))
	for i, p := range payments {
		ids[i] = p.ID
	}
	detailQuery, args, err := sqlx.In(`SELECT id, payment_id, tranche_id, amount_allocated, required_amount_at_time, was_reduced,
        COALESCE(provenance, 'NONE') AS provenance
        FROM payment_details WHERE payment_id IN (?) ORDER BY id ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build payment details query: %w", err)
	}
	var details []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &details, r.db.Rebind(detailQuery), args...); err != nil {
		return nil, fmt.Errorf("list payment details: %w", err)
	}

	byPayment := make(map[string][]models.PaymentDetail, len(payments))
	for _, detail := range details {
		byPayment[detail.PaymentID] = append(byPayment[detail.PaymentID], detail)
	}
	for i := range payments {
		payments[i].Details = byPayment[payments[i].ID]
	}
	return payments, nil
}
