package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-billing/internal/models"
)

// ScholarshipRepository reads class scholarships.
type ScholarshipRepository struct {
	db *sqlx.DB
}

// NewScholarshipRepository constructs a ScholarshipRepository.
func NewScholarshipRepository(db *sqlx.DB) *ScholarshipRepository {
	return &ScholarshipRepository{db: db}
}

// ListActiveByClass returns the active scholarships of a class, oldest first.
func (r *ScholarshipRepository) ListActiveByClass(ctx context.Context, classID string) ([]models.ClassScholarship, error) {
	const query = `SELECT id, class_id, tranche_id, amount, active, description, created_at
        FROM class_scholarships
        WHERE class_id = $1 AND active = true
        ORDER BY created_at ASC, id ASC`
	var scholarships []models.ClassScholarship
	if err := r.db.SelectContext(ctx, &scholarships, query, classID); err != nil {
		return nil, fmt.Errorf("list class scholarships: %w", err)
	}
	return scholarships, nil
}
