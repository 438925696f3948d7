package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-adp-billing/internal/models"
)

// TrancheRepository reads tranche definitions and their per-class fee tables.
type TrancheRepository struct {
	db *sqlx.DB
}

// NewTrancheRepository constructs a TrancheRepository.
func NewTrancheRepository(db *sqlx.DB) *TrancheRepository {
	return &TrancheRepository{db: db}
}

type trancheRow struct {
	ID             string          `db:"id"`
	Name           string          `db:"name"`
	Order          int             `db:"sort_order"`
	Active         bool            `db:"active"`
	SchoolYearID   string          `db:"school_year_id"`
	DueDate        *time.Time      `db:"due_date"`
	ClassID        string          `db:"class_id"`
	Amount         decimal.Decimal `db:"amount"`
	PhysicalAmount decimal.Decimal `db:"physical_amount"`
	Optional       bool            `db:"optional"`
}

// ListActiveForClass returns the active tranches of the school year that carry a fee
// row for the class, ordered by their natural order. Each tranche holds that single fee row.
func (r *TrancheRepository) ListActiveForClass(ctx context.Context, classID, schoolYearID string) ([]models.Tranche, error) {
	const query = `SELECT t.id, t.name, t.sort_order, t.active, t.school_year_id, t.due_date,
        a.class_id, a.amount, a.physical_amount, a.optional
        FROM tranches t
        JOIN tranche_class_amounts a ON a.tranche_id = t.id AND a.class_id = $1
        WHERE t.school_year_id = $2 AND t.active = true
        ORDER BY t.sort_order ASC, t.id ASC`
	var rows []trancheRow
	if err := r.db.SelectContext(ctx, &rows, query, classID, schoolYearID); err != nil {
		return nil, fmt.Errorf("list tranches: %w", err)
	}

	tranches := make([]models.Tranche, 0, len(rows))
	for _, row := range rows {
		tranches = append(tranches, models.Tranche{
			ID:           row.ID,
			Name:         row.Name,
			Order:        row.Order,
			Active:       row.Active,
			SchoolYearID: row.SchoolYearID,
			DueDate:      row.DueDate,
			ClassAmounts: []models.TrancheClassAmount{{
				TrancheID:      row.ID,
				ClassID:        row.ClassID,
				Amount:         row.Amount,
				PhysicalAmount: row.PhysicalAmount,
				Optional:       row.Optional,
			}},
		})
	}
	return tranches, nil
}
