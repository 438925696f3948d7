package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-billing/internal/models"
)

// BillingStudentRepository reads students together with their enrollment for a school year.
type BillingStudentRepository struct {
	db *sqlx.DB
}

// NewBillingStudentRepository constructs a BillingStudentRepository.
func NewBillingStudentRepository(db *sqlx.DB) *BillingStudentRepository {
	return &BillingStudentRepository{db: db}
}

const billingStudentColumns = `s.id, s.nis, s.full_name, e.class_id, c.name AS class_name,
        s.scholarship_enabled, $2::text AS school_year_id`

// FindByID returns the student and its active enrollment in the school year.
// A student without enrollment is returned with a nil class.
func (r *BillingStudentRepository) FindByID(ctx context.Context, id, schoolYearID string) (*models.BillingStudent, error) {
	query := `SELECT ` + billingStudentColumns + `
        FROM students s
        LEFT JOIN enrollments e ON e.student_id = s.id AND e.school_year_id = $2 AND e.status = $3
        LEFT JOIN classes c ON c.id = e.class_id
        WHERE s.id = $1`
	var student models.BillingStudent
	if err := r.db.GetContext(ctx, &student, query, id, schoolYearID, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListByClass returns active students enrolled in the class for the school year.
func (r *BillingStudentRepository) ListByClass(ctx context.Context, classID, schoolYearID string) ([]models.BillingStudent, error) {
	query := `SELECT ` + billingStudentColumns + `
        FROM students s
        JOIN enrollments e ON e.student_id = s.id AND e.school_year_id = $2 AND e.status = $3
        JOIN classes c ON c.id = e.class_id
        WHERE e.class_id = $1 AND s.active = true
        ORDER BY s.full_name ASC`
	var students []models.BillingStudent
	if err := r.db.SelectContext(ctx, &students, query, classID, schoolYearID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list billing students: %w", err)
	}
	return students, nil
}
