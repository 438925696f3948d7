package repository

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-billing/internal/models"
)

func newBillingMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
	}
}

var billingStudentCols = []string{"id", "nis", "full_name", "class_id", "class_name", "scholarship_enabled", "school_year_id"}

func TestBillingStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newBillingMock(t)
	defer cleanup()
	repo := NewBillingStudentRepository(db)

	rows := sqlmock.NewRows(billingStudentCols).
		AddRow("stu-1", "001", "Ada", "class-6", "6eme A", true, "sy-2025")
	mock.ExpectQuery("FROM students s\\s+LEFT JOIN enrollments e").
		WithArgs("stu-1", "sy-2025", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	student, err := repo.FindByID(context.Background(), "stu-1", "sy-2025")
	require.NoError(t, err)
	assert.Equal(t, "class-6", student.Class())
	assert.True(t, student.ScholarshipEnabled)
	assert.Equal(t, "sy-2025", student.SchoolYearID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingStudentRepositoryFindByIDWithoutEnrollment(t *testing.T) {
	db, mock, cleanup := newBillingMock(t)
	defer cleanup()
	repo := NewBillingStudentRepository(db)

	rows := sqlmock.NewRows(billingStudentCols).
		AddRow("stu-2", "002", "Bo", nil, nil, false, "sy-2025")
	mock.ExpectQuery("FROM students s").WillReturnRows(rows)

	student, err := repo.FindByID(context.Background(), "stu-2", "sy-2025")
	require.NoError(t, err)
	assert.False(t, student.HasClass())
	assert.Equal(t, "", student.Class())
}

func TestBillingStudentRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newBillingMock(t)
	defer cleanup()
	repo := NewBillingStudentRepository(db)

	mock.ExpectQuery("FROM students s").WillReturnRows(sqlmock.NewRows(billingStudentCols))

	_, err := repo.FindByID(context.Background(), "missing", "sy-2025")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestBillingStudentRepositoryListByClass(t *testing.T) {
	db, mock, cleanup := newBillingMock(t)
	defer cleanup()
	repo := NewBillingStudentRepository(db)

	rows := sqlmock.NewRows(billingStudentCols).
		AddRow("stu-1", "001", "Ada", "class-6", "6eme A", true, "sy-2025").
		AddRow("stu-3", "003", "Cy", "class-6", "6eme A", false, "sy-2025")
	mock.ExpectQuery("WHERE e.class_id = \\$1 AND s.active = true").
		WithArgs("class-6", "sy-2025", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	students, err := repo.ListByClass(context.Background(), "class-6", "sy-2025")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "stu-3", students[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
