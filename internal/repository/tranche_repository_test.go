package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrancheRepositoryListActiveForClass(t *testing.T) {
	db, mock, cleanup := newBillingMock(t)
	defer cleanup()
	repo := NewTrancheRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "sort_order", "active", "school_year_id", "due_date", "class_id", "amount", "physical_amount", "optional"}).
		AddRow("tr-1", "Term 1", 1, true, "sy-2025", nil, "class-6", "150000", "0", false).
		AddRow("tr-2", "Term 2", 2, true, "sy-2025", nil, "class-6", "60000.50", "5000", true)
	mock.ExpectQuery("JOIN tranche_class_amounts a ON a.tranche_id = t.id AND a.class_id = \\$1").
		WithArgs("class-6", "sy-2025").
		WillReturnRows(rows)

	tranches, err := repo.ListActiveForClass(context.Background(), "class-6", "sy-2025")
	require.NoError(t, err)
	require.Len(t, tranches, 2)
	assert.Equal(t, 1, tranches[0].Order)
	fee, ok := tranches[1].AmountFor("class-6")
	require.True(t, ok)
	assert.Equal(t, "60000.5", fee.Amount.String())
	assert.Equal(t, "5000", fee.PhysicalAmount.String())
	assert.True(t, fee.Optional)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrancheRepositoryListActiveForClassError(t *testing.T) {
	db, mock, cleanup := newBillingMock(t)
	defer cleanup()
	repo := NewTrancheRepository(db)

	mock.ExpectQuery("FROM tranches t").WillReturnError(errors.New("db down"))

	_, err := repo.ListActiveForClass(context.Background(), "class-6", "sy-2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list tranches")
}
