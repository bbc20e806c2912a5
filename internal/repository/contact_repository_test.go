package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intellilearn/admin-api/internal/models"
)

func TestContactRepositoryListPendingFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_name", "principal_name", "email", "phone", "is_approved", "is_active", "priority_level", "created_at", "updated_at"}).
		AddRow("c1", "Green Hills School", "Jane Roe", "ghs@example.com", "+15550100", false, false, "normal", time.Now(), time.Now())
	mock.ExpectQuery(`FROM school_contacts WHERE 1=1 AND is_approved = \$1 AND is_active = \$2 ORDER BY created_at DESC`).
		WithArgs(false, false).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM school_contacts WHERE 1=1 AND is_approved = \$1 AND is_active = \$2`).
		WithArgs(false, false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	approved, active := false, false
	list, total, err := repo.List(context.Background(), models.ContactFilter{IsApproved: &approved, IsActive: &active})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM school_contacts WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("ghs@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByEmail(context.Background(), "ghs@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectExec("INSERT INTO school_contacts").
		WillReturnResult(sqlmock.NewResult(1, 1))

	contact := &models.SchoolContact{SchoolName: "Green Hills School", Email: "ghs@example.com"}
	require.NoError(t, repo.Create(context.Background(), contact))
	assert.NotEmpty(t, contact.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepositoryUpdateMissingRecord(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectExec("UPDATE school_contacts SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.SchoolContact{ID: "missing"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
