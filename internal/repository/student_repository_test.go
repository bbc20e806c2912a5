package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intellilearn/admin-api/internal/models"
)

func TestStudentRepositoryListWithClassFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "name", "email", "class", "section", "status", "created_at", "updated_at"}).
		AddRow("s1", "STU20260830ABCDEF", "Student A", "s@example.com", "10", "A", "active", time.Now(), time.Now())
	mock.ExpectQuery(`FROM students WHERE 1=1 AND class = \$1 ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs("10").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students WHERE 1=1 AND class = \$1`).
		WithArgs("10").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.StudentFilter{Class: "10"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByStudentID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "name", "email"}).
		AddRow("s1", "STU20260830ABCDEF", "Student A", "s@example.com")
	mock.ExpectQuery(`FROM students WHERE student_id = \$1`).
		WithArgs("STU20260830ABCDEF").
		WillReturnRows(rows)

	student, err := repo.FindByStudentID(context.Background(), "STU20260830ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "s1", student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByEmailExcludesSelf(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE LOWER(email) = LOWER($1) AND id <> $2 LIMIT 1")).
		WithArgs("s@example.com", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err := repo.ExistsByEmail(context.Background(), "s@example.com", "s1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryBulkInsertEmptyBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	require.NoError(t, repo.BulkInsert(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("DELETE FROM students").
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
