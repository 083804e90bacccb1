package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentRepositorySetFirstEnrolledAtOnlyWhenUnset(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET first_enrolled_at = $2, updated_at = $3 WHERE id = $1 AND first_enrolled_at IS NULL")).
		WithArgs("s1", at, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// A student with the stamp already set matches zero rows; the value is
	// immutable once written.
	require.NoError(t, repo.SetFirstEnrolledAt(context.Background(), "s1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE code = $1 LIMIT 1")).
		WithArgs("STU-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByCode(context.Background(), "STU-1", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
