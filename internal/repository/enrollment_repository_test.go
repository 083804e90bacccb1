package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryActiveByCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "student_id", "joined_at", "ended_at", "is_active", "created_at", "updated_at"}).
		AddRow("e1", "c1", "s1", time.Now(), nil, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, student_id, joined_at, ended_at, is_active, created_at, updated_at FROM enrollments WHERE course_id = $1 AND is_active = TRUE")).
		WithArgs("c1").
		WillReturnRows(rows)

	active, err := repo.ActiveByCourse(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateForcesOpenInterval(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(sqlmock.AnyArg(), "c1", "s1", sqlmock.AnyArg(), nil, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ended := time.Now()
	enrollment := &models.Enrollment{CourseID: "c1", StudentID: "s1", JoinedAt: time.Now(), IsActive: false, EndedAt: &ended}
	require.NoError(t, repo.Create(context.Background(), enrollment))

	assert.True(t, enrollment.IsActive)
	assert.Nil(t, enrollment.EndedAt)
	assert.NotEmpty(t, enrollment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCloseAndReactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	endedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET is_active = FALSE, ended_at = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("e1", endedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Close(context.Background(), "e1", endedAt))

	joinedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET is_active = TRUE, ended_at = NULL, joined_at = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("e1", joinedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Reactivate(context.Background(), "e1", joinedAt))

	assert.NoError(t, mock.ExpectationsWereMet())
}
