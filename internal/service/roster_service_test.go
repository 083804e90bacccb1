package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

type fakeRosterTx struct {
	course      *models.Course
	students    map[string]*models.Student
	enrollments map[string]*models.Enrollment
	audits      []models.AuditLog
	nextID      int
}

func (f *fakeRosterTx) Course(ctx context.Context, id string) (*models.Course, error) {
	if f.course == nil || f.course.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *f.course
	return &cp, nil
}

func (f *fakeRosterTx) Student(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := f.students[id]; ok {
		cp := *student
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRosterTx) ActiveEnrollments(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	var active []models.Enrollment
	for _, e := range f.enrollments {
		if e.CourseID == courseID && e.IsActive {
			active = append(active, *e)
		}
	}
	return active, nil
}

func (f *fakeRosterTx) EnrollmentByCourseAndStudent(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	for _, e := range f.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRosterTx) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if f.enrollments == nil {
		f.enrollments = make(map[string]*models.Enrollment)
	}
	f.nextID++
	enrollment.ID = string(rune('a' + f.nextID))
	enrollment.IsActive = true
	enrollment.EndedAt = nil
	cp := *enrollment
	f.enrollments[enrollment.ID] = &cp
	return nil
}

func (f *fakeRosterTx) CloseEnrollment(ctx context.Context, id string, endedAt time.Time) error {
	e := f.enrollments[id]
	e.IsActive = false
	end := endedAt
	e.EndedAt = &end
	return nil
}

func (f *fakeRosterTx) ReactivateEnrollment(ctx context.Context, id string, joinedAt time.Time) error {
	e := f.enrollments[id]
	e.IsActive = true
	e.EndedAt = nil
	e.JoinedAt = joinedAt
	return nil
}

func (f *fakeRosterTx) SetFirstEnrolledAt(ctx context.Context, studentID string, at time.Time) error {
	student := f.students[studentID]
	if student.FirstEnrolledAt == nil {
		stamp := at
		student.FirstEnrolledAt = &stamp
	}
	return nil
}

func (f *fakeRosterTx) AppendAudit(ctx context.Context, entry *models.AuditLog) error {
	f.audits = append(f.audits, *entry)
	return nil
}

type fakeRosterStore struct {
	tx *fakeRosterTx
}

func (s *fakeRosterStore) InRosterTx(ctx context.Context, fn func(tx repository.RosterTx) error) error {
	return fn(s.tx)
}

func newRosterFixture() *fakeRosterTx {
	return &fakeRosterTx{
		course: &models.Course{ID: "c1", Code: "MATH-7A"},
		students: map[string]*models.Student{
			"s1": {ID: "s1", Code: "STU-1"},
			"s2": {ID: "s2", Code: "STU-2"},
			"s3": {ID: "s3", Code: "STU-3"},
		},
		enrollments: make(map[string]*models.Enrollment),
	}
}

func manager() models.Actor {
	return models.Actor{ID: "admin-1", CanManageRosters: true}
}

func TestRosterApplyFreshRoster(t *testing.T) {
	tx := newRosterFixture()
	svc := NewRosterService(&fakeRosterStore{tx: tx}, nil, zap.NewNop())

	result, err := svc.Apply(context.Background(), "c1", []string{"s1", "s2"}, manager())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 0, result.Removed)

	active, _ := tx.ActiveEnrollments(context.Background(), "c1")
	assert.Len(t, active, 2)
	require.Len(t, tx.audits, 1)
	assert.Equal(t, models.AuditActionRosterStudentsAdded, tx.audits[0].Action)
	assert.NotNil(t, tx.students["s1"].FirstEnrolledAt)
	assert.NotNil(t, tx.students["s2"].FirstEnrolledAt)
	assert.Nil(t, tx.students["s3"].FirstEnrolledAt)
}

func TestRosterApplyIdempotent(t *testing.T) {
	tx := newRosterFixture()
	svc := NewRosterService(&fakeRosterStore{tx: tx}, nil, zap.NewNop())

	_, err := svc.Apply(context.Background(), "c1", []string{"s1", "s2"}, manager())
	require.NoError(t, err)
	joined := tx.enrollments["b"].JoinedAt

	result, err := svc.Apply(context.Background(), "c1", []string{"s2", "s1", "s1"}, manager())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 0, result.Removed)
	assert.Equal(t, joined, tx.enrollments["b"].JoinedAt)
	assert.Len(t, tx.audits, 1)
}

func TestRosterApplyDiff(t *testing.T) {
	tx := newRosterFixture()
	svc := NewRosterService(&fakeRosterStore{tx: tx}, nil, zap.NewNop())

	_, err := svc.Apply(context.Background(), "c1", []string{"s1", "s2"}, manager())
	require.NoError(t, err)

	result, err := svc.Apply(context.Background(), "c1", []string{"s2", "s3"}, manager())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Removed)

	active, _ := tx.ActiveEnrollments(context.Background(), "c1")
	got := make(map[string]bool)
	for _, e := range active {
		got[e.StudentID] = true
	}
	assert.True(t, got["s2"])
	assert.True(t, got["s3"])
	assert.False(t, got["s1"])
	assert.Len(t, tx.audits, 3)
}

func TestRosterApplyReactivatesClosedRow(t *testing.T) {
	tx := newRosterFixture()
	svc := NewRosterService(&fakeRosterStore{tx: tx}, nil, zap.NewNop())

	_, err := svc.Apply(context.Background(), "c1", []string{"s1"}, manager())
	require.NoError(t, err)
	first := tx.students["s1"].FirstEnrolledAt

	_, err = svc.Apply(context.Background(), "c1", nil, manager())
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), "c1", []string{"s1"}, manager())
	require.NoError(t, err)

	// One row per (course, student) pair, reopened in place.
	assert.Len(t, tx.enrollments, 1)
	for _, e := range tx.enrollments {
		assert.True(t, e.IsActive)
		assert.Nil(t, e.EndedAt)
	}
	// first_enrolled_at is set once and never restamped.
	assert.Equal(t, first, tx.students["s1"].FirstEnrolledAt)
}

func TestRosterApplyUnauthorized(t *testing.T) {
	tx := newRosterFixture()
	svc := NewRosterService(&fakeRosterStore{tx: tx}, nil, zap.NewNop())

	_, err := svc.Apply(context.Background(), "c1", []string{"s1"}, models.Actor{ID: "viewer"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
	assert.Empty(t, tx.enrollments)
}

func TestRosterApplyCourseNotFound(t *testing.T) {
	tx := newRosterFixture()
	svc := NewRosterService(&fakeRosterStore{tx: tx}, nil, zap.NewNop())

	_, err := svc.Apply(context.Background(), "missing", []string{"s1"}, manager())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRosterApplyDeletedCourse(t *testing.T) {
	tx := newRosterFixture()
	tx.course.Deleted = true
	svc := NewRosterService(&fakeRosterStore{tx: tx}, nil, zap.NewNop())

	_, err := svc.Apply(context.Background(), "c1", []string{"s1"}, manager())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRosterApplyUnknownStudent(t *testing.T) {
	tx := newRosterFixture()
	svc := NewRosterService(&fakeRosterStore{tx: tx}, nil, zap.NewNop())

	_, err := svc.Apply(context.Background(), "c1", []string{"ghost"}, manager())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
