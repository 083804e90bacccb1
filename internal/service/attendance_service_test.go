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

type fakeAttendanceTx struct {
	session  *models.Session
	students map[string]*models.Student
	records  map[string]*models.Attendance
	audits   []models.AuditLog
}

func (f *fakeAttendanceTx) Session(ctx context.Context, id string) (*models.Session, error) {
	if f.session == nil || f.session.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *f.session
	return &cp, nil
}

func (f *fakeAttendanceTx) Student(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := f.students[id]; ok {
		cp := *student
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAttendanceTx) UpsertAttendance(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	if f.records == nil {
		f.records = make(map[string]*models.Attendance)
	}
	key := record.SessionID + "|" + record.StudentID
	if existing, ok := f.records[key]; ok {
		existing.Status = record.Status
		cp := *existing
		return &cp, nil
	}
	record.ID = key
	cp := *record
	f.records[key] = &cp
	return &cp, nil
}

func (f *fakeAttendanceTx) AppendAudit(ctx context.Context, entry *models.AuditLog) error {
	f.audits = append(f.audits, *entry)
	return nil
}

type fakeAttendanceStore struct {
	tx *fakeAttendanceTx
}

func (s *fakeAttendanceStore) InAttendanceTx(ctx context.Context, fn func(tx repository.AttendanceTx) error) error {
	return fn(s.tx)
}

func newAttendanceFixture(date time.Time) *fakeAttendanceTx {
	return &fakeAttendanceTx{
		session: &models.Session{ID: "sess-1", CourseID: "c1", Code: "MATH-7A-01", Date: date},
		students: map[string]*models.Student{
			"s1": {ID: "s1", Code: "STU-1"},
		},
	}
}

func TestAttendanceRecordPastSession(t *testing.T) {
	tx := newAttendanceFixture(time.Now().UTC().AddDate(0, 0, -1))
	svc := NewAttendanceService(&fakeAttendanceStore{tx: tx}, nil, zap.NewNop())

	record, err := svc.Record(context.Background(), "sess-1", "s1", models.AttendancePresent, manager())
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, record.Status)
	require.Len(t, tx.audits, 1)
	assert.Equal(t, models.AuditActionAttendanceRecorded, tx.audits[0].Action)
}

func TestAttendanceRecordOverwrites(t *testing.T) {
	tx := newAttendanceFixture(time.Now().UTC().AddDate(0, 0, -1))
	svc := NewAttendanceService(&fakeAttendanceStore{tx: tx}, nil, zap.NewNop())

	first, err := svc.Record(context.Background(), "sess-1", "s1", models.AttendancePresent, manager())
	require.NoError(t, err)
	second, err := svc.Record(context.Background(), "sess-1", "s1", models.AttendanceAbsent, manager())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.AttendanceAbsent, second.Status)
	assert.Len(t, tx.records, 1)
	assert.Len(t, tx.audits, 2)
}

func TestAttendanceRecordFutureSession(t *testing.T) {
	tx := newAttendanceFixture(time.Now().UTC().AddDate(0, 0, 1))
	svc := NewAttendanceService(&fakeAttendanceStore{tx: tx}, nil, zap.NewNop())

	_, err := svc.Record(context.Background(), "sess-1", "s1", models.AttendancePresent, manager())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.Empty(t, tx.records)
	assert.Empty(t, tx.audits)
}

func TestAttendanceRecordInvalidStatus(t *testing.T) {
	tx := newAttendanceFixture(time.Now().UTC().AddDate(0, 0, -1))
	svc := NewAttendanceService(&fakeAttendanceStore{tx: tx}, nil, zap.NewNop())

	_, err := svc.Record(context.Background(), "sess-1", "s1", "LATE", manager())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceRecordUnknownSessionOrStudent(t *testing.T) {
	tx := newAttendanceFixture(time.Now().UTC().AddDate(0, 0, -1))
	svc := NewAttendanceService(&fakeAttendanceStore{tx: tx}, nil, zap.NewNop())

	_, err := svc.Record(context.Background(), "ghost", "s1", models.AttendancePresent, manager())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Record(context.Background(), "sess-1", "ghost", models.AttendancePresent, manager())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionIsPastStrictBoundary(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	sameInstant := models.Session{Date: now}
	assert.False(t, sameInstant.IsPast(now))

	dayBefore := models.Session{Date: now.AddDate(0, 0, -1)}
	assert.True(t, dayBefore.IsPast(now))
}
