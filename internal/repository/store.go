package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/pkg/database"
)

// RosterTx is the transactional view the roster reconciler works through.
// Every read and write of one reconciliation call happens on the same
// serializable transaction, so two concurrent calls against the same course
// cannot both observe a stale active set.
type RosterTx interface {
	Course(ctx context.Context, id string) (*models.Course, error)
	Student(ctx context.Context, id string) (*models.Student, error)
	ActiveEnrollments(ctx context.Context, courseID string) ([]models.Enrollment, error)
	EnrollmentByCourseAndStudent(ctx context.Context, courseID, studentID string) (*models.Enrollment, error)
	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	CloseEnrollment(ctx context.Context, id string, endedAt time.Time) error
	ReactivateEnrollment(ctx context.Context, id string, joinedAt time.Time) error
	SetFirstEnrolledAt(ctx context.Context, studentID string, at time.Time) error
	AppendAudit(ctx context.Context, entry *models.AuditLog) error
}

// SessionTx is the transactional view the session scheduler works through.
type SessionTx interface {
	Course(ctx context.Context, id string) (*models.Course, error)
	SessionsByCourse(ctx context.Context, courseID string) ([]models.Session, error)
	CreateSession(ctx context.Context, session *models.Session) error
	UpdateSessionTimes(ctx context.Context, id string, date time.Time, startTime, endTime string, durationMinutes int) error
	DeleteSession(ctx context.Context, id string) error
	DeleteAttendanceBySession(ctx context.Context, sessionID string) (int64, error)
	SetLastSessionSeq(ctx context.Context, courseID string, seq int) error
	AppendAudit(ctx context.Context, entry *models.AuditLog) error
}

// AttendanceTx is the transactional view the attendance recorder works
// through.
type AttendanceTx interface {
	Session(ctx context.Context, id string) (*models.Session, error)
	Student(ctx context.Context, id string) (*models.Student, error)
	UpsertAttendance(ctx context.Context, record *models.Attendance) (*models.Attendance, error)
	AppendAudit(ctx context.Context, entry *models.AuditLog) error
}

// Store opens serializable transactions over the ledger tables. One
// transaction per call, no cross-call state.
type Store struct {
	db *sqlx.DB
}

// NewStore constructs a Store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// InRosterTx runs fn against a serializable roster transaction.
func (s *Store) InRosterTx(ctx context.Context, fn func(tx RosterTx) error) error {
	return database.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(newTxView(tx))
	})
}

// InSessionTx runs fn against a serializable scheduler transaction.
func (s *Store) InSessionTx(ctx context.Context, fn func(tx SessionTx) error) error {
	return database.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(newTxView(tx))
	})
}

// InAttendanceTx runs fn against a serializable attendance transaction.
func (s *Store) InAttendanceTx(ctx context.Context, fn func(tx AttendanceTx) error) error {
	return database.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(newTxView(tx))
	})
}

// txView adapts the per-table repositories onto one open transaction.
type txView struct {
	courses     *CourseRepository
	students    *StudentRepository
	sessions    *SessionRepository
	enrollments *EnrollmentRepository
	attendance  *AttendanceRepository
	audits      *AuditRepository
}

func newTxView(tx *sqlx.Tx) *txView {
	return &txView{
		courses:     courseRepoWith(tx),
		students:    studentRepoWith(tx),
		sessions:    sessionRepoWith(tx),
		enrollments: enrollmentRepoWith(tx),
		attendance:  attendanceRepoWith(tx),
		audits:      auditRepoWith(tx),
	}
}

func (v *txView) Course(ctx context.Context, id string) (*models.Course, error) {
	return v.courses.FindByID(ctx, id)
}

func (v *txView) Student(ctx context.Context, id string) (*models.Student, error) {
	return v.students.FindByID(ctx, id)
}

func (v *txView) Session(ctx context.Context, id string) (*models.Session, error) {
	return v.sessions.FindByID(ctx, id)
}

func (v *txView) ActiveEnrollments(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	return v.enrollments.ActiveByCourse(ctx, courseID)
}

func (v *txView) EnrollmentByCourseAndStudent(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	return v.enrollments.FindByCourseAndStudent(ctx, courseID, studentID)
}

func (v *txView) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	return v.enrollments.Create(ctx, enrollment)
}

func (v *txView) CloseEnrollment(ctx context.Context, id string, endedAt time.Time) error {
	return v.enrollments.Close(ctx, id, endedAt)
}

func (v *txView) ReactivateEnrollment(ctx context.Context, id string, joinedAt time.Time) error {
	return v.enrollments.Reactivate(ctx, id, joinedAt)
}

func (v *txView) SetFirstEnrolledAt(ctx context.Context, studentID string, at time.Time) error {
	return v.students.SetFirstEnrolledAt(ctx, studentID, at)
}

func (v *txView) SessionsByCourse(ctx context.Context, courseID string) ([]models.Session, error) {
	return v.sessions.ListByCourse(ctx, courseID)
}

func (v *txView) CreateSession(ctx context.Context, session *models.Session) error {
	return v.sessions.Create(ctx, session)
}

func (v *txView) UpdateSessionTimes(ctx context.Context, id string, date time.Time, startTime, endTime string, durationMinutes int) error {
	return v.sessions.UpdateTimes(ctx, id, date, startTime, endTime, durationMinutes)
}

func (v *txView) DeleteSession(ctx context.Context, id string) error {
	return v.sessions.Delete(ctx, id)
}

func (v *txView) DeleteAttendanceBySession(ctx context.Context, sessionID string) (int64, error) {
	return v.attendance.DeleteBySession(ctx, sessionID)
}

func (v *txView) SetLastSessionSeq(ctx context.Context, courseID string, seq int) error {
	return v.courses.SetLastSessionSeq(ctx, courseID, seq)
}

func (v *txView) UpsertAttendance(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	return v.attendance.Upsert(ctx, record)
}

func (v *txView) AppendAudit(ctx context.Context, entry *models.AuditLog) error {
	return v.audits.Append(ctx, entry)
}
