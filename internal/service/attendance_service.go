package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

type attendanceStore interface {
	InAttendanceTx(ctx context.Context, fn func(tx repository.AttendanceTx) error) error
}

type attendanceReader interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error)
}

// AttendanceService records per-(session, student) attendance. Recording is
// idempotent on the natural key: a second call for the same pair overwrites
// the status instead of duplicating the row.
type AttendanceService struct {
	store  attendanceStore
	reader attendanceReader
	logger *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(store attendanceStore, reader attendanceReader, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{store: store, reader: reader, logger: logger}
}

// ListBySession returns the recorded attendance for one session.
func (s *AttendanceService) ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error) {
	if sessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}
	rows, err := s.reader.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return rows, nil
}

// Record upserts the attendance status for the pair. Only past sessions are
// eligible: a session dated at the exact instant of the call is still
// future.
func (s *AttendanceService) Record(ctx context.Context, sessionID, studentID string, status models.AttendanceStatus, actor models.Actor) (*models.Attendance, error) {
	if sessionID == "" || studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session id and student id are required")
	}
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be PRESENT or ABSENT")
	}

	now := time.Now().UTC()
	var stored *models.Attendance

	err := s.store.InAttendanceTx(ctx, func(tx repository.AttendanceTx) error {
		session, err := tx.Session(ctx, sessionID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "session not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
		}
		if _, err := tx.Student(ctx, studentID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		if !session.IsPast(now) {
			return appErrors.Clone(appErrors.ErrInvalidState, "attendance can only be recorded for past sessions")
		}

		record := &models.Attendance{SessionID: sessionID, StudentID: studentID, Status: status}
		stored, err = tx.UpsertAttendance(ctx, record)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert attendance")
		}

		details, err := json.Marshal(map[string]interface{}{
			"session_code": session.Code,
			"student_id":   studentID,
			"status":       status,
		})
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode audit details")
		}
		entry := &models.AuditLog{
			ActorID:    actor.IDRef(),
			Action:     models.AuditActionAttendanceRecorded,
			EntityType: models.AuditEntityAttendance,
			EntityID:   &stored.ID,
			Details:    details,
			CreatedAt:  now,
		}
		if err := tx.AppendAudit(ctx, entry); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append audit log")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}
