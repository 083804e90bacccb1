package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

type sessionStore interface {
	InSessionTx(ctx context.Context, fn func(tx repository.SessionTx) error) error
}

type sessionReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Session, error)
}

// SessionEdit is one desired session in a reconcile call. An empty ID
// appends a new session with a freshly minted code; a non-empty ID updates
// date and times of the existing session. Sessions missing from the list are
// deleted along with their attendance rows.
type SessionEdit struct {
	ID        string `json:"id"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// SessionService reconciles a course's session list. Codes derive from the
// course's ever-growing sequence counter, so a deleted session never frees
// its number for reuse.
type SessionService struct {
	store     sessionStore
	reader    sessionReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs SessionService.
func NewSessionService(store sessionStore, reader sessionReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{store: store, reader: reader, cache: cache, validator: validate, logger: logger}
}

// List returns the course's sessions in sequence order.
func (s *SessionService) List(ctx context.Context, courseID string) ([]models.Session, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}
	sessions, err := s.reader.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// Reconcile applies the desired session list to the course and returns the
// resulting sessions in sequence order. The whole call is one serializable
// transaction.
func (s *SessionService) Reconcile(ctx context.Context, courseID string, edits []SessionEdit, actor models.Actor) ([]models.Session, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}

	type plannedEdit struct {
		edit     SessionEdit
		date     time.Time
		duration int
	}
	planned := make([]plannedEdit, 0, len(edits))
	for i, edit := range edits {
		if err := s.validator.Struct(edit); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid session entry %d", i))
		}
		date, duration, err := planSessionTimes(edit)
		if err != nil {
			return nil, err
		}
		planned = append(planned, plannedEdit{edit: edit, date: date, duration: duration})
	}

	now := time.Now().UTC()
	var result []models.Session

	err := s.store.InSessionTx(ctx, func(tx repository.SessionTx) error {
		course, err := tx.Course(ctx, courseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		if course.Deleted {
			return appErrors.Clone(appErrors.ErrConflict, "course is deleted")
		}

		existing, err := tx.SessionsByCourse(ctx, courseID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
		}
		existingByID := make(map[string]models.Session, len(existing))
		for _, session := range existing {
			existingByID[session.ID] = session
		}

		desiredIDs := make(map[string]struct{}, len(planned))
		for _, p := range planned {
			if p.edit.ID != "" {
				if _, ok := existingByID[p.edit.ID]; !ok {
					return appErrors.Clone(appErrors.ErrNotFound, "session not found: "+p.edit.ID)
				}
				desiredIDs[p.edit.ID] = struct{}{}
			}
		}

		var created, updated, deleted int

		// Deletions first: sessions absent from the desired list go away,
		// and their attendance rows must never be orphaned.
		for _, session := range existing {
			if _, keep := desiredIDs[session.ID]; keep {
				continue
			}
			if _, err := tx.DeleteAttendanceBySession(ctx, session.ID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cascade attendance")
			}
			if err := tx.DeleteSession(ctx, session.ID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
			}
			deleted++
		}

		seq := course.LastSessionSeq
		for _, p := range planned {
			if p.edit.ID != "" {
				if err := tx.UpdateSessionTimes(ctx, p.edit.ID, p.date, p.edit.StartTime, p.edit.EndTime, p.duration); err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
				}
				updated++
				continue
			}
			seq++
			session := &models.Session{
				CourseID:        courseID,
				Seq:             seq,
				Code:            fmt.Sprintf("%s-%02d", course.Code, seq),
				Date:            p.date,
				StartTime:       p.edit.StartTime,
				EndTime:         p.edit.EndTime,
				DurationMinutes: p.duration,
			}
			if err := tx.CreateSession(ctx, session); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
			}
			created++
		}
		if seq > course.LastSessionSeq {
			if err := tx.SetLastSessionSeq(ctx, courseID, seq); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance session sequence")
			}
		}

		details, err := json.Marshal(map[string]int{"created": created, "updated": updated, "deleted": deleted})
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode audit details")
		}
		entry := &models.AuditLog{
			ActorID:    actor.IDRef(),
			Action:     models.AuditActionSessionsReconciled,
			EntityType: models.AuditEntityCourse,
			EntityID:   &courseID,
			Details:    details,
			CreatedAt:  now,
		}
		if err := tx.AppendAudit(ctx, entry); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append audit log")
		}

		result, err = tx.SessionsByCourse(ctx, courseID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload sessions")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, "stats:*")
	}

	return result, nil
}

// planSessionTimes validates the time range and derives the stored date and
// duration. Start must be lexically before end; HH:MM sorts the same way it
// compares numerically.
func planSessionTimes(edit SessionEdit) (time.Time, int, error) {
	if edit.StartTime >= edit.EndTime {
		return time.Time{}, 0, appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}
	startMin, err := minutesOfDay(edit.StartTime)
	if err != nil {
		return time.Time{}, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	endMin, err := minutesOfDay(edit.EndTime)
	if err != nil {
		return time.Time{}, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	duration := endMin - startMin
	if duration <= 0 {
		return time.Time{}, 0, appErrors.Clone(appErrors.ErrValidation, "session duration must be positive")
	}
	// Dates persist at UTC midnight; the attendance past-check compares this
	// instant against the wall clock with strict <.
	date, err := time.ParseInLocation("2006-01-02", edit.Date, time.UTC)
	if err != nil {
		return time.Time{}, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	return date, duration, nil
}

// minutesOfDay converts "HH:MM" to minutes since midnight.
func minutesOfDay(raw string) (int, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", raw, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
