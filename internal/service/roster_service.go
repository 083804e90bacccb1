package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

type rosterStore interface {
	InRosterTx(ctx context.Context, fn func(tx repository.RosterTx) error) error
}

// RosterService reconciles a course's desired student set against its active
// enrollment intervals. One call is one serializable transaction: every
// close, add, reactivation, first-enrollment stamp and audit write commits
// together or not at all.
type RosterService struct {
	store  rosterStore
	cache  *CacheService
	logger *zap.Logger
}

// NewRosterService constructs RosterService.
func NewRosterService(store rosterStore, cache *CacheService, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{store: store, cache: cache, logger: logger}
}

// Apply diffs the desired student set against the course's active
// enrollments. Duplicate ids collapse; order is irrelevant. Students present
// in both sets are left completely untouched. Returns how many memberships
// were opened and closed.
func (s *RosterService) Apply(ctx context.Context, courseID string, studentIDs []string, actor models.Actor) (*models.RosterResult, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}

	desired := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		if id != "" {
			desired[id] = struct{}{}
		}
	}

	now := time.Now().UTC()
	result := &models.RosterResult{}

	err := s.store.InRosterTx(ctx, func(tx repository.RosterTx) error {
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
		if !actor.CanManageRosters {
			return appErrors.Clone(appErrors.ErrUnauthorized, "not allowed to manage rosters")
		}

		active, err := tx.ActiveEnrollments(ctx, courseID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active enrollments")
		}

		current := make(map[string]models.Enrollment, len(active))
		for _, e := range active {
			current[e.StudentID] = e
		}

		var toRemove, toAdd []string
		for studentID := range current {
			if _, keep := desired[studentID]; !keep {
				toRemove = append(toRemove, studentID)
			}
		}
		for studentID := range desired {
			if _, have := current[studentID]; !have {
				toAdd = append(toAdd, studentID)
			}
		}
		sort.Strings(toRemove)
		sort.Strings(toAdd)

		for _, studentID := range toRemove {
			if err := tx.CloseEnrollment(ctx, current[studentID].ID, now); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close enrollment")
			}
		}

		for _, studentID := range toAdd {
			student, err := tx.Student(ctx, studentID)
			if err != nil {
				if err == sql.ErrNoRows {
					return appErrors.Clone(appErrors.ErrNotFound, "student not found: "+studentID)
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
			}

			existing, err := tx.EnrollmentByCourseAndStudent(ctx, courseID, studentID)
			switch {
			case err == sql.ErrNoRows:
				enrollment := &models.Enrollment{CourseID: courseID, StudentID: studentID, JoinedAt: now}
				if err := tx.CreateEnrollment(ctx, enrollment); err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
				}
			case err != nil:
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
			default:
				if err := tx.ReactivateEnrollment(ctx, existing.ID, now); err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate enrollment")
				}
			}

			if student.FirstEnrolledAt == nil {
				if err := tx.SetFirstEnrolledAt(ctx, studentID, now); err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stamp first enrollment")
				}
			}
		}

		if len(toRemove) > 0 {
			if err := appendRosterAudit(ctx, tx, actor, models.AuditActionRosterStudentsRemoved, courseID, toRemove, now); err != nil {
				return err
			}
		}
		if len(toAdd) > 0 {
			if err := appendRosterAudit(ctx, tx, actor, models.AuditActionRosterStudentsAdded, courseID, toAdd, now); err != nil {
				return err
			}
		}

		result.Added = len(toAdd)
		result.Removed = len(toRemove)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Added > 0 || result.Removed > 0 {
		if s.cache.Enabled() {
			_ = s.cache.Invalidate(ctx, "stats:*")
		}
		s.logger.Info("roster reconciled",
			zap.String("course_id", courseID),
			zap.Int("added", result.Added),
			zap.Int("removed", result.Removed),
		)
	}

	return result, nil
}

func appendRosterAudit(ctx context.Context, tx repository.RosterTx, actor models.Actor, action, courseID string, studentIDs []string, at time.Time) error {
	details, err := json.Marshal(map[string]interface{}{"student_ids": studentIDs, "count": len(studentIDs)})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode audit details")
	}
	entry := &models.AuditLog{
		ActorID:    actor.IDRef(),
		Action:     action,
		EntityType: models.AuditEntityCourse,
		EntityID:   &courseID,
		Details:    details,
		CreatedAt:  at,
	}
	if err := tx.AppendAudit(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append audit log")
	}
	return nil
}
