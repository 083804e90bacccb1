package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

type enrollmentReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error)
	ActiveByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error)
	CountActiveByStudent(ctx context.Context, studentID string) (int, error)
}

// EnrollmentService is the read side of enrollment intervals. Writes go
// through the roster reconciler only.
type EnrollmentService struct {
	repo   enrollmentReader
	logger *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentReader, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, logger: logger}
}

// ListByCourse returns the course's enrollment rows. With activeOnly the
// result is the current roster; otherwise full history.
func (s *EnrollmentService) ListByCourse(ctx context.Context, courseID string, activeOnly bool) ([]models.Enrollment, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}
	var (
		enrollments []models.Enrollment
		err         error
	)
	if activeOnly {
		enrollments, err = s.repo.ActiveByCourse(ctx, courseID)
	} else {
		enrollments, err = s.repo.ListByCourse(ctx, courseID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// CountActiveByStudent reports how many courses a student currently attends.
func (s *EnrollmentService) CountActiveByStudent(ctx context.Context, studentID string) (int, error) {
	if studentID == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	count, err := s.repo.CountActiveByStudent(ctx, studentID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	return count, nil
}
