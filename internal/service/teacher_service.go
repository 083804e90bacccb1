package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Deactivate(ctx context.Context, id string) error
}

// TeacherInput carries the writable teacher fields.
type TeacherInput struct {
	Code     string   `json:"code" validate:"required,max=32"`
	FullName string   `json:"full_name" validate:"required,max=255"`
	Subjects []string `json:"subjects" validate:"required,min=1,dive,required"`
	HiredAt  string   `json:"hired_at" validate:"required,datetime=2006-01-02"`
	Active   *bool    `json:"active"`
}

// TeacherService manages teacher records. Subject tags feed the statistics
// engine, so mutations drop the memoized results.
type TeacherService struct {
	repo      teacherRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs TeacherService.
func NewTeacherService(repo teacherRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns teachers matching the filter along with the total count.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, total, nil
}

// Get fetches one teacher.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a new teacher. Codes are unique.
func (s *TeacherService) Create(ctx context.Context, input TeacherInput) (*models.Teacher, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	hiredAt, err := time.ParseInLocation("2006-01-02", input.HiredAt, time.UTC)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hired_at date")
	}

	taken, err := s.repo.ExistsByCode(ctx, input.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher code already in use")
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	teacher := &models.Teacher{
		Code:     input.Code,
		FullName: input.FullName,
		Subjects: pq.StringArray(input.Subjects),
		HiredAt:  hiredAt,
		Active:   active,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}

	s.invalidateStats(ctx)
	return teacher, nil
}

// Update replaces the writable fields of a teacher.
func (s *TeacherService) Update(ctx context.Context, id string, input TeacherInput) (*models.Teacher, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	hiredAt, err := time.ParseInLocation("2006-01-02", input.HiredAt, time.UTC)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hired_at date")
	}

	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsByCode(ctx, input.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher code already in use")
	}

	teacher.Code = input.Code
	teacher.FullName = input.FullName
	teacher.Subjects = pq.StringArray(input.Subjects)
	teacher.HiredAt = hiredAt
	if input.Active != nil {
		teacher.Active = *input.Active
	}
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}

	s.invalidateStats(ctx)
	return teacher, nil
}

// Deactivate retires a teacher without deleting history.
func (s *TeacherService) Deactivate(ctx context.Context, id string) error {
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !teacher.Active {
		return appErrors.Clone(appErrors.ErrInvalidState, "teacher already inactive")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teacher")
	}
	return nil
}

func (s *TeacherService) invalidateStats(ctx context.Context) {
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, "stats:*")
	}
}
