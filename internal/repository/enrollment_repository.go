package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

const enrollmentColumns = "id, course_id, student_id, joined_at, ended_at, is_active, created_at, updated_at"

// EnrollmentRepository handles persistence of enrollment intervals. The
// is_active flag and ended_at column are always written together so the
// invariant is_active == (ended_at IS NULL) cannot drift.
type EnrollmentRepository struct {
	ext sqlx.ExtContext
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{ext: db}
}

func enrollmentRepoWith(ext sqlx.ExtContext) *EnrollmentRepository {
	return &EnrollmentRepository{ext: ext}
}

// ListByCourse returns every enrollment row for the course, active and
// historical, oldest joined first.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE course_id = $1 ORDER BY joined_at ASC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := sqlx.SelectContext(ctx, r.ext, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// ActiveByCourse returns the open intervals for the course.
func (r *EnrollmentRepository) ActiveByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE course_id = $1 AND is_active = TRUE", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := sqlx.SelectContext(ctx, r.ext, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByCourseAndStudent returns the enrollment row for the pair regardless
// of its active state, or sql.ErrNoRows when the pair has no history.
func (r *EnrollmentRepository) FindByCourseAndStudent(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE course_id = $1 AND student_id = $2", enrollmentColumns)
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.ext, &enrollment, query, courseID, studentID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Create opens a brand-new membership interval.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	enrollment.IsActive = true
	enrollment.EndedAt = nil

	const query = `INSERT INTO enrollments (id, course_id, student_id, joined_at, ended_at, is_active, created_at, updated_at)
		VALUES (:id, :course_id, :student_id, :joined_at, :ended_at, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.ext, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Close ends the open interval: is_active drops and ended_at is stamped in
// the same statement.
func (r *EnrollmentRepository) Close(ctx context.Context, id string, endedAt time.Time) error {
	const query = `UPDATE enrollments SET is_active = FALSE, ended_at = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.ext.ExecContext(ctx, query, id, endedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("close enrollment: %w", err)
	}
	return nil
}

// Reactivate reopens the row for a returning student: joined_at restarts and
// ended_at clears in the same statement.
func (r *EnrollmentRepository) Reactivate(ctx context.Context, id string, joinedAt time.Time) error {
	const query = `UPDATE enrollments SET is_active = TRUE, ended_at = NULL, joined_at = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.ext.ExecContext(ctx, query, id, joinedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("reactivate enrollment: %w", err)
	}
	return nil
}

// CountActiveByStudent reports how many courses the student is currently a
// member of.
func (r *EnrollmentRepository) CountActiveByStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND is_active = TRUE`
	var count int
	if err := sqlx.GetContext(ctx, r.ext, &count, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}
