package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

// StatisticsRepository loads the read models the statistics engine
// aggregates over. It only ever reads committed state. Soft-deleted courses
// stay visible here: history must survive course deletion.
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository constructs the repository.
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// Courses returns every course with its owning teacher and subject tags.
func (r *StatisticsRepository) Courses(ctx context.Context) ([]models.CourseStat, error) {
	const query = `SELECT c.id AS course_id, c.code AS course_code, c.teacher_id, t.code AS teacher_code, t.subjects
		FROM courses c
		JOIN teachers t ON t.id = c.teacher_id`
	var courses []models.CourseStat
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("load course stats: %w", err)
	}
	return courses, nil
}

// Sessions returns every session's date and duration.
func (r *StatisticsRepository) Sessions(ctx context.Context) ([]models.SessionStat, error) {
	const query = `SELECT id AS session_id, course_id, date, duration_minutes FROM sessions`
	var sessions []models.SessionStat
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("load session stats: %w", err)
	}
	return sessions, nil
}

// Enrollments returns every enrollment row, active or historical, with the
// student's code and first-ever enrollment instant.
func (r *StatisticsRepository) Enrollments(ctx context.Context) ([]models.EnrollmentStat, error) {
	const query = `SELECT e.course_id, e.student_id, s.code AS student_code, s.first_enrolled_at
		FROM enrollments e
		JOIN students s ON s.id = e.student_id`
	var enrollments []models.EnrollmentStat
	if err := r.db.SelectContext(ctx, &enrollments, query); err != nil {
		return nil, fmt.Errorf("load enrollment stats: %w", err)
	}
	return enrollments, nil
}
