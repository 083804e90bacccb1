package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

const sessionColumns = "id, course_id, seq, code, date, start_time, end_time, duration_minutes, created_at, updated_at"

// SessionRepository manages persistence for course sessions.
type SessionRepository struct {
	ext sqlx.ExtContext
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{ext: db}
}

func sessionRepoWith(ext sqlx.ExtContext) *SessionRepository {
	return &SessionRepository{ext: ext}
}

// ListByCourse returns the course's sessions in sequence order.
func (r *SessionRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE course_id = $1 ORDER BY seq ASC", sessionColumns)
	var sessions []models.Session
	if err := sqlx.SelectContext(ctx, r.ext, &sessions, query, courseID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// FindByID fetches a session by ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionColumns)
	var session models.Session
	if err := sqlx.GetContext(ctx, r.ext, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create inserts a new session record.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO sessions (id, course_id, seq, code, date, start_time, end_time, duration_minutes, created_at, updated_at)
		VALUES (:id, :course_id, :seq, :code, :date, :start_time, :end_time, :duration_minutes, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.ext, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// UpdateTimes modifies date, times and duration of a session. Seq and code
// are immutable.
func (r *SessionRepository) UpdateTimes(ctx context.Context, id string, date time.Time, startTime, endTime string, durationMinutes int) error {
	const query = `UPDATE sessions SET date = $2, start_time = $3, end_time = $4, duration_minutes = $5, updated_at = $6 WHERE id = $1`
	if _, err := r.ext.ExecContext(ctx, query, id, date, startTime, endTime, durationMinutes, time.Now().UTC()); err != nil {
		return fmt.Errorf("update session times: %w", err)
	}
	return nil
}

// Delete removes a session row. Attendance cascade is handled by the caller
// inside the same transaction.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	if _, err := r.ext.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
