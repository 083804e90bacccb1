package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

const attendanceColumns = "id, session_id, student_id, status, created_at, updated_at"

// AttendanceRepository persists attendance records keyed by the
// (session_id, student_id) natural key.
type AttendanceRepository struct {
	ext sqlx.ExtContext
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{ext: db}
}

func attendanceRepoWith(ext sqlx.ExtContext) *AttendanceRepository {
	return &AttendanceRepository{ext: ext}
}

// ListBySession returns attendance rows for one session.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE session_id = $1 ORDER BY created_at ASC", attendanceColumns)
	var rows []models.Attendance
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}

// Upsert inserts or overwrites the record for the (session, student) pair.
// A second call for the same pair updates the status, never duplicates.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	query := fmt.Sprintf(`INSERT INTO attendance (id, session_id, student_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id, student_id)
DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
RETURNING %s`, attendanceColumns)
	var stored models.Attendance
	if err := sqlx.GetContext(ctx, r.ext, &stored, query, record.ID, record.SessionID, record.StudentID, record.Status, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// DeleteBySession removes every attendance row referencing the session and
// returns how many were removed.
func (r *AttendanceRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	const query = `DELETE FROM attendance WHERE session_id = $1`
	res, err := r.ext.ExecContext(ctx, query, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete attendance by session: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete attendance rows affected: %w", err)
	}
	return deleted, nil
}
