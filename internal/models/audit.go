package models

import "time"

// AuditAction constants represent mutations recorded in the audit trail.
const (
	AuditActionRosterStudentsAdded   = "ROSTER_STUDENTS_ADDED"
	AuditActionRosterStudentsRemoved = "ROSTER_STUDENTS_REMOVED"
	AuditActionSessionsReconciled    = "SESSIONS_RECONCILED"
	AuditActionAttendanceRecorded    = "ATTENDANCE_RECORDED"
)

// Audit entity types.
const (
	AuditEntityCourse     = "course"
	AuditEntitySession    = "session"
	AuditEntityAttendance = "attendance"
)

// AuditLog represents one append-only audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   *string   `db:"entity_id" json:"entity_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
