package models

import "time"

// Enrollment represents one contiguous membership interval of a student in a
// course: [JoinedAt, EndedAt). A nil EndedAt means the interval is open and
// the student is currently a member. IsActive mirrors EndedAt == nil; both
// fields are mutated together, only by the roster reconciler. Rows are never
// deleted by roster changes, only closed.
type Enrollment struct {
	ID        string     `db:"id" json:"id"`
	CourseID  string     `db:"course_id" json:"course_id"`
	StudentID string     `db:"student_id" json:"student_id"`
	JoinedAt  time.Time  `db:"joined_at" json:"joined_at"`
	EndedAt   *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// RosterResult summarises the effect of one roster reconciliation call.
type RosterResult struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}
