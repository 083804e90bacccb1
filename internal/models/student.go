package models

import "time"

// Student represents a learner record. FirstEnrolledAt is set exactly once,
// by the roster reconciler, on the student's first-ever course membership and
// never changes afterwards.
type Student struct {
	ID              string     `db:"id" json:"id"`
	Code            string     `db:"code" json:"code"`
	FullName        string     `db:"full_name" json:"full_name"`
	Phone           *string    `db:"phone" json:"phone,omitempty"`
	Grade           string     `db:"grade" json:"grade"`
	FirstEnrolledAt *time.Time `db:"first_enrolled_at" json:"first_enrolled_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures filtering options for listing students.
type StudentFilter struct {
	Search    string
	Grade     string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
