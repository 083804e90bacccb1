package models

import (
	"time"

	"github.com/lib/pq"
)

// Teacher represents an instructor record. Subjects is the ordered sequence
// of subject tags the teacher holds; duplicates are permitted and ignored by
// the statistics engine.
type Teacher struct {
	ID        string         `db:"id" json:"id"`
	Code      string         `db:"code" json:"code"`
	FullName  string         `db:"full_name" json:"full_name"`
	Subjects  pq.StringArray `db:"subjects" json:"subjects"`
	HiredAt   time.Time      `db:"hired_at" json:"hired_at"`
	Active    bool           `db:"active" json:"active"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
