package models

import (
	"time"

	"github.com/lib/pq"
)

// Course represents a teachable course owned by a single teacher. Grades is
// the ordered sequence of grade tags the course targets. LastSessionSeq is
// the highest session sequence number ever minted for the course; it only
// grows, so deleted sessions never free their codes for reuse.
type Course struct {
	ID             string         `db:"id" json:"id"`
	Code           string         `db:"code" json:"code"`
	TeacherID      string         `db:"teacher_id" json:"teacher_id"`
	Grades         pq.StringArray `db:"grades" json:"grades"`
	LastSessionSeq int            `db:"last_session_seq" json:"-"`
	Deleted        bool           `db:"deleted" json:"deleted"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures filtering options for listing courses.
type CourseFilter struct {
	TeacherID      string
	IncludeDeleted bool
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
