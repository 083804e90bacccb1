package models

import "time"

// Session represents a single scheduled meeting of a course. Code is derived
// as {courseCode}-{NN} from the per-course sequence number and is immutable.
// Date is stored at UTC midnight; start and end times are HH:MM wall-clock
// strings and DurationMinutes is always end minus start.
type Session struct {
	ID              string    `db:"id" json:"id"`
	CourseID        string    `db:"course_id" json:"course_id"`
	Seq             int       `db:"seq" json:"-"`
	Code            string    `db:"code" json:"code"`
	Date            time.Time `db:"date" json:"date"`
	StartTime       string    `db:"start_time" json:"start_time"`
	EndTime         string    `db:"end_time" json:"end_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// IsPast reports whether the session is eligible for attendance recording at
// the given instant. The comparison is strictly before: a session dated at
// the exact instant of the call is still future.
func (s Session) IsPast(now time.Time) bool {
	return s.Date.Before(now)
}
