package models

import (
	"fmt"
	"time"

	"github.com/lib/pq"
)

// StatisticsMode selects the aggregation window.
type StatisticsMode string

const (
	StatisticsMonthly    StatisticsMode = "monthly"
	StatisticsCumulative StatisticsMode = "cumulative"
)

// Valid reports whether the mode is one of the known values.
func (m StatisticsMode) Valid() bool {
	return m == StatisticsMonthly || m == StatisticsCumulative
}

// StatisticsView selects the bucketing key for ranked lists.
type StatisticsView string

const (
	ViewByTeacher StatisticsView = "teacher"
	ViewBySubject StatisticsView = "subject"
)

// Valid reports whether the view is one of the known values.
func (v StatisticsView) Valid() bool {
	return v == ViewByTeacher || v == ViewBySubject
}

// Month identifies one calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(raw string) (Month, error) {
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", raw, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// String renders the month as "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Start returns the first instant of the month in UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following month in UTC; the month
// window is [Start, End).
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

// Prev returns the preceding calendar month.
func (m Month) Prev() Month {
	start := m.Start().AddDate(0, -1, 0)
	return Month{Year: start.Year(), Month: start.Month()}
}

// Contains reports whether t falls inside the month window.
func (m Month) Contains(t time.Time) bool {
	return !t.Before(m.Start()) && t.Before(m.End())
}

// CourseStat is the statistics read model for a course: its owning teacher
// and that teacher's ordered subject tags.
type CourseStat struct {
	CourseID    string         `db:"course_id" json:"course_id"`
	CourseCode  string         `db:"course_code" json:"course_code"`
	TeacherID   string         `db:"teacher_id" json:"teacher_id"`
	TeacherCode string         `db:"teacher_code" json:"teacher_code"`
	Subjects    pq.StringArray `db:"subjects" json:"subjects"`
}

// SessionStat is the statistics read model for a session.
type SessionStat struct {
	SessionID       string    `db:"session_id" json:"session_id"`
	CourseID        string    `db:"course_id" json:"course_id"`
	Date            time.Time `db:"date" json:"date"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
}

// EnrollmentStat is the statistics read model for one enrollment row. All
// rows count, active or historical: membership once held during the window
// counts even if later removed.
type EnrollmentStat struct {
	CourseID        string     `db:"course_id" json:"course_id"`
	StudentID       string     `db:"student_id" json:"student_id"`
	StudentCode     string     `db:"student_code" json:"student_code"`
	FirstEnrolledAt *time.Time `db:"first_enrolled_at" json:"first_enrolled_at,omitempty"`
}

// HoursEntry is one row of the taught-hours ranked list. Minutes is rounded
// to the nearest whole minute at presentation only.
type HoursEntry struct {
	Key     string `json:"key"`
	Minutes int    `json:"minutes"`
}

// EnrollmentCountEntry is one row of the enrollment-count ranked list.
type EnrollmentCountEntry struct {
	Key      string `json:"key"`
	Students int    `json:"students"`
}

// RetentionEntry is one row of the retention ranked list. Rate is the
// percentage of the prior month's pre-existing cohort still present.
type RetentionEntry struct {
	Key        string  `json:"key"`
	Retained   int     `json:"retained"`
	CohortSize int     `json:"cohort_size"`
	Rate       float64 `json:"rate"`
}
