package service

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

func mustMonth(t *testing.T, raw string) models.Month {
	t.Helper()
	month, err := models.ParseMonth(raw)
	require.NoError(t, err)
	return month
}

func sessionOn(id, courseID, day string, minutes int) models.SessionStat {
	date, _ := time.ParseInLocation("2006-01-02", day, time.UTC)
	return models.SessionStat{SessionID: id, CourseID: courseID, Date: date, DurationMinutes: minutes}
}

func TestAggregateHoursSubjectSplit(t *testing.T) {
	courses := []models.CourseStat{
		{CourseID: "c1", CourseCode: "SCI-1", TeacherID: "t1", TeacherCode: "TCH-1", Subjects: pq.StringArray{"Math", "Physics"}},
	}
	sessions := []models.SessionStat{
		sessionOn("s1", "c1", "2026-09-07", 120),
	}

	entries := aggregateHours(models.StatisticsMonthly, mustMonth(t, "2026-09"), models.ViewBySubject, courses, sessions)
	require.Len(t, entries, 2)
	assert.Equal(t, "Math", entries[0].Key)
	assert.Equal(t, 60, entries[0].Minutes)
	assert.Equal(t, "Physics", entries[1].Key)
	assert.Equal(t, 60, entries[1].Minutes)
}

func TestAggregateHoursDuplicateSubjectsIgnored(t *testing.T) {
	courses := []models.CourseStat{
		{CourseID: "c1", TeacherID: "t1", TeacherCode: "TCH-1", Subjects: pq.StringArray{"Math", "Math", "Physics"}},
	}
	sessions := []models.SessionStat{
		sessionOn("s1", "c1", "2026-09-07", 90),
	}

	entries := aggregateHours(models.StatisticsMonthly, mustMonth(t, "2026-09"), models.ViewBySubject, courses, sessions)
	require.Len(t, entries, 2)
	assert.Equal(t, 45, entries[0].Minutes)
	assert.Equal(t, 45, entries[1].Minutes)
}

func TestAggregateHoursMonthlyFiltersSessions(t *testing.T) {
	courses := []models.CourseStat{
		{CourseID: "c1", TeacherID: "t1", TeacherCode: "TCH-1", Subjects: pq.StringArray{"Math"}},
	}
	sessions := []models.SessionStat{
		sessionOn("s1", "c1", "2026-09-07", 60),
		sessionOn("s2", "c1", "2026-10-05", 45),
	}

	monthly := aggregateHours(models.StatisticsMonthly, mustMonth(t, "2026-09"), models.ViewByTeacher, courses, sessions)
	require.Len(t, monthly, 1)
	assert.Equal(t, "TCH-1", monthly[0].Key)
	assert.Equal(t, 60, monthly[0].Minutes)

	cumulative := aggregateHours(models.StatisticsCumulative, models.Month{}, models.ViewByTeacher, courses, sessions)
	require.Len(t, cumulative, 1)
	assert.Equal(t, 105, cumulative[0].Minutes)
}

func TestAggregateHoursRoundsOnlyAtOutput(t *testing.T) {
	// Three 100-minute sessions split across three subjects accumulate to
	// exactly 100 per subject; per-session rounding would give 99 or 102.
	courses := []models.CourseStat{
		{CourseID: "c1", TeacherID: "t1", TeacherCode: "TCH-1", Subjects: pq.StringArray{"A", "B", "C"}},
	}
	sessions := []models.SessionStat{
		sessionOn("s1", "c1", "2026-09-01", 100),
		sessionOn("s2", "c1", "2026-09-08", 100),
		sessionOn("s3", "c1", "2026-09-15", 100),
	}

	entries := aggregateHours(models.StatisticsMonthly, mustMonth(t, "2026-09"), models.ViewBySubject, courses, sessions)
	require.Len(t, entries, 3)
	for _, entry := range entries {
		assert.Equal(t, 100, entry.Minutes)
	}
}

func TestAggregateHoursEmptyInput(t *testing.T) {
	entries := aggregateHours(models.StatisticsMonthly, mustMonth(t, "2026-09"), models.ViewByTeacher, nil, nil)
	assert.Empty(t, entries)
}

func TestAggregateEnrollmentsCountsHistoricalRows(t *testing.T) {
	courses := []models.CourseStat{
		{CourseID: "c1", TeacherID: "t1", TeacherCode: "TCH-1", Subjects: pq.StringArray{"Math"}},
		{CourseID: "c2", TeacherID: "t2", TeacherCode: "TCH-2", Subjects: pq.StringArray{"Art"}},
	}
	sessions := []models.SessionStat{
		sessionOn("s1", "c1", "2026-09-07", 60),
		sessionOn("s2", "c2", "2026-09-14", 60),
	}
	enrollments := []models.EnrollmentStat{
		{CourseID: "c1", StudentID: "s1", StudentCode: "STU-1"},
		{CourseID: "c1", StudentID: "s2", StudentCode: "STU-2"},
		{CourseID: "c1", StudentID: "s2", StudentCode: "STU-2"},
		{CourseID: "c2", StudentID: "s3", StudentCode: "STU-3"},
	}

	entries := aggregateEnrollments(models.StatisticsMonthly, mustMonth(t, "2026-09"), models.ViewByTeacher, courses, sessions, enrollments)
	require.Len(t, entries, 2)
	assert.Equal(t, "TCH-1", entries[0].Key)
	assert.Equal(t, 2, entries[0].Students)
	assert.Equal(t, "TCH-2", entries[1].Key)
	assert.Equal(t, 1, entries[1].Students)
}

func TestAggregateEnrollmentsExcludesNonQualifyingCourses(t *testing.T) {
	courses := []models.CourseStat{
		{CourseID: "c1", TeacherID: "t1", TeacherCode: "TCH-1", Subjects: pq.StringArray{"Math"}},
	}
	// No sessions in September, so the course does not qualify monthly.
	sessions := []models.SessionStat{
		sessionOn("s1", "c1", "2026-10-05", 60),
	}
	enrollments := []models.EnrollmentStat{
		{CourseID: "c1", StudentID: "s1", StudentCode: "STU-1"},
	}

	monthly := aggregateEnrollments(models.StatisticsMonthly, mustMonth(t, "2026-09"), models.ViewByTeacher, courses, sessions, enrollments)
	assert.Empty(t, monthly)

	cumulative := aggregateEnrollments(models.StatisticsCumulative, models.Month{}, models.ViewByTeacher, courses, sessions, enrollments)
	require.Len(t, cumulative, 1)
	assert.Equal(t, 1, cumulative[0].Students)
}

func TestAggregateRetention(t *testing.T) {
	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)

	courses := []models.CourseStat{
		{CourseID: "c1", TeacherID: "tx", TeacherCode: "TCH-X", Subjects: pq.StringArray{"Math"}},
	}
	sessions := []models.SessionStat{
		sessionOn("s1", "c1", "2026-01-12", 60),
		sessionOn("s2", "c1", "2026-02-09", 60),
	}
	enrollments := []models.EnrollmentStat{
		{CourseID: "c1", StudentID: "a", StudentCode: "A", FirstEnrolledAt: &jan},
		{CourseID: "c1", StudentID: "b", StudentCode: "B", FirstEnrolledAt: &jan},
		{CourseID: "c1", StudentID: "c", StudentCode: "C", FirstEnrolledAt: &jan},
		{CourseID: "c1", StudentID: "d", StudentCode: "D", FirstEnrolledAt: &feb},
	}

	// cohort(Jan) and cohort(Feb) both come from the same course's rows here;
	// A/B/C were enrolled before February, D joined in February and is not in
	// the denominator's pre-existing set semantics but does appear in both
	// cohorts through the shared course. With the single-course fixture the
	// cohorts are identical, so retention counts only pre-existing students.
	entries := aggregateRetention(mustMonth(t, "2026-02"), models.ViewByTeacher, courses, sessions, enrollments)
	require.Len(t, entries, 1)
	assert.Equal(t, "TCH-X", entries[0].Key)
	assert.Equal(t, 3, entries[0].Retained)
	assert.Equal(t, 4, entries[0].CohortSize)
	assert.InDelta(t, 75.0, entries[0].Rate, 0.01)
}

func TestAggregateRetentionDistinctCohorts(t *testing.T) {
	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	courses := []models.CourseStat{
		{CourseID: "cJan", TeacherID: "tx", TeacherCode: "TCH-X", Subjects: pq.StringArray{"Math"}},
		{CourseID: "cFeb", TeacherID: "tx", TeacherCode: "TCH-X", Subjects: pq.StringArray{"Math"}},
	}
	sessions := []models.SessionStat{
		sessionOn("s1", "cJan", "2026-01-12", 60),
		sessionOn("s2", "cFeb", "2026-02-09", 60),
	}
	febJoin := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	enrollments := []models.EnrollmentStat{
		// cohort(Jan) = {A, B, C}; cohort(Feb) = {B, C, D}.
		{CourseID: "cJan", StudentID: "a", StudentCode: "A", FirstEnrolledAt: &jan},
		{CourseID: "cJan", StudentID: "b", StudentCode: "B", FirstEnrolledAt: &jan},
		{CourseID: "cJan", StudentID: "c", StudentCode: "C", FirstEnrolledAt: &jan},
		{CourseID: "cFeb", StudentID: "b", StudentCode: "B", FirstEnrolledAt: &jan},
		{CourseID: "cFeb", StudentID: "c", StudentCode: "C", FirstEnrolledAt: &jan},
		{CourseID: "cFeb", StudentID: "d", StudentCode: "D", FirstEnrolledAt: &febJoin},
	}

	entries := aggregateRetention(mustMonth(t, "2026-02"), models.ViewByTeacher, courses, sessions, enrollments)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Retained)
	assert.Equal(t, 3, entries[0].CohortSize)
	assert.InDelta(t, 66.67, entries[0].Rate, 0.01)
}

func TestAggregateRetentionExcludesEmptyPriorCohort(t *testing.T) {
	courses := []models.CourseStat{
		{CourseID: "c1", TeacherID: "tx", TeacherCode: "TCH-X", Subjects: pq.StringArray{"Math"}},
	}
	// Only February activity: no January cohort exists for the teacher.
	sessions := []models.SessionStat{
		sessionOn("s1", "c1", "2026-02-09", 60),
	}
	feb := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	enrollments := []models.EnrollmentStat{
		{CourseID: "c1", StudentID: "a", StudentCode: "A", FirstEnrolledAt: &feb},
	}

	entries := aggregateRetention(mustMonth(t, "2026-02"), models.ViewByTeacher, courses, sessions, enrollments)
	assert.Empty(t, entries)
}

func TestAggregateRetentionSubjectViewCountsIndependently(t *testing.T) {
	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	courses := []models.CourseStat{
		{CourseID: "c1", TeacherID: "tx", TeacherCode: "TCH-X", Subjects: pq.StringArray{"Math", "Physics"}},
	}
	sessions := []models.SessionStat{
		sessionOn("s1", "c1", "2026-01-12", 60),
		sessionOn("s2", "c1", "2026-02-09", 60),
	}
	enrollments := []models.EnrollmentStat{
		{CourseID: "c1", StudentID: "a", StudentCode: "A", FirstEnrolledAt: &jan},
	}

	entries := aggregateRetention(mustMonth(t, "2026-02"), models.ViewBySubject, courses, sessions, enrollments)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, 1, entry.Retained)
		assert.Equal(t, 1, entry.CohortSize)
		assert.InDelta(t, 100.0, entry.Rate, 0.01)
	}
}

func TestMonthWindow(t *testing.T) {
	month := mustMonth(t, "2026-02")
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), month.Start())
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), month.End())
	assert.Equal(t, "2026-01", month.Prev().String())

	// The window is [Start, End): the first instant of March is outside.
	assert.True(t, month.Contains(month.Start()))
	assert.False(t, month.Contains(month.End()))

	_, err := models.ParseMonth("2026/02")
	assert.Error(t, err)
}
