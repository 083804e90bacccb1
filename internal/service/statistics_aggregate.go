package service

import (
	"math"
	"sort"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

// The aggregators below are pure functions over committed read models. They
// hold no state and are safe to recompute any number of times.

// qualifyingCourses returns the course ids with at least one session dated
// inside the month. In cumulative mode every course qualifies.
func qualifyingCourses(mode models.StatisticsMode, month models.Month, courses []models.CourseStat, sessions []models.SessionStat) map[string]struct{} {
	qualifying := make(map[string]struct{}, len(courses))
	if mode == models.StatisticsCumulative {
		for _, course := range courses {
			qualifying[course.CourseID] = struct{}{}
		}
		return qualifying
	}
	for _, session := range sessions {
		if month.Contains(session.Date) {
			qualifying[session.CourseID] = struct{}{}
		}
	}
	return qualifying
}

// distinctSubjects dedupes a teacher's subject tags preserving first-seen
// order. Duplicate tags are permitted in storage but carry no meaning.
func distinctSubjects(subjects []string) []string {
	seen := make(map[string]struct{}, len(subjects))
	out := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		if subject == "" {
			continue
		}
		if _, ok := seen[subject]; ok {
			continue
		}
		seen[subject] = struct{}{}
		out = append(out, subject)
	}
	return out
}

// bucketKeys returns the ranked-list keys a course contributes to: the
// teacher's code in teacher view, each distinct subject tag in subject view.
func bucketKeys(view models.StatisticsView, course models.CourseStat) []string {
	if view == models.ViewByTeacher {
		return []string{course.TeacherCode}
	}
	return distinctSubjects(course.Subjects)
}

// aggregateHours buckets taught minutes by teacher or subject. Subject view
// divides each session's duration evenly across the teacher's distinct
// subjects regardless of which one the session actually taught. Accumulation
// stays fractional; rounding happens only on output.
func aggregateHours(mode models.StatisticsMode, month models.Month, view models.StatisticsView, courses []models.CourseStat, sessions []models.SessionStat) []models.HoursEntry {
	qualifying := qualifyingCourses(mode, month, courses, sessions)
	courseByID := make(map[string]models.CourseStat, len(courses))
	for _, course := range courses {
		courseByID[course.CourseID] = course
	}

	minutes := make(map[string]float64)
	for _, session := range sessions {
		if _, ok := qualifying[session.CourseID]; !ok {
			continue
		}
		if mode == models.StatisticsMonthly && !month.Contains(session.Date) {
			continue
		}
		course, ok := courseByID[session.CourseID]
		if !ok {
			continue
		}
		keys := bucketKeys(view, course)
		if len(keys) == 0 {
			continue
		}
		share := float64(session.DurationMinutes) / float64(len(keys))
		for _, key := range keys {
			minutes[key] += share
		}
	}

	entries := make([]models.HoursEntry, 0, len(minutes))
	for key, total := range minutes {
		entries = append(entries, models.HoursEntry{Key: key, Minutes: int(math.Round(total))})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Minutes != entries[j].Minutes {
			return entries[i].Minutes > entries[j].Minutes
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// aggregateEnrollments counts distinct student codes per key over every
// enrollment row of the qualifying courses. Historical rows count the same
// as active ones: membership once held during the window is membership.
func aggregateEnrollments(mode models.StatisticsMode, month models.Month, view models.StatisticsView, courses []models.CourseStat, sessions []models.SessionStat, enrollments []models.EnrollmentStat) []models.EnrollmentCountEntry {
	qualifying := qualifyingCourses(mode, month, courses, sessions)
	courseByID := make(map[string]models.CourseStat, len(courses))
	for _, course := range courses {
		courseByID[course.CourseID] = course
	}

	students := make(map[string]map[string]struct{})
	for _, enrollment := range enrollments {
		if _, ok := qualifying[enrollment.CourseID]; !ok {
			continue
		}
		course, ok := courseByID[enrollment.CourseID]
		if !ok {
			continue
		}
		for _, key := range bucketKeys(view, course) {
			set, ok := students[key]
			if !ok {
				set = make(map[string]struct{})
				students[key] = set
			}
			set[enrollment.StudentCode] = struct{}{}
		}
	}

	entries := make([]models.EnrollmentCountEntry, 0, len(students))
	for key, set := range students {
		entries = append(entries, models.EnrollmentCountEntry{Key: key, Students: len(set)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Students != entries[j].Students {
			return entries[i].Students > entries[j].Students
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// cohorts builds the per-key student-code cohorts for one month: every
// student with any enrollment row in a course qualifying for that month.
func cohorts(month models.Month, view models.StatisticsView, courses []models.CourseStat, sessions []models.SessionStat, enrollments []models.EnrollmentStat) map[string]map[string]struct{} {
	qualifying := qualifyingCourses(models.StatisticsMonthly, month, courses, sessions)
	courseByID := make(map[string]models.CourseStat, len(courses))
	for _, course := range courses {
		courseByID[course.CourseID] = course
	}

	byKey := make(map[string]map[string]struct{})
	for _, enrollment := range enrollments {
		if _, ok := qualifying[enrollment.CourseID]; !ok {
			continue
		}
		course, ok := courseByID[enrollment.CourseID]
		if !ok {
			continue
		}
		for _, key := range bucketKeys(view, course) {
			set, ok := byKey[key]
			if !ok {
				set = make(map[string]struct{})
				byKey[key] = set
			}
			set[enrollment.StudentCode] = struct{}{}
		}
	}
	return byKey
}

// aggregateRetention compares month M against M-1 per key. The numerator is
// restricted to students whose first enrollment predates the end of M-1, so
// brand-new prior-month students cannot inflate the rate. Keys with an empty
// prior cohort are omitted, not reported as zero.
func aggregateRetention(month models.Month, view models.StatisticsView, courses []models.CourseStat, sessions []models.SessionStat, enrollments []models.EnrollmentStat) []models.RetentionEntry {
	prevMonth := month.Prev()
	prev := cohorts(prevMonth, view, courses, sessions, enrollments)
	current := cohorts(month, view, courses, sessions, enrollments)

	firstEnrolled := make(map[string]*models.EnrollmentStat, len(enrollments))
	for i := range enrollments {
		if _, ok := firstEnrolled[enrollments[i].StudentCode]; !ok {
			firstEnrolled[enrollments[i].StudentCode] = &enrollments[i]
		}
	}
	cutoff := prevMonth.End()
	preExisting := func(studentCode string) bool {
		stat, ok := firstEnrolled[studentCode]
		if !ok || stat.FirstEnrolledAt == nil {
			return false
		}
		return !stat.FirstEnrolledAt.After(cutoff)
	}

	entries := make([]models.RetentionEntry, 0, len(prev))
	for key, cohort := range prev {
		if len(cohort) == 0 {
			continue
		}
		retained := 0
		for studentCode := range cohort {
			if _, stayed := current[key][studentCode]; !stayed {
				continue
			}
			if preExisting(studentCode) {
				retained++
			}
		}
		entries = append(entries, models.RetentionEntry{
			Key:        key,
			Retained:   retained,
			CohortSize: len(cohort),
			Rate:       float64(retained) / float64(len(cohort)) * 100,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rate != entries[j].Rate {
			return entries[i].Rate > entries[j].Rate
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}
