package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

type statisticsRepository interface {
	Courses(ctx context.Context) ([]models.CourseStat, error)
	Sessions(ctx context.Context) ([]models.SessionStat, error)
	Enrollments(ctx context.Context) ([]models.EnrollmentStat, error)
}

// StatisticsService computes the ranked hours, enrollment-count and
// retention lists over the latest committed state. Results are memoized in
// Redis under "stats:" keys; the mutating services invalidate that prefix.
type StatisticsService struct {
	repo    statisticsRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewStatisticsService constructs StatisticsService.
func NewStatisticsService(repo statisticsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// Hours returns taught minutes ranked by teacher or subject. Monthly mode
// requires a "YYYY-MM" month; cumulative mode ignores it.
func (s *StatisticsService) Hours(ctx context.Context, mode models.StatisticsMode, monthRaw string, view models.StatisticsView) ([]models.HoursEntry, error) {
	month, err := s.resolveWindow(mode, monthRaw, view)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("stats:hours:%s:%s:%s", view, mode, monthLabel(mode, month))
	var cached []models.HoursEntry
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	courses, sessions, err := s.loadCoursesAndSessions(ctx)
	if err != nil {
		return nil, err
	}

	entries := aggregateHours(mode, month, view, courses, sessions)
	_ = s.cache.Set(ctx, cacheKey, entries, 0)
	return entries, nil
}

// Enrollments returns distinct enrolled-student counts ranked by teacher or
// subject.
func (s *StatisticsService) Enrollments(ctx context.Context, mode models.StatisticsMode, monthRaw string, view models.StatisticsView) ([]models.EnrollmentCountEntry, error) {
	month, err := s.resolveWindow(mode, monthRaw, view)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("stats:enrollments:%s:%s:%s", view, mode, monthLabel(mode, month))
	var cached []models.EnrollmentCountEntry
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	courses, sessions, err := s.loadCoursesAndSessions(ctx)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.loadEnrollments(ctx)
	if err != nil {
		return nil, err
	}

	entries := aggregateEnrollments(mode, month, view, courses, sessions, enrollments)
	_ = s.cache.Set(ctx, cacheKey, entries, 0)
	return entries, nil
}

// Retention returns month-over-month retention rates ranked by teacher or
// subject. Retention is inherently monthly, so the month is mandatory.
func (s *StatisticsService) Retention(ctx context.Context, monthRaw string, view models.StatisticsView) ([]models.RetentionEntry, error) {
	month, err := s.resolveWindow(models.StatisticsMonthly, monthRaw, view)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("stats:retention:%s:%s", view, month)
	var cached []models.RetentionEntry
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	courses, sessions, err := s.loadCoursesAndSessions(ctx)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.loadEnrollments(ctx)
	if err != nil {
		return nil, err
	}

	entries := aggregateRetention(month, view, courses, sessions, enrollments)
	_ = s.cache.Set(ctx, cacheKey, entries, 0)
	return entries, nil
}

func (s *StatisticsService) resolveWindow(mode models.StatisticsMode, monthRaw string, view models.StatisticsView) (models.Month, error) {
	if !mode.Valid() {
		return models.Month{}, appErrors.Clone(appErrors.ErrValidation, "mode must be monthly or cumulative")
	}
	if !view.Valid() {
		return models.Month{}, appErrors.Clone(appErrors.ErrValidation, "view must be teacher or subject")
	}
	if mode == models.StatisticsCumulative {
		return models.Month{}, nil
	}
	if monthRaw == "" {
		return models.Month{}, appErrors.Clone(appErrors.ErrValidation, "month is required in monthly mode")
	}
	month, err := models.ParseMonth(monthRaw)
	if err != nil {
		return models.Month{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "month must be formatted as YYYY-MM")
	}
	return month, nil
}

func (s *StatisticsService) loadCoursesAndSessions(ctx context.Context) ([]models.CourseStat, []models.SessionStat, error) {
	start := time.Now()
	courses, err := s.repo.Courses(ctx)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("statistics_courses", time.Since(start))
	}
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	start = time.Now()
	sessions, err := s.repo.Sessions(ctx)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("statistics_sessions", time.Since(start))
	}
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	return courses, sessions, nil
}

func (s *StatisticsService) loadEnrollments(ctx context.Context) ([]models.EnrollmentStat, error) {
	start := time.Now()
	enrollments, err := s.repo.Enrollments(ctx)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("statistics_enrollments", time.Since(start))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	return enrollments, nil
}

func monthLabel(mode models.StatisticsMode, month models.Month) string {
	if mode == models.StatisticsCumulative {
		return "all"
	}
	return month.String()
}
