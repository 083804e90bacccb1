package service

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

type stubStatisticsRepo struct {
	courses     []models.CourseStat
	sessions    []models.SessionStat
	enrollments []models.EnrollmentStat
	calls       int
}

func (s *stubStatisticsRepo) Courses(ctx context.Context) ([]models.CourseStat, error) {
	s.calls++
	return s.courses, nil
}

func (s *stubStatisticsRepo) Sessions(ctx context.Context) ([]models.SessionStat, error) {
	return s.sessions, nil
}

func (s *stubStatisticsRepo) Enrollments(ctx context.Context) ([]models.EnrollmentStat, error) {
	return s.enrollments, nil
}

type memoryCacheRepo struct {
	values map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if _, ok := m.values[key]; !ok {
		return appErrors.ErrCacheMiss
	}
	// The service only checks the hit flag in these tests.
	return nil
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[key] = []byte("cached")
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.values = make(map[string][]byte)
	return nil
}

func TestStatisticsHoursComputesFromRepo(t *testing.T) {
	repo := &stubStatisticsRepo{
		courses: []models.CourseStat{
			{CourseID: "c1", TeacherID: "t1", TeacherCode: "TCH-1", Subjects: pq.StringArray{"Math"}},
		},
		sessions: []models.SessionStat{
			sessionOn("s1", "c1", "2026-09-07", 60),
		},
	}
	svc := NewStatisticsService(repo, nil, nil, zap.NewNop())

	entries, err := svc.Hours(context.Background(), models.StatisticsMonthly, "2026-09", models.ViewByTeacher)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "TCH-1", entries[0].Key)
	assert.Equal(t, 60, entries[0].Minutes)
}

func TestStatisticsHoursCachesResult(t *testing.T) {
	repo := &stubStatisticsRepo{}
	cacheRepo := &memoryCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewStatisticsService(repo, cacheSvc, nil, zap.NewNop())

	_, err := svc.Hours(context.Background(), models.StatisticsCumulative, "", models.ViewByTeacher)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	_, err = svc.Hours(context.Background(), models.StatisticsCumulative, "", models.ViewByTeacher)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	require.NoError(t, cacheSvc.Invalidate(context.Background(), "stats:*"))
	_, err = svc.Hours(context.Background(), models.StatisticsCumulative, "", models.ViewByTeacher)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestStatisticsRejectsBadParams(t *testing.T) {
	svc := NewStatisticsService(&stubStatisticsRepo{}, nil, nil, zap.NewNop())

	_, err := svc.Hours(context.Background(), "weekly", "2026-09", models.ViewByTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Hours(context.Background(), models.StatisticsMonthly, "2026-09", "school")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Hours(context.Background(), models.StatisticsMonthly, "", models.ViewByTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Retention(context.Background(), "September", models.ViewByTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
