package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

type mockTeacherRepo struct {
	items       map[string]*models.Teacher
	codeIndex   map[string]string
	listResult  []models.Teacher
	listTotal   int
	deactivated []string
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	if owner, ok := m.codeIndex[code]; ok {
		if excludeID == "" || owner != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.items == nil {
		m.items = make(map[string]*models.Teacher)
	}
	if teacher.ID == "" {
		teacher.ID = "generated"
	}
	now := time.Now()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	if t, ok := m.items[id]; ok {
		t.Active = false
	}
	return nil
}

func TestTeacherServiceCreate(t *testing.T) {
	repo := &mockTeacherRepo{}
	svc := NewTeacherService(repo, nil, validator.New(), zap.NewNop())

	teacher, err := svc.Create(context.Background(), TeacherInput{
		Code:     "TCH-1",
		FullName: "Teacher One",
		Subjects: []string{"Math", "Physics"},
		HiredAt:  "2024-08-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "TCH-1", teacher.Code)
	assert.True(t, teacher.Active)
	assert.Equal(t, []string{"Math", "Physics"}, []string(teacher.Subjects))
	assert.Len(t, repo.items, 1)
}

func TestTeacherServiceCreateDuplicateCode(t *testing.T) {
	repo := &mockTeacherRepo{codeIndex: map[string]string{"TCH-1": "other"}}
	svc := NewTeacherService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), TeacherInput{
		Code:     "TCH-1",
		FullName: "Teacher One",
		Subjects: []string{"Math"},
		HiredAt:  "2024-08-01",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceCreateMissingSubjects(t *testing.T) {
	repo := &mockTeacherRepo{}
	svc := NewTeacherService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), TeacherInput{
		Code:     "TCH-1",
		FullName: "Teacher One",
		HiredAt:  "2024-08-01",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceDeactivateTwice(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", Code: "TCH-1", FullName: "Teacher One", Active: true},
	}}
	svc := NewTeacherService(repo, nil, validator.New(), zap.NewNop())

	require.NoError(t, svc.Deactivate(context.Background(), "t1"))
	err := svc.Deactivate(context.Background(), "t1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}
