package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
	"github.com/yourusername/lernbank-api/internal/domain/repository"
)

// ============================================================================
// Моки репозиториев для тестов сервисного слоя
// ============================================================================

// MockTemplateRepo реализует repository.TemplateRepository
type MockTemplateRepo struct {
	mock.Mock
}

func (m *MockTemplateRepo) Create(ctx context.Context, template *entity.Template) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func (m *MockTemplateRepo) GetByID(ctx context.Context, id string) (*entity.Template, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Template), args.Error(1)
}

func (m *MockTemplateRepo) Update(ctx context.Context, template *entity.Template) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func (m *MockTemplateRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTemplateRepo) FetchActive(ctx context.Context, filter repository.TemplateFilter, limit int) ([]entity.Template, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Template), args.Error(1)
}

func (m *MockTemplateRepo) ListByStatus(ctx context.Context, status string, gradeLevel int, domain string) ([]entity.Template, error) {
	args := m.Called(ctx, status, gradeLevel, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Template), args.Error(1)
}

func (m *MockTemplateRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTemplateRepo) UpdateQuality(ctx context.Context, id string, newScore float64) error {
	args := m.Called(ctx, id, newScore)
	return args.Error(0)
}

func (m *MockTemplateRepo) IncrementPlay(ctx context.Context, id string, wasCorrect bool) error {
	args := m.Called(ctx, id, wasCorrect)
	return args.Error(0)
}

func (m *MockTemplateRepo) AddRating(ctx context.Context, id string, stars int) error {
	args := m.Called(ctx, id, stars)
	return args.Error(0)
}

func (m *MockTemplateRepo) CountByTaxonomy(ctx context.Context) ([]repository.TaxonomyCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.TaxonomyCount), args.Error(1)
}

func (m *MockTemplateRepo) CountActive(ctx context.Context, gradeLevel int, domain string, quarter string) (int64, error) {
	args := m.Called(ctx, gradeLevel, domain, quarter)
	return args.Get(0).(int64), args.Error(1)
}

// MockFeedbackRepo реализует repository.FeedbackRepository
type MockFeedbackRepo struct {
	mock.Mock
}

func (m *MockFeedbackRepo) Create(ctx context.Context, feedback *entity.TemplateFeedback) error {
	args := m.Called(ctx, feedback)
	return args.Error(0)
}

func (m *MockFeedbackRepo) ListByTemplate(ctx context.Context, templateID string) ([]entity.TemplateFeedback, error) {
	args := m.Called(ctx, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.TemplateFeedback), args.Error(1)
}

func (m *MockFeedbackRepo) AggregateStats(ctx context.Context) ([]repository.FeedbackStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.FeedbackStats), args.Error(1)
}

// MockCacheRepo реализует repository.CacheRepository
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepo) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepo) Increment(key string) (int64, error) {
	args := m.Called(key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepo) PushQueue(queue string, value interface{}) error {
	args := m.Called(queue, value)
	return args.Error(0)
}

func (m *MockCacheRepo) QueueLength(queue string) (int64, error) {
	args := m.Called(queue)
	return args.Get(0).(int64), args.Error(1)
}
