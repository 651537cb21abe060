package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
	"github.com/yourusername/lernbank-api/internal/domain/repository"
	apperrors "github.com/yourusername/lernbank-api/internal/pkg/errors"
	"github.com/yourusername/lernbank-api/internal/service/templatebank"
)

func TestFeedbackService_RecordAnswer(t *testing.T) {
	// Arrange
	templateRepo := new(MockTemplateRepo)
	feedbackRepo := new(MockFeedbackRepo)
	svc := NewFeedbackService(templateRepo, feedbackRepo, templatebank.DefaultConfig())

	templateRepo.On("IncrementPlay", mock.Anything, "tpl-1", true).Return(nil)

	// Act
	err := svc.RecordAnswer(context.Background(), "tpl-1", true)

	// Assert
	assert.NoError(t, err)
	templateRepo.AssertExpectations(t)
}

func TestFeedbackService_RecordAnswer_EmptyID(t *testing.T) {
	templateRepo := new(MockTemplateRepo)
	feedbackRepo := new(MockFeedbackRepo)
	svc := NewFeedbackService(templateRepo, feedbackRepo, templatebank.DefaultConfig())

	err := svc.RecordAnswer(context.Background(), "", true)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	templateRepo.AssertNotCalled(t, "IncrementPlay")
}

func TestFeedbackService_RecordAnswer_UnknownTemplate(t *testing.T) {
	// Существование шаблона проверяет само хранилище через RowsAffected
	templateRepo := new(MockTemplateRepo)
	feedbackRepo := new(MockFeedbackRepo)
	svc := NewFeedbackService(templateRepo, feedbackRepo, templatebank.DefaultConfig())

	templateRepo.On("IncrementPlay", mock.Anything, "missing", false).Return(apperrors.ErrNotFound)

	err := svc.RecordAnswer(context.Background(), "missing", false)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFeedbackService_RecordRating_Bounds(t *testing.T) {
	templateRepo := new(MockTemplateRepo)
	feedbackRepo := new(MockFeedbackRepo)
	svc := NewFeedbackService(templateRepo, feedbackRepo, templatebank.DefaultConfig())

	// Оценки вне 1..5 отклоняются до обращения к хранилищу
	assert.ErrorIs(t, svc.RecordRating(context.Background(), "tpl-1", 0), apperrors.ErrInvalidRating)
	assert.ErrorIs(t, svc.RecordRating(context.Background(), "tpl-1", 6), apperrors.ErrInvalidRating)
	templateRepo.AssertNotCalled(t, "AddRating")

	templateRepo.On("AddRating", mock.Anything, "tpl-1", 1).Return(nil)
	templateRepo.On("AddRating", mock.Anything, "tpl-1", 5).Return(nil)

	assert.NoError(t, svc.RecordRating(context.Background(), "tpl-1", 1))
	assert.NoError(t, svc.RecordRating(context.Background(), "tpl-1", 5))
	templateRepo.AssertExpectations(t)
}

func TestFeedbackService_RecordEmojiFeedback_StarsMapping(t *testing.T) {
	tests := []struct {
		kind  string
		stars int
	}{
		{entity.FeedbackThumbsUp, 5},
		{entity.FeedbackThumbsDown, 1},
		{entity.FeedbackTooHard, 2},
		{entity.FeedbackTooEasy, 3},
	}

	for _, tc := range tests {
		t.Run(tc.kind, func(t *testing.T) {
			// Arrange
			templateRepo := new(MockTemplateRepo)
			feedbackRepo := new(MockFeedbackRepo)
			svc := NewFeedbackService(templateRepo, feedbackRepo, templatebank.DefaultConfig())

			templateRepo.On("AddRating", mock.Anything, "tpl-1", tc.stars).Return(nil)
			feedbackRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *entity.TemplateFeedback) bool {
				return f.TemplateID == "tpl-1" && f.UserID == "user-1" && f.Kind == tc.kind
			})).Return(nil)

			// Act
			err := svc.RecordEmojiFeedback(context.Background(), "tpl-1", "user-1", tc.kind)

			// Assert: синтетическая оценка и сырая запись фиксируются вместе
			require.NoError(t, err)
			templateRepo.AssertExpectations(t)
			feedbackRepo.AssertExpectations(t)
		})
	}
}

func TestFeedbackService_RecordEmojiFeedback_UnknownKind(t *testing.T) {
	templateRepo := new(MockTemplateRepo)
	feedbackRepo := new(MockFeedbackRepo)
	svc := NewFeedbackService(templateRepo, feedbackRepo, templatebank.DefaultConfig())

	err := svc.RecordEmojiFeedback(context.Background(), "tpl-1", "user-1", "confused")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	templateRepo.AssertNotCalled(t, "AddRating")
	feedbackRepo.AssertNotCalled(t, "Create")
}

func TestFeedbackService_CleanupNegativeFeedback(t *testing.T) {
	// Arrange: три профиля отзывов — на удаление, на флаг и благополучный
	templateRepo := new(MockTemplateRepo)
	feedbackRepo := new(MockFeedbackRepo)
	svc := NewFeedbackService(templateRepo, feedbackRepo, templatebank.DefaultConfig())

	stats := []repository.FeedbackStats{
		{TemplateID: "bad", Total: 10, NegativeCount: 8, PositiveCount: 1},     // neg=0.8, pos=0.1 -> удаление
		{TemplateID: "borderline", Total: 10, NegativeCount: 6, PositiveCount: 4}, // neg=0.6 -> флаг
		{TemplateID: "fine", Total: 10, NegativeCount: 1, PositiveCount: 9},    // neg=0.1 -> без действий
		{TemplateID: "thin", Total: 3, NegativeCount: 3, PositiveCount: 0},     // мало отзывов -> пропуск
	}
	feedbackRepo.On("AggregateStats", mock.Anything).Return(stats, nil)
	templateRepo.On("UpdateStatus", mock.Anything, "bad", entity.TemplateStatusDeleted).Return(nil)

	// Act
	report, err := svc.CleanupNegativeFeedback(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, report.DeletedCount)
	assert.Equal(t, []string{"borderline"}, report.Flagged)
	templateRepo.AssertExpectations(t)
	templateRepo.AssertNumberOfCalls(t, "UpdateStatus", 1)
}

func TestFeedbackService_CleanupNegativeFeedback_StoreError(t *testing.T) {
	templateRepo := new(MockTemplateRepo)
	feedbackRepo := new(MockFeedbackRepo)
	svc := NewFeedbackService(templateRepo, feedbackRepo, templatebank.DefaultConfig())

	feedbackRepo.On("AggregateStats", mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := svc.CleanupNegativeFeedback(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}

func TestFeedbackService_ListFeedback(t *testing.T) {
	// Arrange
	templateRepo := new(MockTemplateRepo)
	feedbackRepo := new(MockFeedbackRepo)
	svc := NewFeedbackService(templateRepo, feedbackRepo, templatebank.DefaultConfig())

	entries := []entity.TemplateFeedback{
		{TemplateID: "tpl-1", UserID: "user-1", Kind: entity.FeedbackTooHard},
		{TemplateID: "tpl-1", UserID: "user-2", Kind: entity.FeedbackThumbsUp},
	}
	feedbackRepo.On("ListByTemplate", mock.Anything, "tpl-1").Return(entries, nil)

	// Act
	feedback, err := svc.ListFeedback(context.Background(), "tpl-1")

	// Assert
	require.NoError(t, err)
	assert.Len(t, feedback, 2)
	assert.Equal(t, entity.FeedbackTooHard, feedback[0].Kind)
}

func TestFeedbackService_ListFeedback_EmptyID(t *testing.T) {
	templateRepo := new(MockTemplateRepo)
	feedbackRepo := new(MockFeedbackRepo)
	svc := NewFeedbackService(templateRepo, feedbackRepo, templatebank.DefaultConfig())

	_, err := svc.ListFeedback(context.Background(), "")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	feedbackRepo.AssertNotCalled(t, "ListByTemplate", mock.Anything, mock.Anything)
}

// countingTemplateStore — хранилище с настоящими, защищёнными мьютексом
// инкрементами: тестовый аналог SQL-выражения SET x = x + 1.
type countingTemplateStore struct {
	mu           sync.Mutex
	playCount    int
	correctCount int
}

func (s *countingTemplateStore) IncrementPlay(_ context.Context, _ string, wasCorrect bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playCount++
	if wasCorrect {
		s.correctCount++
	}
	return nil
}

func (s *countingTemplateStore) Create(context.Context, *entity.Template) error { return nil }
func (s *countingTemplateStore) GetByID(context.Context, string) (*entity.Template, error) {
	return nil, apperrors.ErrNotFound
}
func (s *countingTemplateStore) Update(context.Context, *entity.Template) error { return nil }
func (s *countingTemplateStore) Delete(context.Context, string) error           { return nil }
func (s *countingTemplateStore) FetchActive(context.Context, repository.TemplateFilter, int) ([]entity.Template, error) {
	return nil, nil
}
func (s *countingTemplateStore) ListByStatus(context.Context, string, int, string) ([]entity.Template, error) {
	return nil, nil
}
func (s *countingTemplateStore) UpdateStatus(context.Context, string, string) error    { return nil }
func (s *countingTemplateStore) UpdateQuality(context.Context, string, float64) error  { return nil }
func (s *countingTemplateStore) AddRating(context.Context, string, int) error          { return nil }
func (s *countingTemplateStore) CountByTaxonomy(context.Context) ([]repository.TaxonomyCount, error) {
	return nil, nil
}
func (s *countingTemplateStore) CountActive(context.Context, int, string, string) (int64, error) {
	return 0, nil
}

func TestFeedbackService_RecordAnswer_ConcurrentCounters(t *testing.T) {
	// Arrange: параллельные ответы не должны терять обновления,
	// а correct_count не может обогнать play_count
	store := &countingTemplateStore{}
	svc := NewFeedbackService(store, new(MockFeedbackRepo), templatebank.DefaultConfig())

	const correct, wrong = 60, 40

	// Act
	var wg sync.WaitGroup
	for i := 0; i < correct+wrong; i++ {
		wasCorrect := i < correct
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.RecordAnswer(context.Background(), "tpl-1", wasCorrect))
		}()
	}
	wg.Wait()

	// Assert
	assert.Equal(t, correct+wrong, store.playCount)
	assert.Equal(t, correct, store.correctCount)
	assert.LessOrEqual(t, store.correctCount, store.playCount)
}
