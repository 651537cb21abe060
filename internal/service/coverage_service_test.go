package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lernbank-api/internal/domain/repository"
	apperrors "github.com/yourusername/lernbank-api/internal/pkg/errors"
	"github.com/yourusername/lernbank-api/internal/service/templatebank"
)

// coverageTestSpace — компактное пространство таксономии для тестов
func coverageTestSpace() templatebank.TaxonomySpace {
	return templatebank.TaxonomySpace{
		Domains: []templatebank.DomainSpec{
			{Name: "zahlen_und_operationen", MinGrade: 1},
			{Name: "raumvorstellung", MinGrade: 1},
		},
		Grades:        []int{1, 2},
		Quarters:      []string{"Q1", "Q2"},
		Difficulties:  []string{"easy"},
		QuestionTypes: []string{"FREETEXT"},
	}
}

func TestCoverageService_AnalyzeCoverage_CacheMiss(t *testing.T) {
	// Arrange
	templateRepo := new(MockTemplateRepo)
	cacheRepo := new(MockCacheRepo)
	svc := NewCoverageService(templateRepo, cacheRepo, coverageTestSpace(), templatebank.DefaultConfig())

	cacheRepo.On("GetJSON", coverageCacheKey, mock.Anything).Return(apperrors.ErrNotFound)
	cacheRepo.On("Increment", coverageRecomputeKey).Return(int64(1), nil)
	counts := []repository.TaxonomyCount{
		{GradeLevel: 1, Quarter: "Q1", Domain: "zahlen_und_operationen",
			Difficulty: "easy", QuestionType: "FREETEXT", Count: 15},
	}
	templateRepo.On("CountByTaxonomy", mock.Anything).Return(counts, nil)
	cacheRepo.On("SetJSON", coverageCacheKey, mock.Anything, coverageCacheTTL).Return(nil)

	// Act
	report, err := svc.AnalyzeCoverage(context.Background())

	// Assert: покрыта одна комбинация из восьми
	require.NoError(t, err)
	assert.Equal(t, 8, report.TotalCombinations)
	assert.Equal(t, 1, report.CoveredCombinations)
	assert.Len(t, report.Gaps, 7)
	cacheRepo.AssertExpectations(t)
}

func TestCoverageService_AnalyzeCoverage_CacheHit(t *testing.T) {
	// При попадании в кеш к хранилищу не обращаемся
	templateRepo := new(MockTemplateRepo)
	cacheRepo := new(MockCacheRepo)
	svc := NewCoverageService(templateRepo, cacheRepo, coverageTestSpace(), templatebank.DefaultConfig())

	cacheRepo.On("GetJSON", coverageCacheKey, mock.Anything).
		Run(func(args mock.Arguments) {
			dest := args.Get(1).(*templatebank.CoverageReport)
			dest.TotalCombinations = 8
			dest.CoveredCombinations = 8
		}).Return(nil)

	report, err := svc.AnalyzeCoverage(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 8, report.CoveredCombinations)
	templateRepo.AssertNotCalled(t, "CountByTaxonomy")
}

func TestCoverageService_AnalyzeCoverage_CacheFailOpen(t *testing.T) {
	// Недоступный Redis не блокирует анализ: отчёт считается из хранилища
	templateRepo := new(MockTemplateRepo)
	cacheRepo := new(MockCacheRepo)
	svc := NewCoverageService(templateRepo, cacheRepo, coverageTestSpace(), templatebank.DefaultConfig())

	cacheRepo.On("GetJSON", coverageCacheKey, mock.Anything).Return(assert.AnError)
	cacheRepo.On("Increment", coverageRecomputeKey).Return(int64(0), assert.AnError)
	templateRepo.On("CountByTaxonomy", mock.Anything).Return([]repository.TaxonomyCount{}, nil)
	cacheRepo.On("SetJSON", coverageCacheKey, mock.Anything, mock.AnythingOfType("time.Duration")).
		Return(assert.AnError)

	report, err := svc.AnalyzeCoverage(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 8, report.TotalCombinations)
	assert.Zero(t, report.CoveredCombinations)
}

func TestCoverageService_GetPriorityQueue(t *testing.T) {
	// Arrange: пробелы обоих классов, лимит меньше общего числа
	templateRepo := new(MockTemplateRepo)
	cacheRepo := new(MockCacheRepo)
	svc := NewCoverageService(templateRepo, cacheRepo, coverageTestSpace(), templatebank.DefaultConfig())

	cacheRepo.On("GetJSON", coverageCacheKey, mock.Anything).Return(apperrors.ErrNotFound)
	cacheRepo.On("Increment", coverageRecomputeKey).Return(int64(1), nil)
	templateRepo.On("CountByTaxonomy", mock.Anything).Return([]repository.TaxonomyCount{}, nil)
	cacheRepo.On("SetJSON", coverageCacheKey, mock.Anything, mock.AnythingOfType("time.Duration")).
		Return(nil)

	// Act
	queue, err := svc.GetPriorityQueue(context.Background(), 3)

	// Assert
	require.NoError(t, err)
	assert.Len(t, queue, 3)
	for _, gap := range queue {
		assert.Equal(t, templatebank.PriorityHigh, gap.Priority)
	}
}

func TestCoverageService_InvalidateCache(t *testing.T) {
	templateRepo := new(MockTemplateRepo)
	cacheRepo := new(MockCacheRepo)
	svc := NewCoverageService(templateRepo, cacheRepo, coverageTestSpace(), templatebank.DefaultConfig())

	cacheRepo.On("Delete", coverageCacheKey).Return(nil)

	svc.InvalidateCache()

	cacheRepo.AssertExpectations(t)

	// Fail-open: ошибка сброса не паникует и не всплывает
	cacheRepo2 := new(MockCacheRepo)
	cacheRepo2.On("Delete", coverageCacheKey).Return(assert.AnError)
	svc2 := NewCoverageService(templateRepo, cacheRepo2, coverageTestSpace(), templatebank.DefaultConfig())
	svc2.InvalidateCache()
}

// Приоритет и 5-минутный TTL — константы контура покрытия; фиксируем их,
// чтобы случайное изменение не прошло незамеченным
func TestCoverageCacheTTL(t *testing.T) {
	assert.Equal(t, 5*time.Minute, coverageCacheTTL)
}
