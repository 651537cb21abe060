package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/lernbank-api/internal/domain/repository"
	apperrors "github.com/yourusername/lernbank-api/internal/pkg/errors"
	"github.com/yourusername/lernbank-api/internal/service/templatebank"
)

// coverageCacheKey — ключ кеша отчёта покрытия в Redis
const coverageCacheKey = "coverage:report"

// coverageCacheTTL ограничивает устаревание отчёта: полный проход по
// пространству таксономии не нужен на каждый запрос
const coverageCacheTTL = 5 * time.Minute

// coverageRecomputeKey — счётчик полных пересчётов отчёта:
// рост быстрее TTL указывает на слишком частую инвалидацию кеша
const coverageRecomputeKey = "coverage:recomputes"

// CoverageService вычисляет пробелы покрытия таксономии для приоритизации генерации
type CoverageService struct {
	templateRepo repository.TemplateRepository
	cacheRepo    repository.CacheRepository
	space        templatebank.TaxonomySpace
	config       *templatebank.Config
}

// NewCoverageService создает новый сервис анализа покрытия
func NewCoverageService(
	templateRepo repository.TemplateRepository,
	cacheRepo repository.CacheRepository,
	space templatebank.TaxonomySpace,
	config *templatebank.Config,
) *CoverageService {
	return &CoverageService{
		templateRepo: templateRepo,
		cacheRepo:    cacheRepo,
		space:        space,
		config:       config,
	}
}

// AnalyzeCoverage возвращает отчёт покрытия, используя короткоживущий кеш.
// Ошибки кеша не фатальны: отчёт пересчитывается из хранилища (fail-open).
func (s *CoverageService) AnalyzeCoverage(ctx context.Context) (*templatebank.CoverageReport, error) {
	var cached templatebank.CoverageReport
	err := s.cacheRepo.GetJSON(coverageCacheKey, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		log.Printf("[CoverageService] Кеш недоступен, пересчитываем: %v", err)
	}

	if _, err := s.cacheRepo.Increment(coverageRecomputeKey); err != nil {
		log.Printf("[CoverageService] Не удалось увеличить счётчик пересчётов: %v", err)
	}

	counts, err := s.templateRepo.CountByTaxonomy(ctx)
	if err != nil {
		return nil, storeErr(fmt.Errorf("count by taxonomy: %w", err))
	}

	report := templatebank.AnalyzeCoverage(counts, s.space, s.config.TargetPerCombination)

	if err := s.cacheRepo.SetJSON(coverageCacheKey, &report, coverageCacheTTL); err != nil {
		log.Printf("[CoverageService] Не удалось закешировать отчёт: %v", err)
	}

	return &report, nil
}

// GetPriorityQueue возвращает очередь генерации: пробелы, отсортированные
// по серьёзности приоритета, затем по заполненности
func (s *CoverageService) GetPriorityQueue(ctx context.Context, limit int) ([]templatebank.CoverageGap, error) {
	report, err := s.AnalyzeCoverage(ctx)
	if err != nil {
		return nil, err
	}
	return templatebank.PriorityQueue(report.Gaps, limit), nil
}

// InvalidateCache сбрасывает кеш отчёта (после массовых вставок)
func (s *CoverageService) InvalidateCache() {
	if err := s.cacheRepo.Delete(coverageCacheKey); err != nil {
		log.Printf("[CoverageService] Не удалось сбросить кеш: %v", err)
	}
}
