package service

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
	"github.com/yourusername/lernbank-api/internal/domain/repository"
	apperrors "github.com/yourusername/lernbank-api/internal/pkg/errors"
	"github.com/yourusername/lernbank-api/internal/service/templatebank"
)

// SessionRequest описывает запрос на сборку учебной сессии
type SessionRequest struct {
	UserID             string
	GradeLevel         int
	Quarter            string
	Domain             string // пустая строка = все домены
	Count              int
	MinDistinctDomains int
	Difficulty         string // пустая строка = любая сложность
	History            []templatebank.HistoryEntry
}

// SessionService собирает готовые к выдаче наборы шаблонов для сессий
type SessionService struct {
	templateRepo repository.TemplateRepository
	config       *templatebank.Config

	// seedFn инжектируется, чтобы тесты выбора были детерминированы;
	// глобальное состояние math/rand не используется
	seedFn func() int64
}

// NewSessionService создает новый сервис сессий
func NewSessionService(templateRepo repository.TemplateRepository, config *templatebank.Config) *SessionService {
	return &SessionService{
		templateRepo: templateRepo,
		config:       config,
		seedFn:       func() int64 { return time.Now().UnixNano() },
	}
}

// WithSeed фиксирует seed источника случайности (для тестов)
func (s *SessionService) WithSeed(seed int64) *SessionService {
	s.seedFn = func() int64 { return seed }
	return s
}

// SelectSession собирает упорядоченный набор шаблонов для одной сессии.
// Результат может быть короче запрошенного count — это нормальный,
// документированный исход при разреженном банке, не ошибка:
// селектор не перезапрашивает пул после фильтрации дубликатов.
func (s *SessionService) SelectSession(ctx context.Context, req SessionRequest) ([]entity.Template, error) {
	if err := validateSessionRequest(req); err != nil {
		return nil, err
	}

	filter := repository.TemplateFilter{
		GradeLevelMax: req.GradeLevel,
		QuarterMax:    req.Quarter,
		Domain:        req.Domain,
		Difficulty:    req.Difficulty,
	}
	candidates, err := s.templateRepo.FetchActive(ctx, filter, s.config.CandidatePoolCap)
	if err != nil {
		return nil, storeErr(fmt.Errorf("fetch candidate pool: %w", err))
	}

	rng := rand.New(rand.NewSource(s.seedFn()))
	result := templatebank.BuildSession(candidates, templatebank.SessionParams{
		GradeLevel:         req.GradeLevel,
		Quarter:            req.Quarter,
		Domain:             req.Domain,
		Count:              req.Count,
		MinDistinctDomains: req.MinDistinctDomains,
		Difficulty:         req.Difficulty,
		History:            req.History,
		Now:                time.Now(),
	}, s.config, rng)

	if len(result) < req.Count {
		log.Printf("[SessionService] Пул разрежен: запрошено %d, собрано %d (user=%s, grade=%d, quarter=%s, domain=%q)",
			req.Count, len(result), req.UserID, req.GradeLevel, req.Quarter, req.Domain)
	}

	return result, nil
}

// validateSessionRequest проверяет параметры запроса сессии
func validateSessionRequest(req SessionRequest) error {
	if req.GradeLevel < 1 {
		return fmt.Errorf("%w: grade_level must be >= 1", apperrors.ErrValidation)
	}
	if !entity.IsKnownQuarter(req.Quarter) {
		return fmt.Errorf("%w: unknown quarter %q", apperrors.ErrValidation, req.Quarter)
	}
	if req.Count < 1 {
		return fmt.Errorf("%w: count must be >= 1", apperrors.ErrValidation)
	}
	if req.Difficulty != "" && !entity.IsKnownDifficulty(req.Difficulty) {
		return fmt.Errorf("%w: unknown difficulty %q", apperrors.ErrValidation, req.Difficulty)
	}
	return nil
}
