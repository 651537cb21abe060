package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
	"github.com/yourusername/lernbank-api/internal/domain/repository"
	apperrors "github.com/yourusername/lernbank-api/internal/pkg/errors"
	"github.com/yourusername/lernbank-api/internal/service/templatebank"
)

// GenerationQueueKey — очередь в Redis, которую потребляет внешний
// генератор контента. Ротатор никогда не вызывает генератор напрямую —
// ядро не привязано ни к какой конкретной LLM-интеграции.
const GenerationQueueKey = "generation:requests"

// lastSweepKey хранит момент последнего успешного sweep-прохода
const lastSweepKey = "rotation:last_sweep"

// GenerationRequest — заявка на дозаполнение пула
type GenerationRequest struct {
	GradeLevel  int       `json:"grade_level"`
	Domain      string    `json:"domain"`
	Quarter     string    `json:"quarter"`
	Count       int       `json:"count"`
	Priority    string    `json:"priority"`
	RequestedAt time.Time `json:"requested_at"`
}

// OptimalPick — выбранный ротатором шаблон с объяснением выбора
type OptimalPick struct {
	Template       *entity.Template `json:"template"`
	RotationReason string           `json:"rotation_reason"`
	QualityScore   float64          `json:"quality_score"`
	DiversityScore float64          `json:"diversity_score"`
}

// OptimalOptions — параметры запроса оптимального шаблона
type OptimalOptions struct {
	GradeLevel          int
	Domain              string
	ExcludeIDs          []string
	PreferredDifficulty string // пустая строка = без предпочтения
}

// RotationService замыкает контур обратной связи между наблюдаемым
// использованием и жизненным циклом шаблонов
type RotationService struct {
	templateRepo repository.TemplateRepository
	cacheRepo    repository.CacheRepository
	config       *templatebank.Config
}

// NewRotationService создает новый сервис ротации
func NewRotationService(
	templateRepo repository.TemplateRepository,
	cacheRepo repository.CacheRepository,
	config *templatebank.Config,
) *RotationService {
	return &RotationService{
		templateRepo: templateRepo,
		cacheRepo:    cacheRepo,
		config:       config,
	}
}

// SweepAndArchive пересчитывает качество сыгранных шаблонов кортежа
// (класс, домен) и архивирует стабильно слабые.
// Шаблоны с выборкой ниже минимальной никогда не архивируются по показателям.
// Конкурентный SelectSession может читать слегка устаревшие оценки качества —
// это допустимо; точными обязаны быть только счётчики игр.
func (s *RotationService) SweepAndArchive(ctx context.Context, gradeLevel int, domain string) (int, error) {
	templates, err := s.templateRepo.ListByStatus(ctx, entity.TemplateStatusActive, gradeLevel, domain)
	if err != nil {
		return 0, storeErr(fmt.Errorf("list active templates: %w", err))
	}

	archived := 0
	for i := range templates {
		t := &templates[i]
		if t.PlayCount == 0 {
			continue
		}

		newScore := s.config.BlendQuality(t)
		if newScore != t.QualityScore {
			if err := s.templateRepo.UpdateQuality(ctx, t.ID, newScore); err != nil {
				return archived, storeErr(fmt.Errorf("update quality for %s: %w", t.ID, err))
			}
			t.QualityScore = newScore
		}

		if s.config.ShouldArchive(t) {
			if err := s.templateRepo.UpdateStatus(ctx, t.ID, entity.TemplateStatusArchived); err != nil {
				return archived, storeErr(fmt.Errorf("archive %s: %w", t.ID, err))
			}
			archived++
			log.Printf("[RotationService] Шаблон %s в архив: plays=%d correct=%d quality=%.2f",
				t.ID, t.PlayCount, t.CorrectCount, t.QualityScore)
		}
	}

	// Отметка о проходе информационная, её потеря не портит результат
	if err := s.cacheRepo.Set(lastSweepKey, time.Now().Format(time.RFC3339), 0); err != nil {
		log.Printf("[RotationService] Не удалось записать отметку sweep: %v", err)
	}

	return archived, nil
}

// RotationStatus — оперативная сводка контура ротации
type RotationStatus struct {
	LastSweepAt string `json:"last_sweep_at,omitempty"`
	QueueDepth  int64  `json:"queue_depth"`
}

// Status возвращает глубину очереди генерации и время последнего sweep.
// Отсутствие отметки sweep — нормальное состояние свежего развёртывания.
func (s *RotationService) Status() (*RotationStatus, error) {
	depth, err := s.cacheRepo.QueueLength(GenerationQueueKey)
	if err != nil {
		return nil, storeErr(fmt.Errorf("generation queue length: %w", err))
	}

	status := &RotationStatus{QueueDepth: depth}
	lastSweep, err := s.cacheRepo.Get(lastSweepKey)
	switch {
	case err == nil:
		status.LastSweepAt = lastSweep
	case !errors.Is(err, apperrors.ErrNotFound):
		log.Printf("[RotationService] Не удалось прочитать отметку sweep: %v", err)
	}

	return status, nil
}

// EnsureMinimumPool проверяет размер ACTIVE-пула для кортежа и при нехватке
// ставит заявку на генерацию в очередь. Возвращает true, если заявка поставлена.
func (s *RotationService) EnsureMinimumPool(ctx context.Context, gradeLevel int, domain, quarter string, minimum int) (bool, error) {
	if minimum < 1 {
		return false, fmt.Errorf("%w: minimum must be >= 1", apperrors.ErrValidation)
	}
	if !entity.IsKnownQuarter(quarter) {
		return false, fmt.Errorf("%w: unknown quarter %q", apperrors.ErrValidation, quarter)
	}

	count, err := s.templateRepo.CountActive(ctx, gradeLevel, domain, quarter)
	if err != nil {
		return false, storeErr(fmt.Errorf("count active pool: %w", err))
	}
	if count >= int64(minimum) {
		return false, nil
	}

	request := GenerationRequest{
		GradeLevel:  gradeLevel,
		Domain:      domain,
		Quarter:     quarter,
		Count:       minimum - int(count),
		Priority:    string(templatebank.PriorityForGrade(gradeLevel)),
		RequestedAt: time.Now(),
	}
	if err := s.cacheRepo.PushQueue(GenerationQueueKey, request); err != nil {
		return false, storeErr(fmt.Errorf("enqueue generation request: %w", err))
	}

	log.Printf("[RotationService] Пул ниже минимума (%d < %d) для grade=%d domain=%s quarter=%s: заявка на %d шаблон(ов)",
		count, minimum, gradeLevel, domain, quarter, request.Count)
	return true, nil
}

// GetOptimalTemplate выбирает лучший ACTIVE-шаблон вне excludeIDs.
// Предпочтительная сложность берётся, если доступна, иначе — лучшее качество
// без учёта сложности; какая ветка сработала, сообщается в RotationReason.
func (s *RotationService) GetOptimalTemplate(ctx context.Context, opts OptimalOptions) (*OptimalPick, error) {
	filter := repository.TemplateFilter{
		GradeLevelMax: opts.GradeLevel,
		QuarterMax:    entity.QuarterQ4,
		Domain:        opts.Domain,
	}
	candidates, err := s.templateRepo.FetchActive(ctx, filter, s.config.CandidatePoolCap)
	if err != nil {
		return nil, storeErr(fmt.Errorf("fetch candidates: %w", err))
	}

	excluded := make(map[string]bool, len(opts.ExcludeIDs))
	for _, id := range opts.ExcludeIDs {
		excluded[id] = true
	}

	var remaining []entity.Template
	for _, t := range candidates {
		if !excluded[t.ID] {
			remaining = append(remaining, t)
		}
	}
	if len(remaining) == 0 {
		return nil, apperrors.ErrNotFound
	}

	// Кандидаты уже отсортированы по качеству по убыванию
	pick := &remaining[0]
	reason := templatebank.RotationReasonBestQuality
	if opts.PreferredDifficulty != "" {
		for i := range remaining {
			if remaining[i].Difficulty == opts.PreferredDifficulty {
				pick = &remaining[i]
				reason = templatebank.RotationReasonPreferredDifficulty
				break
			}
		}
	}

	// Доля пула, оставшаяся доступной после исключений:
	// грубая мера того, насколько ротация ещё может разнообразить выдачу
	diversity := float64(len(remaining)) / float64(len(candidates))

	log.Printf("[RotationService] Оптимальный шаблон %s: reason=%s quality=%.2f diversity=%.2f",
		pick.ID, reason, pick.QualityScore, diversity)

	return &OptimalPick{
		Template:       pick,
		RotationReason: reason,
		QualityScore:   pick.QualityScore,
		DiversityScore: diversity,
	}, nil
}
