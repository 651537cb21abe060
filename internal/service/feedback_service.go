package service

import (
	"context"
	"fmt"
	"log"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
	"github.com/yourusername/lernbank-api/internal/domain/repository"
	apperrors "github.com/yourusername/lernbank-api/internal/pkg/errors"
	"github.com/yourusername/lernbank-api/internal/service/templatebank"
)

// Синтетическое соответствие эмодзи-отзывов звёздным оценкам.
// Сырой вид отзыва при этом сохраняется отдельно — количественный скоринг
// и качественный журнал остаются независимыми сигналами.
var emojiToStars = map[string]int{
	entity.FeedbackThumbsUp:   5,
	entity.FeedbackThumbsDown: 1,
	entity.FeedbackTooHard:    2,
	entity.FeedbackTooEasy:    3,
}

// CleanupReport — итог cleanup-прохода по эмодзи-отзывам
type CleanupReport struct {
	DeletedCount int      `json:"deleted_count"`
	Flagged      []string `json:"flagged"` // ID шаблонов для ручного ревью
}

// FeedbackService переводит взаимодействия учеников в мутации банка шаблонов
type FeedbackService struct {
	templateRepo repository.TemplateRepository
	feedbackRepo repository.FeedbackRepository
	config       *templatebank.Config
}

// NewFeedbackService создает новый сервис обратной связи
func NewFeedbackService(
	templateRepo repository.TemplateRepository,
	feedbackRepo repository.FeedbackRepository,
	config *templatebank.Config,
) *FeedbackService {
	return &FeedbackService{
		templateRepo: templateRepo,
		feedbackRepo: feedbackRepo,
		config:       config,
	}
}

// RecordAnswer фиксирует исход одной попытки ответа.
// Инкремент атомарен на уровне хранилища; ядро не дедуплицирует
// повторную отправку одного события — идемпотентность на вызывающей стороне.
func (s *FeedbackService) RecordAnswer(ctx context.Context, templateID string, wasCorrect bool) error {
	if templateID == "" {
		return fmt.Errorf("%w: template_id is empty", apperrors.ErrValidation)
	}
	if err := s.templateRepo.IncrementPlay(ctx, templateID, wasCorrect); err != nil {
		return storeErr(fmt.Errorf("increment play for %s: %w", templateID, err))
	}
	return nil
}

// RecordRating фиксирует звёздную оценку 1..5
func (s *FeedbackService) RecordRating(ctx context.Context, templateID string, stars int) error {
	if templateID == "" {
		return fmt.Errorf("%w: template_id is empty", apperrors.ErrValidation)
	}
	if stars < 1 || stars > 5 {
		return fmt.Errorf("%w: got %d", apperrors.ErrInvalidRating, stars)
	}
	if err := s.templateRepo.AddRating(ctx, templateID, stars); err != nil {
		return storeErr(fmt.Errorf("add rating for %s: %w", templateID, err))
	}
	return nil
}

// RecordEmojiFeedback фиксирует эмодзи-отзыв: синтетическая звёздная оценка
// для количественного контура плюс сырая запись для cleanup-прохода и ревью
func (s *FeedbackService) RecordEmojiFeedback(ctx context.Context, templateID, userID, kind string) error {
	if templateID == "" {
		return fmt.Errorf("%w: template_id is empty", apperrors.ErrValidation)
	}
	stars, ok := emojiToStars[kind]
	if !ok {
		return fmt.Errorf("%w: unknown feedback kind %q", apperrors.ErrValidation, kind)
	}

	if err := s.templateRepo.AddRating(ctx, templateID, stars); err != nil {
		return storeErr(fmt.Errorf("add synthetic rating for %s: %w", templateID, err))
	}

	feedback := &entity.TemplateFeedback{
		TemplateID: templateID,
		UserID:     userID,
		Kind:       kind,
	}
	if err := s.feedbackRepo.Create(ctx, feedback); err != nil {
		return storeErr(fmt.Errorf("record feedback for %s: %w", templateID, err))
	}
	return nil
}

// ListFeedback возвращает журнал сырых эмодзи-отзывов по шаблону
// (для ручного ревью помеченных cleanup-проходом)
func (s *FeedbackService) ListFeedback(ctx context.Context, templateID string) ([]entity.TemplateFeedback, error) {
	if templateID == "" {
		return nil, fmt.Errorf("%w: template_id is empty", apperrors.ErrValidation)
	}
	feedback, err := s.feedbackRepo.ListByTemplate(ctx, templateID)
	if err != nil {
		return nil, storeErr(fmt.Errorf("list feedback for %s: %w", templateID, err))
	}
	return feedback, nil
}

// CleanupNegativeFeedback удаляет шаблоны с тяжёлым негативным фоном
// и помечает пограничные для ручного ревью.
// Удаление: >= FeedbackCleanupMinEntries отзывов, доля негатива
// > FeedbackDeleteNegativeRatio и доля позитива < FeedbackDeletePositiveBelow.
// Флаг без удаления: доля негатива в [FeedbackFlagNegativeRatio, FeedbackDeleteNegativeRatio].
func (s *FeedbackService) CleanupNegativeFeedback(ctx context.Context) (*CleanupReport, error) {
	stats, err := s.feedbackRepo.AggregateStats(ctx)
	if err != nil {
		return nil, storeErr(fmt.Errorf("aggregate feedback stats: %w", err))
	}

	report := &CleanupReport{}
	for _, st := range stats {
		if st.Total < int64(s.config.FeedbackCleanupMinEntries) {
			continue
		}
		neg := st.NegativeRatio()
		pos := st.PositiveRatio()

		switch {
		case neg > s.config.FeedbackDeleteNegativeRatio && pos < s.config.FeedbackDeletePositiveBelow:
			if err := s.templateRepo.UpdateStatus(ctx, st.TemplateID, entity.TemplateStatusDeleted); err != nil {
				return report, storeErr(fmt.Errorf("delete template %s: %w", st.TemplateID, err))
			}
			report.DeletedCount++
			log.Printf("[FeedbackService] Шаблон %s удалён по отзывам: neg=%.2f pos=%.2f из %d",
				st.TemplateID, neg, pos, st.Total)
		case neg >= s.config.FeedbackFlagNegativeRatio:
			report.Flagged = append(report.Flagged, st.TemplateID)
			log.Printf("[FeedbackService] Шаблон %s помечен для ревью: neg=%.2f из %d",
				st.TemplateID, neg, st.Total)
		}
	}

	return report, nil
}
