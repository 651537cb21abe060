package repository

import (
	"context"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
)

// FeedbackStats — агрегат отзывов по одному шаблону
type FeedbackStats struct {
	TemplateID    string
	Total         int64
	NegativeCount int64
	PositiveCount int64
}

// NegativeRatio возвращает долю негативных отзывов
func (s FeedbackStats) NegativeRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.NegativeCount) / float64(s.Total)
}

// PositiveRatio возвращает долю позитивных отзывов
func (s FeedbackStats) PositiveRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.PositiveCount) / float64(s.Total)
}

// FeedbackRepository определяет методы для работы с журналом эмодзи-отзывов
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *entity.TemplateFeedback) error
	ListByTemplate(ctx context.Context, templateID string) ([]entity.TemplateFeedback, error)

	// AggregateStats возвращает агрегаты по всем шаблонам, имеющим отзывы
	AggregateStats(ctx context.Context) ([]FeedbackStats, error)
}
