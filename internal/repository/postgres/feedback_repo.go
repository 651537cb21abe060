package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
	"github.com/yourusername/lernbank-api/internal/domain/repository"
)

// FeedbackRepo реализует repository.FeedbackRepository
type FeedbackRepo struct {
	db *gorm.DB
}

// NewFeedbackRepo создает новый репозиторий эмодзи-отзывов
func NewFeedbackRepo(db *gorm.DB) *FeedbackRepo {
	return &FeedbackRepo{db: db}
}

// Create сохраняет один отзыв
func (r *FeedbackRepo) Create(ctx context.Context, feedback *entity.TemplateFeedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}

// ListByTemplate возвращает все отзывы по шаблону
func (r *FeedbackRepo) ListByTemplate(ctx context.Context, templateID string) ([]entity.TemplateFeedback, error) {
	var feedback []entity.TemplateFeedback
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("created_at").
		Find(&feedback).Error
	if err != nil {
		return nil, err
	}
	return feedback, nil
}

// AggregateStats возвращает агрегаты отзывов по всем шаблонам.
// Негативные сигналы — thumbs_down и too_hard, позитивный — thumbs_up.
func (r *FeedbackRepo) AggregateStats(ctx context.Context) ([]repository.FeedbackStats, error) {
	var stats []repository.FeedbackStats
	err := r.db.WithContext(ctx).Model(&entity.TemplateFeedback{}).
		Select(`template_id,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE kind IN (?, ?)) AS negative_count,
			COUNT(*) FILTER (WHERE kind = ?) AS positive_count`,
			entity.FeedbackThumbsDown, entity.FeedbackTooHard, entity.FeedbackThumbsUp).
		Group("template_id").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
