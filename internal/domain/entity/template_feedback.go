package entity

import "time"

// Виды эмодзи-обратной связи
const (
	FeedbackThumbsUp   = "thumbs_up"
	FeedbackThumbsDown = "thumbs_down"
	FeedbackTooHard    = "too_hard"
	FeedbackTooEasy    = "too_easy"
)

// TemplateFeedback хранит сырую качественную обратную связь по шаблону.
// Хранится отдельно от синтетической звёздной оценки: количественный скоринг
// использует рейтинги, а этот журнал нужен для cleanup-прохода и ручного ревью.
type TemplateFeedback struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TemplateID string    `gorm:"size:36;not null;index" json:"template_id"`
	UserID     string    `gorm:"size:64;not null" json:"user_id"`
	Kind       string    `gorm:"size:20;not null" json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (TemplateFeedback) TableName() string {
	return "template_feedback"
}

// IsNegative сообщает, является ли отзыв негативным сигналом
func (f *TemplateFeedback) IsNegative() bool {
	return f.Kind == FeedbackThumbsDown || f.Kind == FeedbackTooHard
}

// IsPositive сообщает, является ли отзыв позитивным сигналом
func (f *TemplateFeedback) IsPositive() bool {
	return f.Kind == FeedbackThumbsUp
}

// IsKnownFeedbackKind проверяет принадлежность вида отзыва закрытому enum
func IsKnownFeedbackKind(kind string) bool {
	switch kind {
	case FeedbackThumbsUp, FeedbackThumbsDown, FeedbackTooHard, FeedbackTooEasy:
		return true
	}
	return false
}
