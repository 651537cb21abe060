package dto

import (
	"encoding/json"
	"time"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
)

// TemplateResponse представляет шаблон в формате для ответа клиенту.
// Решение намеренно не включается: клиент сессии не должен видеть ответ.
type TemplateResponse struct {
	ID           string    `json:"id"`
	GradeLevel   int       `json:"grade_level"`
	Quarter      string    `json:"quarter"`
	Domain       string    `json:"domain"`
	Subcategory  string    `json:"subcategory,omitempty"`
	Difficulty   string    `json:"difficulty"`
	QuestionType string    `json:"question_type"`
	PromptText   string    `json:"prompt_text"`
	Distractors  []string  `json:"distractors,omitempty"`
	Explanation  string    `json:"explanation,omitempty"`
	Status       string    `json:"status"`
	QualityScore float64   `json:"quality_score"`
	PlayCount    int       `json:"play_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CuratorTemplateResponse — полная форма шаблона для кураторских операций,
// включая решение
type CuratorTemplateResponse struct {
	TemplateResponse
	Solution     json.RawMessage `json:"solution"`
	CorrectCount int             `json:"correct_count"`
	RatingCount  int             `json:"rating_count"`
}

// NewTemplateResponse создает DTO для шаблона без решения
func NewTemplateResponse(t *entity.Template) *TemplateResponse {
	return &TemplateResponse{
		ID:           t.ID,
		GradeLevel:   t.GradeLevel,
		Quarter:      t.Quarter,
		Domain:       t.Domain,
		Subcategory:  t.Subcategory,
		Difficulty:   t.Difficulty,
		QuestionType: t.QuestionType,
		PromptText:   t.PromptText,
		Distractors:  t.Distractors,
		Explanation:  t.Explanation,
		Status:       t.Status,
		QualityScore: t.QualityScore,
		PlayCount:    t.PlayCount,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// NewCuratorTemplateResponse создает полное DTO шаблона для куратора
func NewCuratorTemplateResponse(t *entity.Template) *CuratorTemplateResponse {
	return &CuratorTemplateResponse{
		TemplateResponse: *NewTemplateResponse(t),
		Solution:         json.RawMessage(t.Solution),
		CorrectCount:     t.CorrectCount,
		RatingCount:      t.RatingCount,
	}
}

// NewListTemplateResponse создает список DTO шаблонов
func NewListTemplateResponse(templates []entity.Template) []*TemplateResponse {
	responses := make([]*TemplateResponse, 0, len(templates))
	for i := range templates {
		responses = append(responses, NewTemplateResponse(&templates[i]))
	}
	return responses
}

// SessionResponse представляет собранную сессию
type SessionResponse struct {
	Templates []*TemplateResponse `json:"templates"`
	Requested int                 `json:"requested"`
	Returned  int                 `json:"returned"`
}

// NewSessionResponse создает DTO сессии.
// Returned < Requested — нормальный исход при разреженном банке.
func NewSessionResponse(templates []entity.Template, requested int) *SessionResponse {
	return &SessionResponse{
		Templates: NewListTemplateResponse(templates),
		Requested: requested,
		Returned:  len(templates),
	}
}
