package repository

import (
	"context"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
)

// TemplateFilter описывает фильтр выборки активных шаблонов.
// GradeLevelMax и QuarterMax — включающие верхние границы: сессия для 4 класса
// получает материал младших классов только если вызывающая сторона явно
// передала границу выше точного значения.
type TemplateFilter struct {
	GradeLevelMax int
	QuarterMax    string
	Domain        string // пустая строка = любой домен
	Difficulty    string // пустая строка = любая сложность
	QuestionType  string // пустая строка = любой тип
}

// TaxonomyCount — агрегат количества шаблонов по одной комбинации таксономии
type TaxonomyCount struct {
	GradeLevel   int    `json:"grade_level"`
	Quarter      string `json:"quarter"`
	Domain       string `json:"domain"`
	Difficulty   string `json:"difficulty"`
	QuestionType string `json:"question_type"`
	Count        int64  `json:"count"`
}

// TemplateRepository определяет методы для работы с банком шаблонов
type TemplateRepository interface {
	Create(ctx context.Context, template *entity.Template) error
	GetByID(ctx context.Context, id string) (*entity.Template, error)
	Update(ctx context.Context, template *entity.Template) error
	Delete(ctx context.Context, id string) error

	// FetchActive возвращает ACTIVE-шаблоны по фильтру,
	// отсортированные по quality_score по убыванию
	FetchActive(ctx context.Context, filter TemplateFilter, limit int) ([]entity.Template, error)

	// ListByStatus возвращает шаблоны с данным статусом (для sweep и cleanup)
	ListByStatus(ctx context.Context, status string, gradeLevel int, domain string) ([]entity.Template, error)

	// Точечные мутации. IncrementPlay и AddRating обязаны быть атомарными
	// инкрементами на уровне SQL (SET x = x + 1), а не read-modify-write:
	// конкурентные ответы не должны терять обновления.
	UpdateStatus(ctx context.Context, id string, status string) error
	UpdateQuality(ctx context.Context, id string, newScore float64) error
	IncrementPlay(ctx context.Context, id string, wasCorrect bool) error
	AddRating(ctx context.Context, id string, stars int) error

	// CountByTaxonomy возвращает агрегаты для анализатора покрытия
	CountByTaxonomy(ctx context.Context) ([]TaxonomyCount, error)

	// CountActive возвращает число ACTIVE-шаблонов для кортежа (класс, домен, четверть)
	CountActive(ctx context.Context, gradeLevel int, domain string, quarter string) (int64, error)
}
