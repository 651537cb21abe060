package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
	"github.com/yourusername/lernbank-api/internal/domain/repository"
	apperrors "github.com/yourusername/lernbank-api/internal/pkg/errors"
)

// TemplateRepo реализует repository.TemplateRepository
type TemplateRepo struct {
	db *gorm.DB
}

// NewTemplateRepo создает новый репозиторий банка шаблонов
func NewTemplateRepo(db *gorm.DB) *TemplateRepo {
	return &TemplateRepo{db: db}
}

// Create создает новый шаблон
func (r *TemplateRepo) Create(ctx context.Context, template *entity.Template) error {
	return r.db.WithContext(ctx).Create(template).Error
}

// GetByID возвращает шаблон по ID
func (r *TemplateRepo) GetByID(ctx context.Context, id string) (*entity.Template, error) {
	var template entity.Template
	err := r.db.WithContext(ctx).First(&template, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// Update обновляет шаблон целиком
func (r *TemplateRepo) Update(ctx context.Context, template *entity.Template) error {
	return r.db.WithContext(ctx).Save(template).Error
}

// Delete жёстко удаляет шаблон; отзывы уходят каскадом на уровне БД.
// Обычный путь мягкого удаления — UpdateStatus в DELETED
func (r *TemplateRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&entity.Template{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FetchActive возвращает ACTIVE-шаблоны по фильтру, отсортированные
// по качеству по убыванию. Границы по классу и четверти — включающие;
// строки Q1..Q4 сравниваются лексикографически, что совпадает с порядком enum.
func (r *TemplateRepo) FetchActive(ctx context.Context, filter repository.TemplateFilter, limit int) ([]entity.Template, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", entity.TemplateStatusActive).
		Where("grade_level <= ?", filter.GradeLevelMax).
		Where("quarter <= ?", filter.QuarterMax)

	if filter.Domain != "" {
		query = query.Where("domain = ?", filter.Domain)
	}
	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}
	if filter.QuestionType != "" {
		query = query.Where("question_type = ?", filter.QuestionType)
	}

	var templates []entity.Template
	err := query.Order("quality_score DESC").Limit(limit).Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// ListByStatus возвращает шаблоны с данным статусом.
// gradeLevel <= 0 и пустой domain означают «без ограничения».
func (r *TemplateRepo) ListByStatus(ctx context.Context, status string, gradeLevel int, domain string) ([]entity.Template, error) {
	query := r.db.WithContext(ctx).Where("status = ?", status)
	if gradeLevel > 0 {
		query = query.Where("grade_level = ?", gradeLevel)
	}
	if domain != "" {
		query = query.Where("domain = ?", domain)
	}

	var templates []entity.Template
	err := query.Order("id").Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// UpdateStatus меняет статус шаблона
func (r *TemplateRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	result := r.db.WithContext(ctx).Model(&entity.Template{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateQuality устанавливает новую оценку качества
func (r *TemplateRepo) UpdateQuality(ctx context.Context, id string, newScore float64) error {
	result := r.db.WithContext(ctx).Model(&entity.Template{}).
		Where("id = ?", id).
		Update("quality_score", newScore)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// IncrementPlay атомарно инкрементирует счётчики игр через gorm.Expr.
// Один UPDATE на уровне SQL: конкурентные ответы не теряют обновления,
// и correct_count <= play_count сохраняется при любой последовательности вызовов.
func (r *TemplateRepo) IncrementPlay(ctx context.Context, id string, wasCorrect bool) error {
	updates := map[string]interface{}{
		"play_count": gorm.Expr("play_count + 1"),
		"updated_at": time.Now(),
	}
	if wasCorrect {
		updates["correct_count"] = gorm.Expr("correct_count + 1")
	}

	result := r.db.WithContext(ctx).Model(&entity.Template{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// AddRating атомарно накапливает звёздную оценку
func (r *TemplateRepo) AddRating(ctx context.Context, id string, stars int) error {
	result := r.db.WithContext(ctx).Model(&entity.Template{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"rating_sum":   gorm.Expr("rating_sum + ?", stars),
			"rating_count": gorm.Expr("rating_count + 1"),
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// CountByTaxonomy возвращает агрегаты по комбинациям таксономии
// для анализатора покрытия. Учитываются только ACTIVE-шаблоны.
func (r *TemplateRepo) CountByTaxonomy(ctx context.Context) ([]repository.TaxonomyCount, error) {
	var counts []repository.TaxonomyCount
	err := r.db.WithContext(ctx).Model(&entity.Template{}).
		Select("grade_level, quarter, domain, difficulty, question_type, COUNT(*) AS count").
		Where("status = ?", entity.TemplateStatusActive).
		Group("grade_level, quarter, domain, difficulty, question_type").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// CountActive возвращает число ACTIVE-шаблонов для кортежа (класс, домен, четверть)
func (r *TemplateRepo) CountActive(ctx context.Context, gradeLevel int, domain string, quarter string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Template{}).
		Where("status = ? AND grade_level = ? AND domain = ? AND quarter = ?",
			entity.TemplateStatusActive, gradeLevel, domain, quarter).
		Count(&count).Error
	return count, err
}
