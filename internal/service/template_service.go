package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
	"github.com/yourusername/lernbank-api/internal/domain/repository"
	apperrors "github.com/yourusername/lernbank-api/internal/pkg/errors"
	"github.com/yourusername/lernbank-api/internal/service/templatebank"
)

// TemplateDraft — кандидат от генератора контента (или импорта куратора),
// ещё без ID и таймстемпов
type TemplateDraft struct {
	GradeLevel   int             `json:"grade_level"`
	Quarter      string          `json:"quarter"`
	Domain       string          `json:"domain"`
	Subcategory  string          `json:"subcategory,omitempty"`
	Difficulty   string          `json:"difficulty"`
	QuestionType string          `json:"question_type"`
	PromptText   string          `json:"prompt_text"`
	Solution     json.RawMessage `json:"solution"`
	Distractors  []string        `json:"distractors,omitempty"`
	Explanation  string          `json:"explanation,omitempty"`
	Status       string          `json:"status,omitempty"`        // По умолчанию ACTIVE
	QualityScore float64         `json:"quality_score,omitempty"` // Авторская оценка, по умолчанию из конфигурации
}

// DraftError — причина пропуска одного кандидата из пачки
type DraftError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// InsertReport — итог вставки пачки кандидатов.
// Пачка не прерывается из-за одного сломанного кандидата:
// каждый кандидат вставляется или пропускается индивидуально.
type InsertReport struct {
	Inserted []entity.Template `json:"inserted"`
	Skipped  []DraftError      `json:"skipped"`

	// ExcludedCount — вставленные, но исключённые валидатором из пула
	// (статус INACTIVE, доступны куратору для ревью)
	ExcludedCount int `json:"excluded_count"`
}

// TemplateService управляет поступлением кандидатов в банк и структурной чисткой
type TemplateService struct {
	templateRepo repository.TemplateRepository
	config       *templatebank.Config
	validator    *templatebank.FirstGradeValidator
}

// NewTemplateService создает новый сервис банка шаблонов
func NewTemplateService(templateRepo repository.TemplateRepository, config *templatebank.Config) *TemplateService {
	return &TemplateService{
		templateRepo: templateRepo,
		config:       config,
		validator:    templatebank.NewFirstGradeValidator(),
	}
}

// InsertCandidates вставляет пачку кандидатов.
// Каждый кандидат проверяется структурно; кандидаты для 1 класса дополнительно
// проходят контентный валидатор: исключённые сохраняются со статусом INACTIVE,
// чтобы куратор видел, что и почему отсеялось, остальные получают
// оштрафованное качество.
func (s *TemplateService) InsertCandidates(ctx context.Context, drafts []TemplateDraft) (*InsertReport, error) {
	report := &InsertReport{}

	for i, draft := range drafts {
		if reason := validateDraft(draft); reason != "" {
			log.Printf("[TemplateService] Кандидат %d пропущен: %s", i, reason)
			report.Skipped = append(report.Skipped, DraftError{Index: i, Reason: reason})
			continue
		}

		template := draftToTemplate(draft, s.config)

		// Контентный гейт для самых младших
		if template.GradeLevel == 1 {
			result := s.validator.Validate(template)
			template.QualityScore = result.QualityScore
			if result.ShouldExclude {
				template.Status = entity.TemplateStatusInactive
				report.ExcludedCount++
				log.Printf("[TemplateService] Кандидат %d исключён валидатором: %d проблем(ы)", i, len(result.Issues))
			}
		}

		if err := s.templateRepo.Create(ctx, template); err != nil {
			return report, storeErr(fmt.Errorf("create template: %w", err))
		}
		report.Inserted = append(report.Inserted, *template)
	}

	return report, nil
}

// GetTemplate возвращает шаблон по ID
func (s *TemplateService) GetTemplate(ctx context.Context, id string) (*entity.Template, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: template id is empty", apperrors.ErrValidation)
	}
	template, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(fmt.Errorf("get template %s: %w", id, err))
	}
	return template, nil
}

// UpdateTemplate заменяет редактируемые поля шаблона содержимым кандидата,
// сохраняя ID, счётчики игр и дату создания. Правка DELETED-шаблона —
// конфликт состояния: удаление необратимо, куратор заводит нового кандидата.
func (s *TemplateService) UpdateTemplate(ctx context.Context, id string, draft TemplateDraft) (*entity.Template, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: template id is empty", apperrors.ErrValidation)
	}
	if reason := validateDraft(draft); reason != "" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, reason)
	}

	template, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(fmt.Errorf("get template %s: %w", id, err))
	}
	if template.Status == entity.TemplateStatusDeleted {
		return nil, fmt.Errorf("%w: template %s is deleted", apperrors.ErrConflict, id)
	}

	template.GradeLevel = draft.GradeLevel
	template.Quarter = draft.Quarter
	template.Domain = draft.Domain
	template.Subcategory = draft.Subcategory
	template.Difficulty = draft.Difficulty
	template.QuestionType = draft.QuestionType
	template.PromptText = draft.PromptText
	template.Solution = entity.JSONValue(draft.Solution)
	template.Distractors = entity.StringArray(draft.Distractors)
	template.Explanation = draft.Explanation
	if draft.Status != "" {
		template.Status = draft.Status
	}
	if draft.QualityScore != 0 {
		template.QualityScore = draft.QualityScore
	}
	template.UpdatedAt = time.Now()

	// Отредактированный контент для 1 класса проходит гейт заново
	if template.GradeLevel == 1 {
		result := s.validator.Validate(template)
		template.QualityScore = result.QualityScore
		if result.ShouldExclude {
			template.Status = entity.TemplateStatusInactive
			log.Printf("[TemplateService] Правка %s исключена валидатором: %d проблем(ы)", id, len(result.Issues))
		}
	}

	if err := s.templateRepo.Update(ctx, template); err != nil {
		return nil, storeErr(fmt.Errorf("update template %s: %w", id, err))
	}
	return template, nil
}

// DeleteTemplate физически удаляет шаблон вместе с его отзывами.
// В отличие от cleanup-пометок это необратимая кураторская операция.
func (s *TemplateService) DeleteTemplate(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: template id is empty", apperrors.ErrValidation)
	}
	if err := s.templateRepo.Delete(ctx, id); err != nil {
		return storeErr(fmt.Errorf("delete template %s: %w", id, err))
	}
	log.Printf("[TemplateService] Шаблон %s удалён куратором", id)
	return nil
}

// ListTemplates возвращает шаблоны заданного статуса с необязательными
// ограничениями по классу и домену (для кураторских выгрузок)
func (s *TemplateService) ListTemplates(ctx context.Context, status string, gradeLevel int, domain string) ([]entity.Template, error) {
	if status == "" {
		status = entity.TemplateStatusActive
	}
	templates, err := s.templateRepo.ListByStatus(ctx, status, gradeLevel, domain)
	if err != nil {
		return nil, storeErr(fmt.Errorf("list templates: %w", err))
	}
	return templates, nil
}

// CleanupInvalid помечает структурно сломанные шаблоны как DELETED:
// пустой текст, MULTIPLE_CHOICE без достаточных дистракторов,
// SORT/MATCH со скалярным решением. Возвращает число удалённых.
func (s *TemplateService) CleanupInvalid(ctx context.Context) (int, error) {
	templates, err := s.templateRepo.ListByStatus(ctx, entity.TemplateStatusActive, 0, "")
	if err != nil {
		return 0, storeErr(fmt.Errorf("list active templates: %w", err))
	}

	deleted := 0
	for i := range templates {
		t := &templates[i]
		if t.PromptText != "" && t.HasEnoughDistractors() && t.HasStructuredSolution() {
			continue
		}
		if err := s.templateRepo.UpdateStatus(ctx, t.ID, entity.TemplateStatusDeleted); err != nil {
			return deleted, storeErr(fmt.Errorf("delete template %s: %w", t.ID, err))
		}
		deleted++
	}

	if deleted > 0 {
		log.Printf("[TemplateService] Чистка: помечено DELETED %d структурно сломанных шаблонов", deleted)
	}
	return deleted, nil
}

// validateDraft возвращает причину отбраковки или пустую строку
func validateDraft(d TemplateDraft) string {
	if d.PromptText == "" {
		return "prompt_text is empty"
	}
	if d.GradeLevel < 1 {
		return "grade_level must be >= 1"
	}
	if !entity.IsKnownQuarter(d.Quarter) {
		return fmt.Sprintf("unknown quarter %q", d.Quarter)
	}
	if d.Domain == "" {
		return "domain is empty"
	}
	if !entity.IsKnownDifficulty(d.Difficulty) {
		return fmt.Sprintf("unknown difficulty %q", d.Difficulty)
	}
	if d.QuestionType == entity.QuestionTypeDragDrop {
		return "question_type DRAG_DROP is deprecated"
	}
	if !entity.IsKnownQuestionType(d.QuestionType) {
		return fmt.Sprintf("unknown question_type %q", d.QuestionType)
	}
	if len(d.Solution) == 0 {
		return "solution is empty"
	}
	if d.QuestionType == entity.QuestionTypeMultipleChoice && len(d.Distractors) < 2 {
		return "MULTIPLE_CHOICE requires at least 2 distractors"
	}
	if d.QualityScore < 0 || d.QualityScore > 1 {
		return "quality_score must be within [0,1]"
	}
	if d.Status != "" &&
		d.Status != entity.TemplateStatusActive &&
		d.Status != entity.TemplateStatusInactive {
		return fmt.Sprintf("draft status must be ACTIVE or INACTIVE, got %q", d.Status)
	}
	return ""
}

// draftToTemplate присваивает ID, таймстемпы и значения по умолчанию
func draftToTemplate(d TemplateDraft, cfg *templatebank.Config) *entity.Template {
	status := d.Status
	if status == "" {
		status = entity.TemplateStatusActive
	}
	quality := d.QualityScore
	if quality == 0 {
		quality = cfg.InitialQuality
	}
	now := time.Now()

	return &entity.Template{
		ID:           uuid.New().String(),
		GradeLevel:   d.GradeLevel,
		Quarter:      d.Quarter,
		Domain:       d.Domain,
		Subcategory:  d.Subcategory,
		Difficulty:   d.Difficulty,
		QuestionType: d.QuestionType,
		PromptText:   d.PromptText,
		Solution:     entity.JSONValue(d.Solution),
		Distractors:  entity.StringArray(d.Distractors),
		Explanation:  d.Explanation,
		Status:       status,
		QualityScore: quality,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// storeErr переводит ошибки хранилища в ErrStoreUnavailable,
// сохраняя ErrNotFound и контекст исходной ошибки.
// Ядро не ретраит такие ошибки — retry-политика у вызывающей стороны.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
}
