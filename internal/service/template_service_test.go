package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
	apperrors "github.com/yourusername/lernbank-api/internal/pkg/errors"
	"github.com/yourusername/lernbank-api/internal/service/templatebank"
)

func validDraft() TemplateDraft {
	return TemplateDraft{
		GradeLevel:   2,
		Quarter:      entity.QuarterQ1,
		Domain:       "zahlen_und_operationen",
		Difficulty:   entity.DifficultyEasy,
		QuestionType: entity.QuestionTypeMultipleChoice,
		PromptText:   "Wie viel ist 12 plus 13?",
		Solution:     json.RawMessage(`"25"`),
		Distractors:  []string{"24", "26", "35"},
	}
}

func TestTemplateService_InsertCandidates(t *testing.T) {
	// Arrange
	templateRepo := new(MockTemplateRepo)
	svc := NewTemplateService(templateRepo, templatebank.DefaultConfig())

	templateRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Template")).Return(nil)

	// Act
	report, err := svc.InsertCandidates(context.Background(), []TemplateDraft{validDraft()})

	// Assert: ID и значения по умолчанию присвоены
	require.NoError(t, err)
	require.Len(t, report.Inserted, 1)
	assert.Empty(t, report.Skipped)
	inserted := report.Inserted[0]
	assert.NotEmpty(t, inserted.ID)
	assert.Equal(t, entity.TemplateStatusActive, inserted.Status)
	assert.Equal(t, 0.7, inserted.QualityScore)
	assert.False(t, inserted.CreatedAt.IsZero())
}

func TestTemplateService_InsertCandidates_SkipsBrokenDrafts(t *testing.T) {
	// Пачка не прерывается: сломанные кандидаты пропускаются индивидуально
	templateRepo := new(MockTemplateRepo)
	svc := NewTemplateService(templateRepo, templatebank.DefaultConfig())

	templateRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Template")).Return(nil)

	noPrompt := validDraft()
	noPrompt.PromptText = ""

	badQuarter := validDraft()
	badQuarter.Quarter = "Q5"

	dragDrop := validDraft()
	dragDrop.QuestionType = entity.QuestionTypeDragDrop

	fewDistractors := validDraft()
	fewDistractors.Distractors = []string{"24"}

	report, err := svc.InsertCandidates(context.Background(), []TemplateDraft{
		noPrompt, validDraft(), badQuarter, dragDrop, fewDistractors,
	})

	require.NoError(t, err)
	assert.Len(t, report.Inserted, 1)
	require.Len(t, report.Skipped, 4)
	// Причины привязаны к позициям в пачке
	assert.Equal(t, 0, report.Skipped[0].Index)
	assert.Equal(t, 2, report.Skipped[1].Index)
	assert.Contains(t, report.Skipped[2].Reason, "DRAG_DROP")
	assert.Equal(t, 4, report.Skipped[3].Index)
}

func TestTemplateService_InsertCandidates_FirstGradeGate(t *testing.T) {
	// Кандидат для 1 класса с числами за пределами 20 исключается,
	// но сохраняется со статусом INACTIVE для ревью куратором
	templateRepo := new(MockTemplateRepo)
	svc := NewTemplateService(templateRepo, templatebank.DefaultConfig())

	var saved *entity.Template
	templateRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Template")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*entity.Template)
		}).Return(nil)

	draft := validDraft()
	draft.GradeLevel = 1
	draft.PromptText = "Wie viel ist 45 plus 30?"
	draft.QuestionType = entity.QuestionTypeFreetext
	draft.Distractors = nil

	report, err := svc.InsertCandidates(context.Background(), []TemplateDraft{draft})

	require.NoError(t, err)
	assert.Equal(t, 1, report.ExcludedCount)
	require.NotNil(t, saved)
	assert.Equal(t, entity.TemplateStatusInactive, saved.Status)
	assert.LessOrEqual(t, saved.QualityScore, 0.3)
}

func TestTemplateService_InsertCandidates_FirstGradePenalty(t *testing.T) {
	// Субъективный вопрос для 1 класса проходит, но со штрафом качества
	templateRepo := new(MockTemplateRepo)
	svc := NewTemplateService(templateRepo, templatebank.DefaultConfig())

	var saved *entity.Template
	templateRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Template")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*entity.Template)
		}).Return(nil)

	draft := validDraft()
	draft.GradeLevel = 1
	draft.PromptText = "Was ist deine Lieblingsfarbe?"
	draft.QuestionType = entity.QuestionTypeFreetext
	draft.Distractors = nil

	report, err := svc.InsertCandidates(context.Background(), []TemplateDraft{draft})

	require.NoError(t, err)
	assert.Zero(t, report.ExcludedCount)
	require.NotNil(t, saved)
	assert.Equal(t, entity.TemplateStatusActive, saved.Status)
	assert.LessOrEqual(t, saved.QualityScore, 0.5)
}

func TestTemplateService_CleanupInvalid(t *testing.T) {
	// Arrange: пустой текст, MC без дистракторов, SORT со скаляром, здоровый
	templateRepo := new(MockTemplateRepo)
	svc := NewTemplateService(templateRepo, templatebank.DefaultConfig())

	templates := []entity.Template{
		{ID: "empty", PromptText: "", QuestionType: entity.QuestionTypeFreetext,
			Solution: entity.JSONValue(`"7"`)},
		{ID: "no-distractors", PromptText: "Wie viel ist 2 plus 2?",
			QuestionType: entity.QuestionTypeMultipleChoice,
			Solution:     entity.JSONValue(`"4"`), Distractors: entity.StringArray{"5"}},
		{ID: "scalar-sort", PromptText: "Sortiere die Zahlen",
			QuestionType: entity.QuestionTypeSort, Solution: entity.JSONValue(`"123"`)},
		{ID: "healthy", PromptText: "Wie viel ist 2 plus 2?",
			QuestionType: entity.QuestionTypeFreetext, Solution: entity.JSONValue(`"4"`)},
	}
	templateRepo.On("ListByStatus", mock.Anything, entity.TemplateStatusActive, 0, "").
		Return(templates, nil)
	templateRepo.On("UpdateStatus", mock.Anything, "empty", entity.TemplateStatusDeleted).Return(nil)
	templateRepo.On("UpdateStatus", mock.Anything, "no-distractors", entity.TemplateStatusDeleted).Return(nil)
	templateRepo.On("UpdateStatus", mock.Anything, "scalar-sort", entity.TemplateStatusDeleted).Return(nil)

	// Act
	deleted, err := svc.CleanupInvalid(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	templateRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, "healthy", mock.Anything)
}

func TestTemplateService_UpdateTemplate(t *testing.T) {
	// Arrange: правка меняет контент, но сохраняет ID и счётчики
	templateRepo := new(MockTemplateRepo)
	svc := NewTemplateService(templateRepo, templatebank.DefaultConfig())

	existing := &entity.Template{
		ID:           "tpl-1",
		GradeLevel:   2,
		Quarter:      entity.QuarterQ1,
		Domain:       "zahlen_und_operationen",
		Status:       entity.TemplateStatusActive,
		PromptText:   "Wie viel ist 12 plus 13?",
		PlayCount:    17,
		CorrectCount: 12,
	}
	templateRepo.On("GetByID", mock.Anything, "tpl-1").Return(existing, nil)
	templateRepo.On("Update", mock.Anything, mock.AnythingOfType("*entity.Template")).Return(nil)

	draft := validDraft()
	draft.PromptText = "Wie viel ist 14 plus 11?"

	// Act
	updated, err := svc.UpdateTemplate(context.Background(), "tpl-1", draft)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", updated.ID)
	assert.Equal(t, "Wie viel ist 14 plus 11?", updated.PromptText)
	assert.Equal(t, 17, updated.PlayCount)
	templateRepo.AssertExpectations(t)
}

func TestTemplateService_UpdateTemplate_DeletedConflict(t *testing.T) {
	// Удалённый шаблон не редактируется
	templateRepo := new(MockTemplateRepo)
	svc := NewTemplateService(templateRepo, templatebank.DefaultConfig())

	deleted := &entity.Template{ID: "gone", Status: entity.TemplateStatusDeleted}
	templateRepo.On("GetByID", mock.Anything, "gone").Return(deleted, nil)

	_, err := svc.UpdateTemplate(context.Background(), "gone", validDraft())

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	templateRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestTemplateService_UpdateTemplate_BrokenDraft(t *testing.T) {
	templateRepo := new(MockTemplateRepo)
	svc := NewTemplateService(templateRepo, templatebank.DefaultConfig())

	draft := validDraft()
	draft.PromptText = ""

	_, err := svc.UpdateTemplate(context.Background(), "tpl-1", draft)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	templateRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestTemplateService_DeleteTemplate(t *testing.T) {
	templateRepo := new(MockTemplateRepo)
	svc := NewTemplateService(templateRepo, templatebank.DefaultConfig())

	templateRepo.On("Delete", mock.Anything, "tpl-1").Return(nil)

	err := svc.DeleteTemplate(context.Background(), "tpl-1")

	require.NoError(t, err)
	templateRepo.AssertExpectations(t)
}

func TestTemplateService_DeleteTemplate_Missing(t *testing.T) {
	templateRepo := new(MockTemplateRepo)
	svc := NewTemplateService(templateRepo, templatebank.DefaultConfig())

	templateRepo.On("Delete", mock.Anything, "missing").Return(apperrors.ErrNotFound)

	err := svc.DeleteTemplate(context.Background(), "missing")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
