package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplate_CorrectRate(t *testing.T) {
	// Несыгранный шаблон не имеет наблюдаемой результативности
	fresh := &Template{PlayCount: 0}
	assert.Equal(t, float64(-1), fresh.CorrectRate())

	played := &Template{PlayCount: 20, CorrectCount: 15}
	assert.InDelta(t, 0.75, played.CorrectRate(), 1e-9)
}

func TestTemplate_AverageRating(t *testing.T) {
	unrated := &Template{}
	assert.Zero(t, unrated.AverageRating())

	rated := &Template{RatingSum: 14, RatingCount: 4}
	assert.InDelta(t, 3.5, rated.AverageRating(), 1e-9)
}

func TestTemplate_HasEnoughDistractors(t *testing.T) {
	mc := &Template{QuestionType: QuestionTypeMultipleChoice, Distractors: StringArray{"5", "6"}}
	assert.True(t, mc.HasEnoughDistractors())

	mcShort := &Template{QuestionType: QuestionTypeMultipleChoice, Distractors: StringArray{"5"}}
	assert.False(t, mcShort.HasEnoughDistractors())

	// Для не-MC типов дистракторы не требуются
	freetext := &Template{QuestionType: QuestionTypeFreetext}
	assert.True(t, freetext.HasEnoughDistractors())
}

func TestTemplate_HasStructuredSolution(t *testing.T) {
	sortOK := &Template{QuestionType: QuestionTypeSort, Solution: JSONValue(`["1","2","3"]`)}
	assert.True(t, sortOK.HasStructuredSolution())

	sortScalar := &Template{QuestionType: QuestionTypeSort, Solution: JSONValue(`"123"`)}
	assert.False(t, sortScalar.HasStructuredSolution())

	matchPairs := &Template{QuestionType: QuestionTypeMatch, Solution: JSONValue(`[["Hund","Tier"],["Rose","Blume"]]`)}
	assert.True(t, matchPairs.HasStructuredSolution())

	// Для скалярных типов строка — валидное решение
	freetext := &Template{QuestionType: QuestionTypeFreetext, Solution: JSONValue(`"7"`)}
	assert.True(t, freetext.HasStructuredSolution())
}

func TestTemplate_IsSelectable(t *testing.T) {
	assert.True(t, (&Template{Status: TemplateStatusActive}).IsSelectable())
	assert.False(t, (&Template{Status: TemplateStatusArchived}).IsSelectable())
	assert.False(t, (&Template{Status: TemplateStatusInactive}).IsSelectable())
	assert.False(t, (&Template{Status: TemplateStatusDeleted}).IsSelectable())
}

func TestIsKnownQuestionType(t *testing.T) {
	assert.True(t, IsKnownQuestionType(QuestionTypeMultipleChoice))
	assert.True(t, IsKnownQuestionType(QuestionTypeMatch))
	// DRAG_DROP исключён из закрытого enum — устаревший тип
	assert.False(t, IsKnownQuestionType(QuestionTypeDragDrop))
	assert.False(t, IsKnownQuestionType("ESSAY"))
}

func TestIsKnownQuarter(t *testing.T) {
	assert.True(t, IsKnownQuarter(QuarterQ1))
	assert.True(t, IsKnownQuarter(QuarterQ4))
	assert.False(t, IsKnownQuarter("Q5"))
	assert.False(t, IsKnownQuarter("q1"))
}

func TestFeedbackPolarity(t *testing.T) {
	assert.True(t, (&TemplateFeedback{Kind: FeedbackThumbsDown}).IsNegative())
	assert.True(t, (&TemplateFeedback{Kind: FeedbackTooHard}).IsNegative())
	assert.False(t, (&TemplateFeedback{Kind: FeedbackTooEasy}).IsNegative())

	assert.True(t, (&TemplateFeedback{Kind: FeedbackThumbsUp}).IsPositive())
	assert.False(t, (&TemplateFeedback{Kind: FeedbackTooEasy}).IsPositive())
}
