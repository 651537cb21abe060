package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Статусы жизненного цикла шаблона
const (
	TemplateStatusActive   = "ACTIVE"
	TemplateStatusArchived = "ARCHIVED"
	TemplateStatusInactive = "INACTIVE"
	TemplateStatusDeleted  = "DELETED"
)

// Типы вопросов
const (
	QuestionTypeMultipleChoice = "MULTIPLE_CHOICE"
	QuestionTypeFreetext       = "FREETEXT"
	QuestionTypeText           = "TEXT"
	QuestionTypeSort           = "SORT"
	QuestionTypeMatch          = "MATCH"

	// QuestionTypeDragDrop — устаревший тип, новые шаблоны с ним отклоняются
	QuestionTypeDragDrop = "DRAG_DROP"
)

// Четверти учебного года. Строки Q1..Q4 упорядочены лексикографически,
// поэтому сравнение quarter <= ? в SQL совпадает с порядком enum.
const (
	QuarterQ1 = "Q1"
	QuarterQ2 = "Q2"
	QuarterQ3 = "Q3"
	QuarterQ4 = "Q4"
)

// Уровни сложности (соответствуют AFB I/II/III)
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// JSONValue - пользовательский тип для JSONB-полей произвольной формы.
// Используется для solution: скаляр (string), упорядоченный список ([]string)
// или список пар ([][2]string) в зависимости от типа вопроса.
type JSONValue json.RawMessage

// Scan реализует интерфейс sql.Scanner для JSONValue
func (j *JSONValue) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	*j = append((*j)[0:0], bytes...)
	return nil
}

// Value реализует интерфейс driver.Valuer для JSONValue
func (j JSONValue) Value() (driver.Value, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return []byte(j), nil
}

// MarshalJSON возвращает сырой JSON как есть
func (j JSONValue) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return []byte(j), nil
}

// UnmarshalJSON сохраняет сырой JSON как есть
func (j *JSONValue) UnmarshalJSON(data []byte) error {
	*j = append((*j)[0:0], data...)
	return nil
}

// IsString сообщает, является ли значение JSON-строкой (скалярное решение)
func (j JSONValue) IsString() bool {
	var s string
	return json.Unmarshal([]byte(j), &s) == nil
}

// IsArray сообщает, является ли значение JSON-массивом (структурированное решение)
func (j JSONValue) IsArray() bool {
	var a []json.RawMessage
	return json.Unmarshal([]byte(j), &a) == nil
}

// Template представляет один шаблон вопроса в банке
type Template struct {
	ID           string      `gorm:"primaryKey;size:36" json:"id"`
	GradeLevel   int         `gorm:"not null;index:idx_templates_taxonomy" json:"grade_level"`
	Quarter      string      `gorm:"size:2;not null;index:idx_templates_taxonomy" json:"quarter"`
	Domain       string      `gorm:"size:100;not null;index:idx_templates_taxonomy" json:"domain"`
	Subcategory  string      `gorm:"size:100" json:"subcategory,omitempty"`
	Difficulty   string      `gorm:"size:10;not null" json:"difficulty"`
	QuestionType string      `gorm:"size:20;not null" json:"question_type"`
	PromptText   string      `gorm:"type:text;not null" json:"prompt_text"`
	Solution     JSONValue   `gorm:"type:jsonb;not null" json:"-"` // Скрыто от клиента
	Distractors  StringArray `gorm:"type:jsonb" json:"distractors,omitempty"`
	Explanation  string      `gorm:"type:text" json:"explanation,omitempty"`
	Status       string      `gorm:"size:10;not null;default:ACTIVE;index" json:"status"`
	QualityScore float64     `gorm:"not null;default:0.7" json:"quality_score"`
	PlayCount    int         `gorm:"not null;default:0" json:"play_count"`
	CorrectCount int         `gorm:"not null;default:0" json:"correct_count"`
	RatingSum    int         `gorm:"not null;default:0" json:"-"`
	RatingCount  int         `gorm:"not null;default:0" json:"rating_count"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Template) TableName() string {
	return "templates"
}

// CorrectRate возвращает долю правильных ответов.
// Возвращает -1, если по шаблону ещё никто не играл (нет данных).
func (t *Template) CorrectRate() float64 {
	if t.PlayCount == 0 {
		return -1
	}
	return float64(t.CorrectCount) / float64(t.PlayCount)
}

// AverageRating возвращает среднюю звёздную оценку (0, если оценок нет)
func (t *Template) AverageRating() float64 {
	if t.RatingCount == 0 {
		return 0
	}
	return float64(t.RatingSum) / float64(t.RatingCount)
}

// HasEnoughDistractors проверяет достаточность дистракторов для MULTIPLE_CHOICE.
// Для остальных типов вопросов дистракторы не требуются.
func (t *Template) HasEnoughDistractors() bool {
	if t.QuestionType != QuestionTypeMultipleChoice {
		return true
	}
	return len(t.Distractors) >= 2
}

// HasStructuredSolution проверяет, что SORT/MATCH несут структурированное решение.
// Скалярная строка вместо списка делает такой шаблон нерендерируемым.
func (t *Template) HasStructuredSolution() bool {
	if t.QuestionType != QuestionTypeSort && t.QuestionType != QuestionTypeMatch {
		return true
	}
	return len(t.Solution) > 0 && t.Solution.IsArray()
}

// IsSelectable сообщает, может ли шаблон попасть в выборку сессии
func (t *Template) IsSelectable() bool {
	return t.Status == TemplateStatusActive
}

// IsKnownQuestionType проверяет принадлежность типа вопроса закрытому enum
func IsKnownQuestionType(qt string) bool {
	switch qt {
	case QuestionTypeMultipleChoice, QuestionTypeFreetext, QuestionTypeText,
		QuestionTypeSort, QuestionTypeMatch:
		return true
	}
	return false
}

// IsKnownQuarter проверяет принадлежность четверти enum Q1..Q4
func IsKnownQuarter(q string) bool {
	switch q {
	case QuarterQ1, QuarterQ2, QuarterQ3, QuarterQ4:
		return true
	}
	return false
}

// IsKnownDifficulty проверяет принадлежность сложности enum easy/medium/hard
func IsKnownDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}
