package templatebank

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
)

// Severity — серьёзность найденной проблемы
type Severity string

const (
	// SeverityInfo — информационная проблема, шаблон остаётся в пуле
	SeverityInfo Severity = "info"

	// SeverityWarning — мягкая проблема, качество штрафуется, но шаблон остаётся
	SeverityWarning Severity = "warning"

	// SeverityCritical — проблема, исключающая шаблон из пула
	SeverityCritical Severity = "critical"
)

// Коды проблем валидации
const (
	IssueSubjectiveContent = "subjective_content"
	IssueComplexityNumber  = "complexity_number"
	IssueComplexityOps     = "complexity_operations"
	IssueComplexityVocab   = "complexity_vocabulary"
	IssueDisallowedType    = "ui_disallowed_type"
	IssueFewDistractors    = "ui_few_distractors"
	IssueMalformedSolution = "ui_malformed_solution"
	IssueMissingVisual     = "missing_visual_support"
)

// Issue — одна найденная проблема шаблона
type Issue struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ValidationResult — итог проверки шаблона.
// AgeAppropriate всегда равно !ShouldExclude;
// IsValid истинно только при полном отсутствии проблем.
type ValidationResult struct {
	IsValid        bool    `json:"is_valid"`
	Issues         []Issue `json:"issues"`
	ShouldExclude  bool    `json:"should_exclude"`
	QualityScore   float64 `json:"quality_score"`
	AgeAppropriate bool    `json:"age_appropriate"`
	UICompatible   bool    `json:"ui_compatible"`
}

// Семейства шаблонов субъективных формулировок.
// Субъективная формулировка сама по себе не дисквалифицирует задание —
// объективный ключ ответа всё ещё может существовать.
var subjectivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)lieblings\p{L}*`),
	regexp.MustCompile(`(?i)am\s+(schönsten|besten|tollsten)`),
	regexp.MustCompile(`(?i)schönste[rs]?\b`),
	regexp.MustCompile(`(?i)magst\s+du(\s+lieber)?`),
	regexp.MustCompile(`(?i)gefällt\s+dir`),
	regexp.MustCompile(`(?i)findest\s+du\s+(besser|schöner|toller)`),
	regexp.MustCompile(`(?i)welche[rs]?\s+\p{L}+\s+bevorzugst`),
}

// Маркеры операций, недоступных первоклассникам
var advancedOpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[×÷·]`),
	regexp.MustCompile(`\d\s*\*\s*\d`),
	regexp.MustCompile(`\d\s*:\s*\d`),
	regexp.MustCompile(`%`),
	regexp.MustCompile(`(?i)prozent`),
	regexp.MustCompile(`\d+\s*/\s*\d+`), // Дроби
	regexp.MustCompile(`(?i)bruch\p{L}*`),
}

// Лексика, недоступная первоклассникам
var advancedVocabPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)variable`),
	regexp.MustCompile(`(?i)gleichung`),
	regexp.MustCompile(`(?i)unbekannte`),
	regexp.MustCompile(`(?i)multiplizier\p{L}*`),
	regexp.MustCompile(`(?i)dividier\p{L}*`),
}

// Формулировки, требующие жеста, невозможного в цифровом носителе
var gesturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)zeige?\s+auf`),
	regexp.MustCompile(`(?i)deute\s+auf`),
	regexp.MustCompile(`(?i)zeige?\s+mit\s+dem\s+finger`),
}

var numberPattern = regexp.MustCompile(`\d+`)

// FirstGradeValidator проверяет шаблоны, адресованные первоклассникам.
// Правила накапливают проблемы независимо и не прерывают друг друга;
// штрафы качества комбинируются через минимум.
// Валидатор не имеет состояния и безопасен для конкурентного использования.
type FirstGradeValidator struct {
	// MaxNumber — максимальный числовой литерал, допустимый в тексте задания
	MaxNumber int

	// AllowedTypes — типы вопросов, которые UI умеет рендерить для этого класса
	AllowedTypes map[string]bool
}

// NewFirstGradeValidator создает валидатор с правилами для 1 класса
func NewFirstGradeValidator() *FirstGradeValidator {
	return &FirstGradeValidator{
		MaxNumber: 20,
		AllowedTypes: map[string]bool{
			entity.QuestionTypeMultipleChoice: true,
			entity.QuestionTypeFreetext:       true,
			entity.QuestionTypeText:           true,
		},
	}
}

// Validate проверяет шаблон и возвращает решение о включении плюс штраф качества.
// Детерминирована: повторный вызов на неизменённом шаблоне даёт идентичный результат.
func (v *FirstGradeValidator) Validate(t *entity.Template) ValidationResult {
	var issues []Issue
	shouldExclude := false
	uiCompatible := true

	// Базовое качество: авторская оценка шаблона, если она задана
	quality := t.QualityScore
	if quality <= 0 || quality > 1 {
		quality = 1.0
	}
	capQuality := func(cap float64) {
		if cap < quality {
			quality = cap
		}
	}

	// 1. Субъективные формулировки: мягкий штраф, без исключения
	for _, p := range subjectivePatterns {
		if m := p.FindString(t.PromptText); m != "" {
			issues = append(issues, Issue{
				Code:     IssueSubjectiveContent,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("subjektive Formulierung %q hat keinen objektiven Lösungsweg", m),
			})
			capQuality(0.5)
			break
		}
	}

	// 2. Превышение сложности: жёсткое исключение
	if n, ok := v.maxNumberIn(t.PromptText); ok && n > v.MaxNumber {
		issues = append(issues, Issue{
			Code:     IssueComplexityNumber,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("Zahl %d überschreitet den Zahlenraum bis %d", n, v.MaxNumber),
		})
		shouldExclude = true
		capQuality(0.3)
	}
	for _, p := range advancedOpPatterns {
		if p.MatchString(t.PromptText) {
			issues = append(issues, Issue{
				Code:     IssueComplexityOps,
				Severity: SeverityCritical,
				Message:  "enthält Operationen (Multiplikation/Division/Prozent/Brüche) oberhalb des Lehrplans",
			})
			shouldExclude = true
			capQuality(0.3)
			break
		}
	}
	for _, p := range advancedVocabPatterns {
		if m := p.FindString(t.PromptText); m != "" {
			issues = append(issues, Issue{
				Code:     IssueComplexityVocab,
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("Fachbegriff %q ist für Klasse 1 ungeeignet", m),
			})
			shouldExclude = true
			capQuality(0.3)
			break
		}
	}

	// 3. Совместимость с UI: критические проблемы исключают,
	// некритические только штрафуют
	if !v.AllowedTypes[t.QuestionType] {
		issues = append(issues, Issue{
			Code:     IssueDisallowedType,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("Fragetyp %q wird für Klasse 1 nicht gerendert", t.QuestionType),
		})
		shouldExclude = true
		uiCompatible = false
	}
	if !t.HasStructuredSolution() {
		issues = append(issues, Issue{
			Code:     IssueMalformedSolution,
			Severity: SeverityCritical,
			Message:  "SORT/MATCH-Lösung ist ein einfacher String statt strukturierter Daten",
		})
		shouldExclude = true
		uiCompatible = false
	}
	if !t.HasEnoughDistractors() {
		// Мало дистракторов — поправимо, не исключаем
		issues = append(issues, Issue{
			Code:     IssueFewDistractors,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("nur %d Distraktoren, mindestens 2 erforderlich", len(t.Distractors)),
		})
		capQuality(0.6)
	}

	// 4. Отсутствующая визуальная опора: жест невозможен на экране
	for _, p := range gesturePatterns {
		if p.MatchString(t.PromptText) {
			issues = append(issues, Issue{
				Code:     IssueMissingVisual,
				Severity: SeverityWarning,
				Message:  "verlangt eine Zeigegeste, die digital nicht möglich ist",
			})
			capQuality(0.6)
			break
		}
	}

	return ValidationResult{
		IsValid:        !shouldExclude && len(issues) == 0,
		Issues:         issues,
		ShouldExclude:  shouldExclude,
		QualityScore:   quality,
		AgeAppropriate: !shouldExclude,
		UICompatible:   uiCompatible,
	}
}

// maxNumberIn возвращает наибольший числовой литерал в тексте
func (v *FirstGradeValidator) maxNumberIn(text string) (int, bool) {
	matches := numberPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return 0, false
	}

	max := 0
	for _, m := range matches {
		trimmed := strings.TrimLeft(m, "0")
		if trimmed == "" {
			continue // чистый ноль
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				// Литерал не помещается в int — заведомо превышает любую границу
				return math.MaxInt, true
			}
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, true
}
