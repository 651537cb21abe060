package templatebank

import (
	"sort"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
	"github.com/yourusername/lernbank-api/internal/domain/repository"
)

// Приоритеты заполнения пробелов покрытия
type GapPriority string

const (
	PriorityHigh   GapPriority = "HIGH"
	PriorityMedium GapPriority = "MEDIUM"
	PriorityLow    GapPriority = "LOW"
)

// rank возвращает порядок серьёзности: HIGH < MEDIUM < LOW
func (p GapPriority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// DomainSpec описывает один домен таксономии.
// MinGrade отсекает структурно неприменимые комбинации:
// домен не преподаётся раньше минимального класса.
type DomainSpec struct {
	Name     string `mapstructure:"name" json:"name"`
	MinGrade int    `mapstructure:"min_grade" json:"min_grade"`
}

// TaxonomySpace задаёт полное пространство комбинаций
// (класс × четверть × домен × сложность × тип вопроса)
type TaxonomySpace struct {
	Grades        []int
	Quarters      []string
	Domains       []DomainSpec
	Difficulties  []string
	QuestionTypes []string
}

// DefaultTaxonomySpace возвращает пространство таксономии по умолчанию.
// Домены — непрозрачные ключи учебного плана; продакшен задаёт их через конфигурацию.
func DefaultTaxonomySpace() TaxonomySpace {
	return TaxonomySpace{
		Grades:   []int{1, 2, 3, 4},
		Quarters: []string{entity.QuarterQ1, entity.QuarterQ2, entity.QuarterQ3, entity.QuarterQ4},
		Domains: []DomainSpec{
			{Name: "zahlen_und_operationen", MinGrade: 1},
			{Name: "raum_und_form", MinGrade: 1},
			{Name: "groessen_und_messen", MinGrade: 1},
			{Name: "daten_und_zufall", MinGrade: 2},
			{Name: "sprache_untersuchen", MinGrade: 2},
			{Name: "lesen_und_verstehen", MinGrade: 1},
			{Name: "richtig_schreiben", MinGrade: 1},
		},
		Difficulties: []string{entity.DifficultyEasy, entity.DifficultyMedium, entity.DifficultyHard},
		QuestionTypes: []string{
			entity.QuestionTypeMultipleChoice,
			entity.QuestionTypeFreetext,
			entity.QuestionTypeSort,
			entity.QuestionTypeMatch,
		},
	}
}

// CoverageGap — одна недозаполненная комбинация таксономии
type CoverageGap struct {
	GradeLevel   int         `json:"grade_level"`
	Quarter      string      `json:"quarter"`
	Domain       string      `json:"domain"`
	Difficulty   string      `json:"difficulty"`
	QuestionType string      `json:"question_type"`
	CurrentCount int64       `json:"current_count"`
	TargetCount  int         `json:"target_count"`
	Priority     GapPriority `json:"priority"`
}

// CoverageReport — итог анализа покрытия таксономии
type CoverageReport struct {
	TotalCombinations   int                 `json:"total_combinations"`
	CoveredCombinations int                 `json:"covered_combinations"`
	CoveragePercentage  float64             `json:"coverage_percentage"`
	Gaps                []CoverageGap       `json:"gaps"`
	Priorities          map[GapPriority]int `json:"priorities"`
}

// PriorityForGrade возвращает приоритет пробела по классу.
// Младшие классы получают HIGH: их пул одновременно меньше
// и рискованнее для истощения.
func PriorityForGrade(gradeLevel int) GapPriority {
	switch {
	case gradeLevel <= 2:
		return PriorityHigh
	case gradeLevel <= 4:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

type taxonomyKey struct {
	Grade        int
	Quarter      string
	Domain       string
	Difficulty   string
	QuestionType string
}

// AnalyzeCoverage перечисляет все применимые комбинации пространства таксономии
// и сравнивает фактическое количество шаблонов с целевым.
// Комбинация считается покрытой уже при CurrentCount > 0 — «покрыта»
// и «полностью укомплектована» намеренно различаются.
// Чистая функция над переданными агрегатами, без обращений к хранилищу.
func AnalyzeCoverage(counts []repository.TaxonomyCount, space TaxonomySpace, targetCount int) CoverageReport {
	byKey := make(map[taxonomyKey]int64, len(counts))
	for _, c := range counts {
		byKey[taxonomyKey{c.GradeLevel, c.Quarter, c.Domain, c.Difficulty, c.QuestionType}] = c.Count
	}

	report := CoverageReport{
		Priorities: map[GapPriority]int{},
	}

	for _, grade := range space.Grades {
		for _, quarter := range space.Quarters {
			for _, domain := range space.Domains {
				if grade < domain.MinGrade {
					continue // Домен ещё не преподаётся в этом классе
				}
				for _, difficulty := range space.Difficulties {
					for _, qt := range space.QuestionTypes {
						report.TotalCombinations++

						current := byKey[taxonomyKey{grade, quarter, domain.Name, difficulty, qt}]
						if current > 0 {
							report.CoveredCombinations++
						}
						if current >= int64(targetCount) {
							continue
						}

						priority := PriorityForGrade(grade)
						report.Gaps = append(report.Gaps, CoverageGap{
							GradeLevel:   grade,
							Quarter:      quarter,
							Domain:       domain.Name,
							Difficulty:   difficulty,
							QuestionType: qt,
							CurrentCount: current,
							TargetCount:  targetCount,
							Priority:     priority,
						})
						report.Priorities[priority]++
					}
				}
			}
		}
	}

	if report.TotalCombinations > 0 {
		report.CoveragePercentage = float64(report.CoveredCombinations) / float64(report.TotalCombinations) * 100
	}

	return report
}

// PriorityQueue возвращает пробелы, отсортированные по серьёзности приоритета
// (HIGH < MEDIUM < LOW), затем по возрастанию CurrentCount: пустые комбинации
// высокого приоритета идут первыми. limit <= 0 означает «без ограничения».
func PriorityQueue(gaps []CoverageGap, limit int) []CoverageGap {
	queue := make([]CoverageGap, len(gaps))
	copy(queue, gaps)

	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].Priority.rank() != queue[j].Priority.rank() {
			return queue[i].Priority.rank() < queue[j].Priority.rank()
		}
		return queue[i].CurrentCount < queue[j].CurrentCount
	})

	if limit > 0 && len(queue) > limit {
		queue = queue[:limit]
	}
	return queue
}
