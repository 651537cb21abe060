package templatebank

import (
	"math/rand"
	"sort"
	"time"

	"github.com/yourusername/lernbank-api/internal/domain/entity"
)

// SessionParams описывает запрос на сборку одной учебной сессии
type SessionParams struct {
	GradeLevel         int
	Quarter            string
	Domain             string // пустая строка = все домены
	Count              int
	MinDistinctDomains int
	Difficulty         string // пустая строка = любая сложность
	History            []HistoryEntry
	Now                time.Time
}

// BuildSession собирает упорядоченный набор шаблонов из пула кандидатов.
// Кандидаты приходят отсортированными по качеству по убыванию.
// Порядок сборки намеренный: сначала по одному шаблону на домен (round-robin),
// затем добивка из перемешанного остатка — первые вопросы сессии
// максимально разнообразны.
// Источник случайности инжектируется, чтобы тесты выбора были детерминированы.
// Чистая функция: не обращается к хранилищу и не перезапрашивает кандидатов,
// если фильтр дубликатов сократил результат ниже Count — вызывающая сторона
// обязана обрабатывать укороченный результат.
func BuildSession(candidates []entity.Template, params SessionParams, cfg *Config, rng *rand.Rand) []entity.Template {
	if params.Count <= 0 || len(candidates) == 0 {
		return nil
	}

	// Группируем кандидатов по домену
	byDomain := make(map[string][]entity.Template)
	for _, t := range candidates {
		byDomain[t.Domain] = append(byDomain[t.Domain], t)
	}

	// Стабильный порядок доменов, чтобы при одинаковом seed выбор повторялся
	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	rng.Shuffle(len(domains), func(i, j int) {
		domains[i], domains[j] = domains[j], domains[i]
	})

	picked := make([]entity.Template, 0, params.Count)
	used := make(map[string]bool, params.Count)

	// Round-robin: по одному случайному шаблону из каждого домена.
	// Гарантирует разнообразие доменов до MinDistinctDomains,
	// когда доменов достаточно.
	for _, d := range domains {
		if len(picked) >= params.Count {
			break
		}
		pool := byDomain[d]
		if len(pool) == 0 {
			continue
		}
		idx := rng.Intn(len(pool))
		t := pool[idx]
		byDomain[d] = append(pool[:idx], pool[idx+1:]...)
		picked = append(picked, t)
		used[t.ID] = true
	}

	// Добивка: перемешанный остаток пула без учёта домена
	if len(picked) < params.Count {
		var rest []entity.Template
		for _, d := range domains {
			rest = append(rest, byDomain[d]...)
		}
		rng.Shuffle(len(rest), func(i, j int) {
			rest[i], rest[j] = rest[j], rest[i]
		})
		for _, t := range rest {
			if len(picked) >= params.Count {
				break
			}
			if used[t.ID] {
				continue
			}
			picked = append(picked, t)
			used[t.ID] = true
		}
	}

	// Фильтр дубликатов: против истории сессии и внутри собранной пачки
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	working := make([]HistoryEntry, len(params.History), len(params.History)+len(picked))
	copy(working, params.History)

	final := make([]entity.Template, 0, params.Count)
	for _, t := range picked {
		c := Candidate{ID: t.ID, PromptText: t.PromptText}
		if IsDuplicate(c, working, now, cfg.DuplicateCooldown, cfg.SimilarityThreshold) {
			continue
		}
		final = append(final, t)
		working = append(working, HistoryEntry{TemplateID: t.ID, PromptText: t.PromptText, Timestamp: now})
		if len(final) >= params.Count {
			break
		}
	}

	return final
}
