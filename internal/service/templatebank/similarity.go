package templatebank

import (
	"strings"
	"time"
	"unicode"
)

// HistoryEntry — один недавно показанный шаблон в истории сессии.
// История принадлежит вызывающей стороне и не сохраняется ядром
// дольше горизонта cooldown.
type HistoryEntry struct {
	TemplateID string
	PromptText string
	Timestamp  time.Time
}

// Candidate — кандидат для проверки на дубликат
type Candidate struct {
	ID         string
	PromptText string
}

// NormalizeText приводит текст к канонической форме для сравнения:
// нижний регистр, без пунктуации, со схлопнутыми пробелами.
// Эмодзи и прочие символы-пиктограммы сохраняются — они несут смысл
// в заданиях на счёт.
func NormalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsPunct(r):
			// Пунктуация отбрасывается целиком
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimRight(b.String(), " ")
}

// levenshtein вычисляет редакционное расстояние между двумя строками рун.
// O(n·m) по времени, O(min(n,m)) по памяти — достаточно для пачек
// в десятки кандидатов и окон истории в десятки записей.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Храним только одну строку матрицы
	if len(b) > len(a) {
		a, b = b, a
	}

	prev := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur := prev[0] + 1
		for j := 1; j <= len(b); j++ {
			cost := prev[j-1]
			if a[i-1] != b[j-1] {
				cost++
			}
			if d := prev[j] + 1; d < cost {
				cost = d
			}
			if d := cur + 1; d < cost {
				cost = d
			}
			prev[j-1], cur = cur, cost
		}
		prev[len(b)] = cur
	}

	return prev[len(b)]
}

// Similarity возвращает нормализованную схожесть двух текстов в [0,1]:
// 1 - levenshtein(a,b) / max(len(a),len(b)) на нормализованной форме.
// Функция симметрична: Similarity(a,b) == Similarity(b,a).
func Similarity(a, b string) float64 {
	na := []rune(NormalizeText(a))
	nb := []rune(NormalizeText(b))

	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	if maxLen == 0 {
		return 1.0 // Два пустых текста идентичны
	}

	return 1.0 - float64(levenshtein(na, nb))/float64(maxLen)
}

// IsDuplicate решает, является ли кандидат дубликатом чего-то из истории.
// Сначала проверяется точное совпадение ID внутри cooldown-окна,
// затем текстовая схожесть против каждой записи внутри окна.
// Пустая история означает отсутствие дубликатов — это валидный случай,
// а не ошибка.
func IsDuplicate(candidate Candidate, history []HistoryEntry, now time.Time, cooldown time.Duration, threshold float64) bool {
	for _, entry := range history {
		if now.Sub(entry.Timestamp) > cooldown {
			continue
		}

		if candidate.ID != "" && candidate.ID == entry.TemplateID {
			return true
		}

		if Similarity(candidate.PromptText, entry.PromptText) >= threshold {
			return true
		}
	}

	return false
}

// FilterDuplicates отфильтровывает дубликаты из пачки кандидатов.
// Каждый принятый кандидат немедленно добавляется в рабочую историю,
// поэтому дубликаты внутри самой пачки тоже отсеиваются.
// Переданная история не модифицируется.
func FilterDuplicates(candidates []Candidate, history []HistoryEntry, now time.Time, cooldown time.Duration, threshold float64) []Candidate {
	working := make([]HistoryEntry, len(history), len(history)+len(candidates))
	copy(working, history)

	accepted := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if IsDuplicate(c, working, now, cooldown, threshold) {
			continue
		}
		accepted = append(accepted, c)
		working = append(working, HistoryEntry{
			TemplateID: c.ID,
			PromptText: c.PromptText,
			Timestamp:  now,
		})
	}

	return accepted
}
