package templatebank

import "github.com/yourusername/lernbank-api/internal/domain/entity"

// Причины выбора шаблона ротатором (для наблюдаемости)
const (
	RotationReasonPreferredDifficulty = "preferred_difficulty"
	RotationReasonBestQuality         = "best_quality_fallback"
)

// BlendQuality пересчитывает качество шаблона, смешивая авторскую оценку
// с наблюдаемой долей правильных ответов:
// newScore = prior*QualityBlendPrior + correctRate*QualityBlendObserved.
// Применяется только при PlayCount > 0; без данных прежняя оценка сохраняется.
// Результат зажат в [0,1].
func (c *Config) BlendQuality(t *entity.Template) float64 {
	if t.PlayCount == 0 {
		return clamp01(t.QualityScore)
	}

	rate := float64(t.CorrectCount) / float64(t.PlayCount)
	return clamp01(c.QualityBlendPrior*t.QualityScore + c.QualityBlendObserved*rate)
}

// ShouldArchive решает, пора ли отправить шаблон в архив.
// Шаблоны с выборкой меньше MinPlaysForArchive никогда не архивируются
// по показателям: недостаток данных не повод для удаления.
func (c *Config) ShouldArchive(t *entity.Template) bool {
	if t.PlayCount < c.MinPlaysForArchive {
		return false
	}
	if t.QualityScore >= c.ArchiveQualityBelow {
		return false
	}
	return float64(t.CorrectCount)/float64(t.PlayCount) < c.ArchiveCorrectRateBelow
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
