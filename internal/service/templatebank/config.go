package templatebank

import "time"

// Config содержит настройки движка банка шаблонов
type Config struct {
	// SimilarityThreshold — порог нормализованной схожести текстов,
	// начиная с которого кандидат считается дубликатом
	SimilarityThreshold float64

	// DuplicateCooldown — окно, в течение которого недавно показанные
	// шаблоны участвуют в проверке дубликатов
	DuplicateCooldown time.Duration

	// CandidatePoolCap — верхняя граница пула кандидатов при сборке сессии
	CandidatePoolCap int

	// TargetPerCombination — целевое количество шаблонов
	// на одну комбинацию таксономии
	TargetPerCombination int

	// MinPlaysForArchive — минимальная выборка, начиная с которой
	// шаблон можно архивировать по показателям
	MinPlaysForArchive int

	// ArchiveQualityBelow — порог качества для архивации
	ArchiveQualityBelow float64

	// ArchiveCorrectRateBelow — порог доли правильных ответов для архивации
	ArchiveCorrectRateBelow float64

	// QualityBlendPrior и QualityBlendObserved — веса смешивания
	// авторской оценки и наблюдаемой результативности
	QualityBlendPrior    float64
	QualityBlendObserved float64

	// InitialQuality — авторская оценка по умолчанию для новых шаблонов
	InitialQuality float64

	// FeedbackCleanupMinEntries, FeedbackDeleteNegativeRatio,
	// FeedbackDeletePositiveBelow, FeedbackFlagNegativeRatio —
	// пороги cleanup-прохода по эмодзи-отзывам
	FeedbackCleanupMinEntries   int
	FeedbackDeleteNegativeRatio float64
	FeedbackDeletePositiveBelow float64
	FeedbackFlagNegativeRatio   float64
}

// DefaultConfig возвращает конфигурацию движка по умолчанию
func DefaultConfig() *Config {
	return &Config{
		SimilarityThreshold:         0.8,
		DuplicateCooldown:           30 * time.Minute,
		CandidatePoolCap:            200,
		TargetPerCombination:        15,
		MinPlaysForArchive:          20,
		ArchiveQualityBelow:         0.5,
		ArchiveCorrectRateBelow:     0.3,
		QualityBlendPrior:           0.7,
		QualityBlendObserved:        0.3,
		InitialQuality:              0.7,
		FeedbackCleanupMinEntries:   5,
		FeedbackDeleteNegativeRatio: 0.7,
		FeedbackDeletePositiveBelow: 0.2,
		FeedbackFlagNegativeRatio:   0.5,
	}
}
