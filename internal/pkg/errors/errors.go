package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда шаблон или другая запись не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrValidation используется для ошибок валидации входных данных
	// (некорректный фильтр, неизвестный тип вопроса и т.д.).
	ErrValidation = errors.New("validation failed")

	// ErrInvalidRating используется, когда оценка выходит за пределы 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrStoreUnavailable используется, когда хранилище шаблонов недоступно.
	// Ядро не делает повторных попыток — retry-политика принадлежит вызывающей стороне.
	ErrStoreUnavailable = errors.New("template store unavailable")

	// ErrConflict используется для конфликтов состояния
	// (например, попытка архивировать уже удалённый шаблон).
	ErrConflict = errors.New("resource state conflict")
)
