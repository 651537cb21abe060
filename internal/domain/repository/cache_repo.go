package repository

import "time"

// CacheRepository определяет методы для работы с кешем и очередями
type CacheRepository interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string) (string, error)
	Delete(key string) error
	Increment(key string) (int64, error)

	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error

	// PushQueue добавляет JSON-сообщение в очередь (список).
	// Используется для заявок на генерацию, которые потребляет внешний генератор контента.
	PushQueue(queue string, value interface{}) error

	// QueueLength возвращает текущую длину очереди
	QueueLength(queue string) (int64, error)
}
