package repository

import (
	"time"
)

// CacheRepository определяет методы кеша приложения. Значения хранятся
// в JSON: кеш используется для клиентских представлений (списки вопросов
// без флагов правильности, карточки курсов), а не как источник истины.
type CacheRepository interface {
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	Delete(key string) error
}
