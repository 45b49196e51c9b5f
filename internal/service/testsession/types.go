package testsession

import (
	"errors"
	"time"

	"github.com/yourusername/lms-api/internal/domain/repository"
)

// Ошибки жизненного цикла тестовой сессии
var (
	// ErrNoActiveSession означает, что для попытки нет активной сессии в памяти
	ErrNoActiveSession = errors.New("no active test session")
	// ErrSessionCompleted означает, что сессия уже завершена и правки не принимаются
	ErrSessionCompleted = errors.New("test session already completed")
	// ErrSubmissionInProgress означает, что отправка уже выполняется
	ErrSubmissionInProgress = errors.New("submission already in progress")
)

// Config содержит настройки тестовых сессий
type Config struct {
	// TickInterval — реальный интервал между тиками обратного отсчёта.
	// Каждый тик уменьшает оставшееся время ровно на одну логическую секунду,
	// поэтому в тестах интервал можно сократить без искажения семантики.
	TickInterval time.Duration

	// DebounceWindow — период тишины после последней правки свободного
	// ответа перед записью в БД
	DebounceWindow time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		TickInterval:   time.Second,
		DebounceWindow: 2 * time.Second,
	}
}

// Dependencies содержит зависимости компонентов тестовой сессии
type Dependencies struct {
	AnswerRepo repository.AnswerRepository
	Events     EventSink
}

// AnswerValue представляет значение ответа: выбранный вариант (вопрос
// с вариантами) либо свободный текст. Заполнено ровно одно поле.
type AnswerValue struct {
	OptionID *uint
	Text     string
}

// IsOption проверяет, является ли значение выбором варианта
func (v AnswerValue) IsOption() bool {
	return v.OptionID != nil
}

// EventSink получает события жизненного цикла сессии (тики таймера,
// истечение времени, завершение). Реализуется websocket-менеджером;
// NoOpEventSink используется, когда поток событий не нужен.
type EventSink interface {
	SessionTick(userID, attemptID uint, remainingSec int)
	SessionTimeUp(userID, attemptID uint)
	SessionSubmitted(userID, attemptID uint, timeUp bool)
}

// NoOpEventSink — заглушка EventSink
type NoOpEventSink struct{}

func (NoOpEventSink) SessionTick(userID, attemptID uint, remainingSec int) {}
func (NoOpEventSink) SessionTimeUp(userID, attemptID uint)                {}
func (NoOpEventSink) SessionSubmitted(userID, attemptID uint, timeUp bool) {
}
