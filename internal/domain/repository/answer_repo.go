package repository

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// AnswerRepository определяет методы для работы с ответами пользователей
type AnswerRepository interface {
	// Upsert записывает ответ для пары (attempt, question): обновляет
	// существующую строку либо вставляет новую. Повторная запись
	// перезаписывает значение, дубликаты не создаются.
	Upsert(answer *entity.Answer) error
	GetByAttemptID(attemptID uint) ([]entity.Answer, error)
	// CreateVideoQuizBatch вставляет ответы видео-квиза одной транзакцией
	CreateVideoQuizBatch(answers []entity.VideoQuizAnswer) error
}
