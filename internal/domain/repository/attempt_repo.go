package repository

import (
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
)

// AttemptRepository определяет методы для работы с попытками прохождения тестов
type AttemptRepository interface {
	// CreateNext создает новую попытку со следующим номером для пары (user, assessment).
	// Номер вычисляется атомарно внутри транзакции: max(attempt_number)+1, либо 1.
	CreateNext(userID, assessmentID uint) (*entity.Attempt, error)
	GetByID(id uint) (*entity.Attempt, error)
	// GetInProgress возвращает незавершённую попытку пользователя для теста, если есть
	GetInProgress(userID, assessmentID uint) (*entity.Attempt, error)
	GetByUserAndAssessment(userID, assessmentID uint) ([]entity.Attempt, error)
	GetByAssessmentID(assessmentID uint) ([]entity.Attempt, error)
	// Complete переводит попытку in_progress -> completed ровно один раз.
	// Возвращает apperrors.ErrConflict, если попытка уже завершена.
	Complete(attemptID uint, finishedAt time.Time, score *int, passed *bool, timeUp bool) error
}
