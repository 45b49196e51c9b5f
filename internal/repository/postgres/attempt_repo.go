package postgres

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// uniqueViolation — код ошибки PostgreSQL для нарушения уникального индекса
const uniqueViolation = "23505"

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// CreateNext создает попытку со следующим номером для пары (user, assessment).
// Номер — max(attempt_number)+1, при отсутствии попыток — 1. Гонка двух
// одновременных стартов разрешается уникальным индексом: проигравшая вставка
// получает 23505 и повторяет вычисление номера.
func (r *AttemptRepo) CreateNext(userID, assessmentID uint) (*entity.Attempt, error) {
	const maxRetries = 3

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		var maxNumber int
		err := r.db.Model(&entity.Attempt{}).
			Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
			Select("COALESCE(MAX(attempt_number), 0)").
			Scan(&maxNumber).Error
		if err != nil {
			return nil, err
		}

		attempt := &entity.Attempt{
			UserID:        userID,
			AssessmentID:  assessmentID,
			AttemptNumber: maxNumber + 1,
			Status:        entity.AttemptStatusInProgress,
			StartedAt:     time.Now(),
		}

		err = r.db.Create(attempt).Error
		if err == nil {
			return attempt, nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			log.Printf("[AttemptRepo] Гонка номеров попыток для user #%d, assessment #%d, повтор", userID, assessmentID)
			lastErr = err
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to allocate attempt number after %d retries: %w", maxRetries, lastErr)
}

// GetByID возвращает попытку по ID
func (r *AttemptRepo) GetByID(id uint) (*entity.Attempt, error) {
	var attempt entity.Attempt
	err := r.db.First(&attempt, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetInProgress возвращает незавершённую попытку пользователя для теста
func (r *AttemptRepo) GetInProgress(userID, assessmentID uint) (*entity.Attempt, error) {
	var attempt entity.Attempt
	err := r.db.
		Where("user_id = ? AND assessment_id = ? AND status = ?",
			userID, assessmentID, entity.AttemptStatusInProgress).
		Order("attempt_number DESC").
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetByUserAndAssessment возвращает все попытки пользователя для теста
func (r *AttemptRepo) GetByUserAndAssessment(userID, assessmentID uint) ([]entity.Attempt, error) {
	var attempts []entity.Attempt
	err := r.db.
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Order("attempt_number").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// GetByAssessmentID возвращает все попытки по тесту (для экспорта результатов)
func (r *AttemptRepo) GetByAssessmentID(assessmentID uint) ([]entity.Attempt, error) {
	var attempts []entity.Attempt
	err := r.db.
		Where("assessment_id = ?", assessmentID).
		Order("user_id, attempt_number").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// Complete переводит попытку in_progress -> completed ровно один раз.
// Условие по статусу в WHERE гарантирует однократность перехода:
// повторное завершение не находит строку и возвращает ErrConflict.
func (r *AttemptRepo) Complete(attemptID uint, finishedAt time.Time, score *int, passed *bool, timeUp bool) error {
	result := r.db.Model(&entity.Attempt{}).
		Where("id = ? AND status = ?", attemptID, entity.AttemptStatusInProgress).
		Updates(map[string]interface{}{
			"status":      entity.AttemptStatusCompleted,
			"finished_at": finishedAt,
			"score":       score,
			"passed":      passed,
			"time_up":     timeUp,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}
