package postgres

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/lms-api/internal/domain/entity"
)

// AnswerRepo реализует repository.AnswerRepository
type AnswerRepo struct {
	db *gorm.DB
}

// NewAnswerRepo создает новый репозиторий ответов
func NewAnswerRepo(db *gorm.DB) *AnswerRepo {
	return &AnswerRepo{db: db}
}

// Upsert записывает ответ для пары (attempt, question).
// Сначала пытаемся обновить существующую строку; если её нет — вставляем.
// Гонка двух одновременных вставок разрешается уникальным индексом:
// проигравшая вставка получает 23505 и повторяется как update.
func (r *AnswerRepo) Upsert(answer *entity.Answer) error {
	updates := map[string]interface{}{
		"selected_option_id": answer.SelectedOptionID,
		"answer_text":        answer.AnswerText,
	}

	result := r.db.Model(&entity.Answer{}).
		Where("attempt_id = ? AND question_id = ?", answer.AttemptID, answer.QuestionID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	err := r.db.Create(answer).Error
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		// Параллельная вставка успела раньше — дописываем значение поверх
		return r.db.Model(&entity.Answer{}).
			Where("attempt_id = ? AND question_id = ?", answer.AttemptID, answer.QuestionID).
			Updates(updates).Error
	}
	return err
}

// GetByAttemptID возвращает все ответы попытки
func (r *AnswerRepo) GetByAttemptID(attemptID uint) ([]entity.Answer, error) {
	var answers []entity.Answer
	err := r.db.Where("attempt_id = ?", attemptID).Order("question_id").Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

// CreateVideoQuizBatch вставляет ответы видео-квиза одной транзакцией
func (r *AnswerRepo) CreateVideoQuizBatch(answers []entity.VideoQuizAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&answers).Error
	})
}
