package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// Create создает новый вопрос вместе с его вариантами ответа
func (r *QuestionRepo) Create(question *entity.Question) error {
	return r.db.Create(question).Error
}

// CreateBatch создает пакет вопросов в одной транзакции
func (r *QuestionRepo) CreateBatch(questions []entity.Question) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&questions).Error
	})
}

// GetByID возвращает вопрос по ID вместе с опциями
func (r *QuestionRepo) GetByID(id uint) (*entity.Question, error) {
	var question entity.Question
	err := r.db.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("position, id")
	}).First(&question, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

// GetByVideoID возвращает вопросы видео-квиза без опций.
// Опции загружаются второй фазой через GetOptionsByQuestionIDs.
func (r *QuestionRepo) GetByVideoID(videoID uint) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.Where("video_id = ?", videoID).Order("position, id").Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// GetByAssessmentID возвращает вопросы итогового теста без опций
func (r *QuestionRepo) GetByAssessmentID(assessmentID uint) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.Where("assessment_id = ?", assessmentID).Order("position, id").Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// Update обновляет информацию о вопросе
func (r *QuestionRepo) Update(question *entity.Question) error {
	return r.db.Save(question).Error
}

// Delete удаляет вопрос вместе с опциями
func (r *QuestionRepo) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&entity.Option{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Question{}, id).Error
	})
}

// GetOptionsByQuestionIDs возвращает опции для набора вопросов одним запросом
func (r *QuestionRepo) GetOptionsByQuestionIDs(questionIDs []uint) ([]entity.Option, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	var options []entity.Option
	err := r.db.Where("question_id IN ?", questionIDs).Order("question_id, position, id").Find(&options).Error
	if err != nil {
		return nil, err
	}
	return options, nil
}

// GetOptionsByQuestionID возвращает опции одного вопроса
func (r *QuestionRepo) GetOptionsByQuestionID(questionID uint) ([]entity.Option, error) {
	var options []entity.Option
	err := r.db.Where("question_id = ?", questionID).Order("position, id").Find(&options).Error
	if err != nil {
		return nil, err
	}
	return options, nil
}
