package repository

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с вопросами и вариантами ответов
type QuestionRepository interface {
	Create(question *entity.Question) error
	CreateBatch(questions []entity.Question) error
	GetByID(id uint) (*entity.Question, error)
	// GetByVideoID возвращает вопросы видео-квиза, упорядоченные по позиции (без опций)
	GetByVideoID(videoID uint) ([]entity.Question, error)
	// GetByAssessmentID возвращает вопросы теста, упорядоченные по позиции (без опций)
	GetByAssessmentID(assessmentID uint) ([]entity.Question, error)
	Update(question *entity.Question) error
	Delete(id uint) error

	// Вторая фаза двухфазной загрузки: опции по множеству ID вопросов
	GetOptionsByQuestionIDs(questionIDs []uint) ([]entity.Option, error)
	// GetOptionsByQuestionID — одиночная выборка, используется как fallback
	// при ошибке пакетного запроса
	GetOptionsByQuestionID(questionID uint) ([]entity.Option, error)
}
