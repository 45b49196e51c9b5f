package repository

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// AssessmentRepository определяет методы для работы с итоговыми тестами
type AssessmentRepository interface {
	Create(assessment *entity.Assessment) error
	GetByID(id uint) (*entity.Assessment, error)
	// GetWithQuestions возвращает тест вместе с вопросами и их опциями
	GetWithQuestions(id uint) (*entity.Assessment, error)
	GetByCourseID(courseID uint) ([]entity.Assessment, error)
	Update(assessment *entity.Assessment) error
	Delete(id uint) error
}
