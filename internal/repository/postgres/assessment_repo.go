package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// AssessmentRepo реализует repository.AssessmentRepository
type AssessmentRepo struct {
	db *gorm.DB
}

// NewAssessmentRepo создает новый репозиторий итоговых тестов
func NewAssessmentRepo(db *gorm.DB) *AssessmentRepo {
	return &AssessmentRepo{db: db}
}

// Create создает новый тест
func (r *AssessmentRepo) Create(assessment *entity.Assessment) error {
	return r.db.Create(assessment).Error
}

// GetByID возвращает тест по ID
func (r *AssessmentRepo) GetByID(id uint) (*entity.Assessment, error) {
	var assessment entity.Assessment
	err := r.db.First(&assessment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &assessment, nil
}

// GetWithQuestions возвращает тест вместе с вопросами и их опциями
func (r *AssessmentRepo) GetWithQuestions(id uint) (*entity.Assessment, error) {
	var assessment entity.Assessment
	err := r.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position, id")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position, id")
		}).
		First(&assessment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &assessment, nil
}

// GetByCourseID возвращает все тесты курса
func (r *AssessmentRepo) GetByCourseID(courseID uint) ([]entity.Assessment, error) {
	var assessments []entity.Assessment
	err := r.db.Where("course_id = ?", courseID).Order("id").Find(&assessments).Error
	if err != nil {
		return nil, err
	}
	return assessments, nil
}

// Update обновляет информацию о тесте
func (r *AssessmentRepo) Update(assessment *entity.Assessment) error {
	return r.db.Save(assessment).Error
}

// Delete удаляет тест
func (r *AssessmentRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Assessment{}, id).Error
}
