package service

import (
	"fmt"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// AssessmentService предоставляет методы для работы с итоговыми тестами
type AssessmentService struct {
	assessmentRepo repository.AssessmentRepository
	courseRepo     repository.CourseRepository
}

// NewAssessmentService создает новый сервис тестов
func NewAssessmentService(
	assessmentRepo repository.AssessmentRepository,
	courseRepo repository.CourseRepository,
) *AssessmentService {
	return &AssessmentService{
		assessmentRepo: assessmentRepo,
		courseRepo:     courseRepo,
	}
}

// CreateAssessment создает итоговый тест курса
func (s *AssessmentService) CreateAssessment(courseID uint, title, description string, timeLimitMinutes, passingPercentage int) (*entity.Assessment, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}
	if timeLimitMinutes < 0 {
		return nil, fmt.Errorf("%w: time limit cannot be negative", apperrors.ErrValidation)
	}
	if passingPercentage < 0 || passingPercentage > 100 {
		return nil, fmt.Errorf("%w: passing percentage must be between 0 and 100", apperrors.ErrValidation)
	}

	// Курс должен существовать
	if _, err := s.courseRepo.GetByID(courseID); err != nil {
		return nil, err
	}

	if passingPercentage == 0 {
		passingPercentage = entity.DefaultPassingPercentage
	}

	assessment := &entity.Assessment{
		CourseID:          courseID,
		Title:             title,
		Description:       description,
		TimeLimitMinutes:  timeLimitMinutes,
		PassingPercentage: passingPercentage,
	}
	if err := s.assessmentRepo.Create(assessment); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}
	return assessment, nil
}

// GetAssessment возвращает тест по ID (без вопросов)
func (s *AssessmentService) GetAssessment(assessmentID uint) (*entity.Assessment, error) {
	return s.assessmentRepo.GetByID(assessmentID)
}

// GetCourseAssessments возвращает тесты курса
func (s *AssessmentService) GetCourseAssessments(courseID uint) ([]entity.Assessment, error) {
	return s.assessmentRepo.GetByCourseID(courseID)
}

// UpdateAssessment обновляет параметры теста
func (s *AssessmentService) UpdateAssessment(assessmentID uint, title, description string, timeLimitMinutes, passingPercentage int) (*entity.Assessment, error) {
	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if err != nil {
		return nil, err
	}

	if title != "" {
		assessment.Title = title
	}
	assessment.Description = description
	if timeLimitMinutes >= 0 {
		assessment.TimeLimitMinutes = timeLimitMinutes
	}
	if passingPercentage > 0 && passingPercentage <= 100 {
		assessment.PassingPercentage = passingPercentage
	}

	if err := s.assessmentRepo.Update(assessment); err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}
	return assessment, nil
}

// DeleteAssessment удаляет тест
func (s *AssessmentService) DeleteAssessment(assessmentID uint) error {
	return s.assessmentRepo.Delete(assessmentID)
}
