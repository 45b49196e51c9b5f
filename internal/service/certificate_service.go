package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// CertificateService выдает сертификаты о прохождении курсов
type CertificateService struct {
	certificateRepo repository.CertificateRepository
	courseRepo      repository.CourseRepository
	assessmentRepo  repository.AssessmentRepository
	attemptRepo     repository.AttemptRepository
	userRepo        repository.UserRepository
	progressService *ProgressService
	emailService    EmailService
}

// NewCertificateService создает новый сервис сертификатов
func NewCertificateService(
	certificateRepo repository.CertificateRepository,
	courseRepo repository.CourseRepository,
	assessmentRepo repository.AssessmentRepository,
	attemptRepo repository.AttemptRepository,
	userRepo repository.UserRepository,
	progressService *ProgressService,
	emailService EmailService,
) *CertificateService {
	if emailService == nil {
		emailService = &NoopEmailService{}
	}
	return &CertificateService{
		certificateRepo: certificateRepo,
		courseRepo:      courseRepo,
		assessmentRepo:  assessmentRepo,
		attemptRepo:     attemptRepo,
		userRepo:        userRepo,
		progressService: progressService,
		emailService:    emailService,
	}
}

// Issue выдает сертификат пользователю за курс. Требования: все видео
// курса пройдены и по каждому итоговому тесту есть успешная попытка.
// Повторный вызов возвращает уже выданный сертификат.
func (s *CertificateService) Issue(ctx context.Context, userID, courseID uint) (*entity.Certificate, error) {
	existing, err := s.certificateRepo.GetByUserAndCourse(userID, courseID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	course, err := s.courseRepo.GetByID(courseID)
	if err != nil {
		return nil, err
	}

	progress, err := s.progressService.GetCourseProgress(userID, courseID)
	if err != nil {
		return nil, err
	}
	if !progress.IsComplete() {
		return nil, fmt.Errorf("%w: course videos are not fully completed", apperrors.ErrForbidden)
	}

	assessments, err := s.assessmentRepo.GetByCourseID(courseID)
	if err != nil {
		return nil, err
	}
	for _, assessment := range assessments {
		passed, err := s.hasPassedAttempt(userID, assessment.ID)
		if err != nil {
			return nil, err
		}
		if !passed {
			return nil, fmt.Errorf("%w: assessment %q is not passed", apperrors.ErrForbidden, assessment.Title)
		}
	}

	certificate := &entity.Certificate{
		UserID:            userID,
		CourseID:          courseID,
		CertificateNumber: uuid.New().String(),
		IssuedAt:          time.Now(),
	}
	if err := s.certificateRepo.Create(certificate); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Конкурентная выдача: возвращаем уже созданный сертификат
			return s.certificateRepo.GetByUserAndCourse(userID, courseID)
		}
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	log.Printf("[CertificateService] Сертификат %s выдан пользователю #%d за курс #%d",
		certificate.CertificateNumber, userID, courseID)

	// Письмо отправляется best-effort: сбой не отменяет выдачу
	s.sendEmail(ctx, userID, course.Title, certificate.CertificateNumber)

	return certificate, nil
}

// hasPassedAttempt проверяет, есть ли у пользователя успешная попытка по тесту.
// Тест без вопросов с вариантами не имеет численного результата; для него
// достаточно любой завершённой попытки.
func (s *CertificateService) hasPassedAttempt(userID, assessmentID uint) (bool, error) {
	attempts, err := s.attemptRepo.GetByUserAndAssessment(userID, assessmentID)
	if err != nil {
		return false, err
	}
	for _, attempt := range attempts {
		if !attempt.IsCompleted() {
			continue
		}
		if attempt.Passed == nil || *attempt.Passed {
			return true, nil
		}
	}
	return false, nil
}

func (s *CertificateService) sendEmail(ctx context.Context, userID uint, courseTitle, certificateNumber string) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		log.Printf("[CertificateService] Письмо о сертификате %s: пользователь не найден: %v", certificateNumber, err)
		return
	}
	if err := s.emailService.SendCertificate(ctx, user.Email, user.Username, courseTitle, certificateNumber); err != nil {
		log.Printf("[CertificateService] Письмо о сертификате %s не доставлено: %v", certificateNumber, err)
	}
}

// GetUserCertificates возвращает сертификаты пользователя
func (s *CertificateService) GetUserCertificates(userID uint) ([]entity.Certificate, error) {
	return s.certificateRepo.GetByUserID(userID)
}

// GetCertificate возвращает сертификат пользователя за курс
func (s *CertificateService) GetCertificate(userID, courseID uint) (*entity.Certificate, error) {
	return s.certificateRepo.GetByUserAndCourse(userID, courseID)
}
