package postgres

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// ProgressRepo реализует repository.ProgressRepository
type ProgressRepo struct {
	db *gorm.DB
}

// NewProgressRepo создает новый репозиторий прогресса
func NewProgressRepo(db *gorm.DB) *ProgressRepo {
	return &ProgressRepo{db: db}
}

// UpsertVideoProgress обновляет или создает запись прогресса по (user, video)
func (r *ProgressRepo) UpsertVideoProgress(progress *entity.VideoProgress) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"quiz_taken", "progress_percentage", "watched_at",
		}),
	}).Create(progress).Error
}

// GetByUserAndVideos возвращает записи прогресса пользователя для набора видео
func (r *ProgressRepo) GetByUserAndVideos(userID uint, videoIDs []uint) ([]entity.VideoProgress, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	var progress []entity.VideoProgress
	err := r.db.
		Where("user_id = ? AND video_id IN ?", userID, videoIDs).
		Find(&progress).Error
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// GetByUserAndVideo возвращает запись прогресса для одного видео
func (r *ProgressRepo) GetByUserAndVideo(userID, videoID uint) (*entity.VideoProgress, error) {
	var progress entity.VideoProgress
	err := r.db.
		Where("user_id = ? AND video_id = ?", userID, videoID).
		First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &progress, nil
}

// CertificateRepo реализует repository.CertificateRepository
type CertificateRepo struct {
	db *gorm.DB
}

// NewCertificateRepo создает новый репозиторий сертификатов
func NewCertificateRepo(db *gorm.DB) *CertificateRepo {
	return &CertificateRepo{db: db}
}

// Create создает сертификат. Повторная выдача на пару (user, course)
// упирается в уникальный индекс и возвращает apperrors.ErrConflict.
func (r *CertificateRepo) Create(certificate *entity.Certificate) error {
	err := r.db.Create(certificate).Error
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return apperrors.ErrConflict
	}
	return err
}

// GetByID возвращает сертификат по ID
func (r *CertificateRepo) GetByID(id uint) (*entity.Certificate, error) {
	var certificate entity.Certificate
	err := r.db.First(&certificate, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &certificate, nil
}

// GetByUserAndCourse возвращает сертификат пользователя за курс
func (r *CertificateRepo) GetByUserAndCourse(userID, courseID uint) (*entity.Certificate, error) {
	var certificate entity.Certificate
	err := r.db.
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&certificate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &certificate, nil
}

// GetByUserID возвращает все сертификаты пользователя
func (r *CertificateRepo) GetByUserID(userID uint) ([]entity.Certificate, error) {
	var certificates []entity.Certificate
	err := r.db.Where("user_id = ?", userID).Order("issued_at DESC").Find(&certificates).Error
	if err != nil {
		return nil, err
	}
	return certificates, nil
}
