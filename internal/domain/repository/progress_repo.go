package repository

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// ProgressRepository определяет методы для работы с прогрессом просмотра видео
type ProgressRepository interface {
	// UpsertVideoProgress обновляет или создает запись прогресса по (user, video)
	UpsertVideoProgress(progress *entity.VideoProgress) error
	// GetByUserAndVideos возвращает записи прогресса пользователя для набора видео
	GetByUserAndVideos(userID uint, videoIDs []uint) ([]entity.VideoProgress, error)
	GetByUserAndVideo(userID, videoID uint) (*entity.VideoProgress, error)
}

// CertificateRepository определяет методы для работы с сертификатами
type CertificateRepository interface {
	Create(certificate *entity.Certificate) error
	GetByID(id uint) (*entity.Certificate, error)
	GetByUserAndCourse(userID, courseID uint) (*entity.Certificate, error)
	GetByUserID(userID uint) ([]entity.Certificate, error)
}
