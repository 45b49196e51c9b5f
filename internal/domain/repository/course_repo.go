package repository

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// CourseRepository определяет методы для работы с курсами
type CourseRepository interface {
	Create(course *entity.Course) error
	GetByID(id uint) (*entity.Course, error)
	// GetWithVideos возвращает курс вместе с его видео, упорядоченными по позиции
	GetWithVideos(id uint) (*entity.Course, error)
	List(limit, offset int) ([]entity.Course, int64, error)
	Update(course *entity.Course) error
	Delete(id uint) error
}

// VideoRepository определяет методы для работы с видеоуроками
type VideoRepository interface {
	Create(video *entity.Video) error
	GetByID(id uint) (*entity.Video, error)
	GetByCourseID(courseID uint) ([]entity.Video, error)
	Update(video *entity.Video) error
	Delete(id uint) error
}
