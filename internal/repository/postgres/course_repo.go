package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// CourseRepo реализует repository.CourseRepository
type CourseRepo struct {
	db *gorm.DB
}

// NewCourseRepo создает новый репозиторий курсов
func NewCourseRepo(db *gorm.DB) *CourseRepo {
	return &CourseRepo{db: db}
}

// Create создает новый курс
func (r *CourseRepo) Create(course *entity.Course) error {
	return r.db.Create(course).Error
}

// GetByID возвращает курс по ID
func (r *CourseRepo) GetByID(id uint) (*entity.Course, error) {
	var course entity.Course
	err := r.db.First(&course, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &course, nil
}

// GetWithVideos возвращает курс вместе с его видео, упорядоченными по позиции
func (r *CourseRepo) GetWithVideos(id uint) (*entity.Course, error) {
	var course entity.Course
	err := r.db.Preload("Videos", func(db *gorm.DB) *gorm.DB {
		return db.Order("position, id")
	}).First(&course, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &course, nil
}

// List возвращает страницу курсов и общее количество
func (r *CourseRepo) List(limit, offset int) ([]entity.Course, int64, error) {
	var courses []entity.Course
	var total int64

	if err := r.db.Model(&entity.Course{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("id").Limit(limit).Offset(offset).Find(&courses).Error
	if err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

// Update обновляет информацию о курсе
func (r *CourseRepo) Update(course *entity.Course) error {
	return r.db.Save(course).Error
}

// Delete удаляет курс
func (r *CourseRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Course{}, id).Error
}

// VideoRepo реализует repository.VideoRepository
type VideoRepo struct {
	db *gorm.DB
}

// NewVideoRepo создает новый репозиторий видеоуроков
func NewVideoRepo(db *gorm.DB) *VideoRepo {
	return &VideoRepo{db: db}
}

// Create создает новый видеоурок
func (r *VideoRepo) Create(video *entity.Video) error {
	return r.db.Create(video).Error
}

// GetByID возвращает видеоурок по ID
func (r *VideoRepo) GetByID(id uint) (*entity.Video, error) {
	var video entity.Video
	err := r.db.First(&video, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &video, nil
}

// GetByCourseID возвращает все видео курса, упорядоченные по позиции
func (r *VideoRepo) GetByCourseID(courseID uint) ([]entity.Video, error) {
	var videos []entity.Video
	err := r.db.Where("course_id = ?", courseID).Order("position, id").Find(&videos).Error
	if err != nil {
		return nil, err
	}
	return videos, nil
}

// Update обновляет информацию о видеоуроке
func (r *VideoRepo) Update(video *entity.Video) error {
	return r.db.Save(video).Error
}

// Delete удаляет видеоурок
func (r *VideoRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Video{}, id).Error
}
