package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// courseCacheTTL — время жизни кеша карточки курса. Карточка меняется
// только действиями администратора, поэтому TTL короткий и не критичен.
const courseCacheTTL = 5 * time.Minute

// CourseService предоставляет методы для работы с курсами и видеоуроками
type CourseService struct {
	courseRepo repository.CourseRepository
	videoRepo  repository.VideoRepository
	cacheRepo  repository.CacheRepository
}

// NewCourseService создает новый сервис курсов
func NewCourseService(
	courseRepo repository.CourseRepository,
	videoRepo repository.VideoRepository,
	cacheRepo repository.CacheRepository,
) *CourseService {
	return &CourseService{
		courseRepo: courseRepo,
		videoRepo:  videoRepo,
		cacheRepo:  cacheRepo,
	}
}

// CreateCourse создает новый курс
func (s *CourseService) CreateCourse(title, description, thumbnail string) (*entity.Course, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}

	course := &entity.Course{
		Title:       title,
		Description: description,
		Thumbnail:   thumbnail,
	}
	if err := s.courseRepo.Create(course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	return course, nil
}

// GetCourse возвращает курс с видео, упорядоченными по позиции.
// Карточка кешируется: каталог читается гораздо чаще, чем меняется.
func (s *CourseService) GetCourse(courseID uint) (*entity.Course, error) {
	key := courseCacheKey(courseID)
	if s.cacheRepo != nil {
		var cached entity.Course
		if err := s.cacheRepo.GetJSON(key, &cached); err == nil {
			return &cached, nil
		}
	}

	course, err := s.courseRepo.GetWithVideos(courseID)
	if err != nil {
		return nil, err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(key, course, courseCacheTTL); err != nil {
			log.Printf("[CourseService] Не удалось закешировать курс #%d: %v", courseID, err)
		}
	}
	return course, nil
}

// ListCourses возвращает страницу курсов и общее количество
func (s *CourseService) ListCourses(page, pageSize int) ([]entity.Course, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.courseRepo.List(pageSize, (page-1)*pageSize)
}

// UpdateCourse обновляет данные курса
func (s *CourseService) UpdateCourse(courseID uint, title, description, thumbnail string) (*entity.Course, error) {
	course, err := s.courseRepo.GetByID(courseID)
	if err != nil {
		return nil, err
	}

	if title != "" {
		course.Title = title
	}
	course.Description = description
	course.Thumbnail = thumbnail

	if err := s.courseRepo.Update(course); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	s.invalidateCourse(courseID)
	return course, nil
}

// DeleteCourse удаляет курс
func (s *CourseService) DeleteCourse(courseID uint) error {
	if err := s.courseRepo.Delete(courseID); err != nil {
		return err
	}
	s.invalidateCourse(courseID)
	return nil
}

// AddVideo добавляет видеоурок к курсу
func (s *CourseService) AddVideo(courseID uint, title, youtubeVideoID, about, thumbnail string, position int) (*entity.Video, error) {
	if title == "" || youtubeVideoID == "" {
		return nil, fmt.Errorf("%w: title and youtube_video_id are required", apperrors.ErrValidation)
	}

	// Курс должен существовать
	if _, err := s.courseRepo.GetByID(courseID); err != nil {
		return nil, err
	}

	video := &entity.Video{
		CourseID:       courseID,
		Title:          title,
		YouTubeVideoID: youtubeVideoID,
		About:          about,
		Thumbnail:      thumbnail,
		Position:       position,
	}
	if err := s.videoRepo.Create(video); err != nil {
		return nil, fmt.Errorf("failed to create video: %w", err)
	}

	s.invalidateCourse(courseID)
	log.Printf("[CourseService] Видео #%d добавлено к курсу #%d", video.ID, courseID)
	return video, nil
}

// GetVideo возвращает видеоурок по ID
func (s *CourseService) GetVideo(videoID uint) (*entity.Video, error) {
	return s.videoRepo.GetByID(videoID)
}

// GetVideoInCourse возвращает видеоурок, проверяя его принадлежность курсу
func (s *CourseService) GetVideoInCourse(courseID, videoID uint) (*entity.Video, error) {
	video, err := s.videoRepo.GetByID(videoID)
	if err != nil {
		return nil, err
	}
	if video.CourseID != courseID {
		return nil, fmt.Errorf("%w: video does not belong to course", apperrors.ErrNotFound)
	}
	return video, nil
}

// UpdateVideo обновляет данные видеоурока
func (s *CourseService) UpdateVideo(videoID uint, title, youtubeVideoID, about, thumbnail string, position int) (*entity.Video, error) {
	video, err := s.videoRepo.GetByID(videoID)
	if err != nil {
		return nil, err
	}

	if title != "" {
		video.Title = title
	}
	if youtubeVideoID != "" {
		video.YouTubeVideoID = youtubeVideoID
	}
	video.About = about
	video.Thumbnail = thumbnail
	video.Position = position

	if err := s.videoRepo.Update(video); err != nil {
		return nil, fmt.Errorf("failed to update video: %w", err)
	}
	s.invalidateCourse(video.CourseID)
	return video, nil
}

// DeleteVideo удаляет видеоурок
func (s *CourseService) DeleteVideo(videoID uint) error {
	video, err := s.videoRepo.GetByID(videoID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to load video: %w", err)
	}

	if err := s.videoRepo.Delete(videoID); err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	s.invalidateCourse(video.CourseID)
	return nil
}

func courseCacheKey(courseID uint) string {
	return fmt.Sprintf("course:%d", courseID)
}

func (s *CourseService) invalidateCourse(courseID uint) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Delete(courseCacheKey(courseID)); err != nil {
		log.Printf("[CourseService] Не удалось сбросить кеш курса #%d: %v", courseID, err)
	}
}
