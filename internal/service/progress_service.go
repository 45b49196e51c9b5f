package service

import (
	"fmt"
	"log"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// ProgressService предоставляет единое производное представление прогресса
// пользователя по курсу. Все потребители (каталог, страница курса, выдача
// сертификата) читают прогресс через него, а не пересчитывают сами.
type ProgressService struct {
	progressRepo    repository.ProgressRepository
	courseRepo      repository.CourseRepository
	answerRepo      repository.AnswerRepository
	questionService *QuestionService
}

// NewProgressService создает новый сервис прогресса
func NewProgressService(
	progressRepo repository.ProgressRepository,
	courseRepo repository.CourseRepository,
	answerRepo repository.AnswerRepository,
	questionService *QuestionService,
) *ProgressService {
	return &ProgressService{
		progressRepo:    progressRepo,
		courseRepo:      courseRepo,
		answerRepo:      answerRepo,
		questionService: questionService,
	}
}

// VideoProgressView — прогресс по одному видео курса
type VideoProgressView struct {
	VideoID    uint   `json:"video_id"`
	Title      string `json:"title"`
	Position   int    `json:"position"`
	Watched    bool   `json:"watched"`
	QuizTaken  bool   `json:"quiz_taken"`
	Percentage int    `json:"percentage"`
}

// CourseProgressView — сводный прогресс пользователя по курсу
type CourseProgressView struct {
	CourseID             uint                `json:"course_id"`
	Videos               []VideoProgressView `json:"videos"`
	CompletedVideos      int                 `json:"completed_videos"`
	TotalVideos          int                 `json:"total_videos"`
	CompletionPercentage int                 `json:"completion_percentage"`
}

// IsComplete проверяет, пройдены ли все видео курса
func (v *CourseProgressView) IsComplete() bool {
	return v.TotalVideos > 0 && v.CompletedVideos == v.TotalVideos
}

// GetCourseProgress возвращает прогресс пользователя по курсу: флаги
// по каждому видео и общий процент прохождения
func (s *ProgressService) GetCourseProgress(userID, courseID uint) (*CourseProgressView, error) {
	course, err := s.courseRepo.GetWithVideos(courseID)
	if err != nil {
		return nil, err
	}

	videoIDs := make([]uint, 0, len(course.Videos))
	for _, v := range course.Videos {
		videoIDs = append(videoIDs, v.ID)
	}

	records, err := s.progressRepo.GetByUserAndVideos(userID, videoIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load video progress: %w", err)
	}
	byVideo := make(map[uint]entity.VideoProgress, len(records))
	for _, r := range records {
		byVideo[r.VideoID] = r
	}

	view := &CourseProgressView{
		CourseID:    courseID,
		Videos:      make([]VideoProgressView, 0, len(course.Videos)),
		TotalVideos: len(course.Videos),
	}
	for _, video := range course.Videos {
		row := VideoProgressView{
			VideoID:  video.ID,
			Title:    video.Title,
			Position: video.Position,
		}
		if record, ok := byVideo[video.ID]; ok {
			row.Watched = true
			row.QuizTaken = record.QuizTaken
			row.Percentage = record.ProgressPercentage
			// Видео считается пройденным после просмотра и сдачи квиза
			if record.QuizTaken && record.ProgressPercentage >= 100 {
				view.CompletedVideos++
			}
		}
		view.Videos = append(view.Videos, row)
	}

	if view.TotalVideos > 0 {
		view.CompletionPercentage = view.CompletedVideos * 100 / view.TotalVideos
	}
	return view, nil
}

// MarkVideoWatched отмечает просмотр видео (upsert по паре user/video)
func (s *ProgressService) MarkVideoWatched(userID, videoID uint, percentage int) error {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	existing, err := s.progressRepo.GetByUserAndVideo(userID, videoID)
	if err == nil && existing.ProgressPercentage > percentage {
		// Прогресс не откатывается назад
		percentage = existing.ProgressPercentage
	}

	progress := &entity.VideoProgress{
		UserID:             userID,
		VideoID:            videoID,
		ProgressPercentage: percentage,
		WatchedAt:          time.Now(),
	}
	if existing != nil {
		progress.QuizTaken = existing.QuizTaken
	}
	return s.progressRepo.UpsertVideoProgress(progress)
}

// VideoQuizSubmission — ответы пользователя на видео-квиз
type VideoQuizSubmission struct {
	Answers map[uint]uint // questionID -> optionID
}

// VideoQuizResult — итог сдачи видео-квиза
type VideoQuizResult struct {
	CorrectAnswers int `json:"correct_answers"`
	TotalQuestions int `json:"total_questions"`
}

// CompleteVideoQuiz принимает ответы видео-квиза, проверяет их, сохраняет
// и отмечает видео пройденным (quiz_taken, 100%)
func (s *ProgressService) CompleteVideoQuiz(userID, videoID uint, submission VideoQuizSubmission) (*VideoQuizResult, error) {
	questions, err := s.questionService.GetVideoQuestionsForGrading(videoID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: video has no quiz", apperrors.ErrNotFound)
	}

	result := &VideoQuizResult{TotalQuestions: len(questions)}
	rows := make([]entity.VideoQuizAnswer, 0, len(questions))
	for _, q := range questions {
		optionID, answered := submission.Answers[q.ID]
		row := entity.VideoQuizAnswer{
			UserID:     userID,
			VideoID:    videoID,
			QuestionID: q.ID,
		}
		if answered {
			if !q.IsValidOption(optionID) {
				return nil, fmt.Errorf("%w: option %d does not belong to question %d", apperrors.ErrValidation, optionID, q.ID)
			}
			id := optionID
			row.SelectedOptionID = &id
			if correctID, ok := q.CorrectOptionID(); ok && optionID == correctID {
				row.IsCorrect = true
				result.CorrectAnswers++
			}
		}
		rows = append(rows, row)
	}

	if err := s.answerRepo.CreateVideoQuizBatch(rows); err != nil {
		return nil, fmt.Errorf("failed to save quiz answers: %w", err)
	}

	progress := &entity.VideoProgress{
		UserID:             userID,
		VideoID:            videoID,
		QuizTaken:          true,
		ProgressPercentage: 100,
		WatchedAt:          time.Now(),
	}
	if err := s.progressRepo.UpsertVideoProgress(progress); err != nil {
		return nil, fmt.Errorf("failed to update video progress: %w", err)
	}

	log.Printf("[ProgressService] Видео-квиз #%d пользователя #%d сдан: %d/%d",
		videoID, userID, result.CorrectAnswers, result.TotalQuestions)
	return result, nil
}
