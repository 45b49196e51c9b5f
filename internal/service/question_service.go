package service

import (
	"fmt"
	"log"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// QuestionService предоставляет методы для работы с вопросами.
// Списки вопросов загружаются двухфазно: сначала сами вопросы, затем
// варианты ответов одним пакетным запросом по всем ID.
type QuestionService struct {
	questionRepo repository.QuestionRepository
	cacheRepo    repository.CacheRepository
	cacheTTL     time.Duration
}

// NewQuestionService создает новый сервис вопросов
func NewQuestionService(
	questionRepo repository.QuestionRepository,
	cacheRepo repository.CacheRepository,
	cacheTTL time.Duration,
) *QuestionService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &QuestionService{
		questionRepo: questionRepo,
		cacheRepo:    cacheRepo,
		cacheTTL:     cacheTTL,
	}
}

// GetVideoQuestions возвращает вопросы видео-квиза с вариантами ответов
func (s *QuestionService) GetVideoQuestions(videoID uint) ([]entity.Question, error) {
	cacheKey := fmt.Sprintf("questions:video:%d", videoID)
	if cached, ok := s.fromCache(cacheKey); ok {
		return cached, nil
	}

	questions, err := s.questionRepo.GetByVideoID(videoID)
	if err != nil {
		return nil, err
	}

	if err := s.attachOptions(questions); err != nil {
		return nil, err
	}

	s.toCache(cacheKey, questions)
	return questions, nil
}

// GetAssessmentQuestions возвращает вопросы итогового теста с вариантами ответов
func (s *QuestionService) GetAssessmentQuestions(assessmentID uint) ([]entity.Question, error) {
	cacheKey := fmt.Sprintf("questions:assessment:%d", assessmentID)
	if cached, ok := s.fromCache(cacheKey); ok {
		return cached, nil
	}

	questions, err := s.questionRepo.GetByAssessmentID(assessmentID)
	if err != nil {
		return nil, err
	}

	if err := s.attachOptions(questions); err != nil {
		return nil, err
	}

	s.toCache(cacheKey, questions)
	return questions, nil
}

// GetVideoQuestionsForGrading читает вопросы видео-квиза напрямую из БД,
// минуя кеш: в кешированном представлении нет флагов правильности.
func (s *QuestionService) GetVideoQuestionsForGrading(videoID uint) ([]entity.Question, error) {
	questions, err := s.questionRepo.GetByVideoID(videoID)
	if err != nil {
		return nil, err
	}
	if err := s.attachOptions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// attachOptions — вторая фаза загрузки: варианты ответов выбираются одним
// запросом по всем ID вопросов и раскладываются по вопросам. При ошибке
// пакетного запроса выполняется поштучная выборка.
func (s *QuestionService) attachOptions(questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}

	options, err := s.questionRepo.GetOptionsByQuestionIDs(ids)
	if err != nil {
		log.Printf("[QuestionService] Пакетная выборка вариантов не удалась (%v), переход на поштучную", err)
		return s.attachOptionsOneByOne(questions)
	}

	byQuestion := make(map[uint][]entity.Option, len(questions))
	for _, o := range options {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], o)
	}
	for i := range questions {
		questions[i].Options = byQuestion[questions[i].ID]
	}
	return nil
}

// attachOptionsOneByOne — запасной путь: варианты по одному вопросу.
// Неудача на отдельном вопросе не фатальна: вопрос остаётся без
// вариантов, остальные загружаются дальше.
func (s *QuestionService) attachOptionsOneByOne(questions []entity.Question) error {
	for i := range questions {
		options, err := s.questionRepo.GetOptionsByQuestionID(questions[i].ID)
		if err != nil {
			log.Printf("[QuestionService] Варианты вопроса #%d не загружены: %v", questions[i].ID, err)
			questions[i].Options = nil
			continue
		}
		questions[i].Options = options
	}
	return nil
}

// fromCache читает список вопросов из кеша. Кеш хранит клиентское
// представление (без флагов правильности), поэтому для подсчёта очков
// вопросы всегда перечитываются из БД, а не из кеша.
func (s *QuestionService) fromCache(key string) ([]entity.Question, bool) {
	if s.cacheRepo == nil {
		return nil, false
	}
	var questions []entity.Question
	if err := s.cacheRepo.GetJSON(key, &questions); err != nil {
		return nil, false
	}
	return questions, true
}

func (s *QuestionService) toCache(key string, questions []entity.Question) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.SetJSON(key, questions, s.cacheTTL); err != nil {
		log.Printf("[QuestionService] Не удалось закешировать %s: %v", key, err)
	}
}

// invalidateCache сбрасывает кеш списка вопросов после изменения
func (s *QuestionService) invalidateCache(question *entity.Question) {
	if s.cacheRepo == nil {
		return
	}
	if question.VideoID != nil {
		s.cacheRepo.Delete(fmt.Sprintf("questions:video:%d", *question.VideoID))
	}
	if question.AssessmentID != nil {
		s.cacheRepo.Delete(fmt.Sprintf("questions:assessment:%d", *question.AssessmentID))
	}
}

// CreateQuestion создает вопрос с вариантами ответов
func (s *QuestionService) CreateQuestion(question *entity.Question) (*entity.Question, error) {
	if err := validateQuestion(question); err != nil {
		return nil, err
	}

	if err := s.questionRepo.Create(question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.invalidateCache(question)
	return question, nil
}

// CreateQuestions создает пакет вопросов одной транзакцией. Валидация
// выполняется до записи: невалидный вопрос отменяет весь пакет.
func (s *QuestionService) CreateQuestions(questions []entity.Question) ([]entity.Question, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: at least one question is required", apperrors.ErrValidation)
	}
	for i := range questions {
		if err := validateQuestion(&questions[i]); err != nil {
			return nil, err
		}
	}

	if err := s.questionRepo.CreateBatch(questions); err != nil {
		return nil, fmt.Errorf("failed to create questions: %w", err)
	}

	for i := range questions {
		s.invalidateCache(&questions[i])
	}
	return questions, nil
}

// UpdateQuestion обновляет вопрос и его варианты
func (s *QuestionService) UpdateQuestion(question *entity.Question) (*entity.Question, error) {
	if err := validateQuestion(question); err != nil {
		return nil, err
	}

	if err := s.questionRepo.Update(question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.invalidateCache(question)
	return question, nil
}

// DeleteQuestion удаляет вопрос
func (s *QuestionService) DeleteQuestion(questionID uint) error {
	question, err := s.questionRepo.GetByID(questionID)
	if err != nil {
		return err
	}
	if err := s.questionRepo.Delete(questionID); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	s.invalidateCache(question)
	return nil
}

// validateQuestion проверяет инварианты вопроса: привязка ровно к одному
// источнику (видео или тест), у вопроса с вариантами минимум два варианта
// и ровно один правильный.
func validateQuestion(q *entity.Question) error {
	if q.Text == "" {
		return fmt.Errorf("%w: question text is required", apperrors.ErrValidation)
	}
	if (q.VideoID == nil) == (q.AssessmentID == nil) {
		return fmt.Errorf("%w: question must belong to exactly one of video or assessment", apperrors.ErrValidation)
	}

	switch q.Type {
	case entity.QuestionTypeMultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: multiple choice question requires at least 2 options", apperrors.ErrValidation)
		}
		correct := 0
		for _, o := range q.Options {
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return fmt.Errorf("%w: multiple choice question requires exactly one correct option", apperrors.ErrValidation)
		}
	case entity.QuestionTypeEssay, entity.QuestionTypeShortAnswer:
		if len(q.Options) > 0 {
			return fmt.Errorf("%w: free text question cannot have options", apperrors.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown question type %q", apperrors.ErrValidation, q.Type)
	}
	return nil
}
