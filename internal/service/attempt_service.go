package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/internal/service/testsession"
)

// AttemptService управляет жизненным циклом попыток прохождения тестов:
// старт, восстановление после перезапуска, приём ответов, уход с теста.
type AttemptService struct {
	attemptRepo     repository.AttemptRepository
	assessmentRepo  repository.AssessmentRepository
	answerRepo      repository.AnswerRepository
	questionService *QuestionService
	sessions        *testsession.Store
}

// NewAttemptService создает новый сервис попыток
func NewAttemptService(
	attemptRepo repository.AttemptRepository,
	assessmentRepo repository.AssessmentRepository,
	answerRepo repository.AnswerRepository,
	questionService *QuestionService,
	sessions *testsession.Store,
) *AttemptService {
	return &AttemptService{
		attemptRepo:     attemptRepo,
		assessmentRepo:  assessmentRepo,
		answerRepo:      answerRepo,
		questionService: questionService,
		sessions:        sessions,
	}
}

// AttemptState — активная попытка вместе с вопросами и сохранёнными ответами
type AttemptState struct {
	Attempt      *entity.Attempt      `json:"attempt"`
	Assessment   *entity.Assessment   `json:"assessment"`
	Questions    []entity.Question    `json:"questions"`
	Answers      []entity.Answer      `json:"answers"`
	RemainingSec int                  `json:"remaining_sec"`
	Timed        bool                 `json:"timed"`
}

// Start начинает новую попытку прохождения теста. Незавершённая попытка
// того же пользователя по тому же тесту не блокирует старт: её сессия
// перезаписывается, а номер новой попытки берётся следующим по порядку.
func (s *AttemptService) Start(ctx context.Context, userID, assessmentID uint) (*AttemptState, error) {
	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if err != nil {
		return nil, err
	}

	attempt, err := s.attemptRepo.CreateNext(userID, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	questions, err := s.questionService.GetAssessmentQuestions(assessmentID)
	if err != nil {
		return nil, err
	}

	session := s.sessions.Start(attempt.ID, assessmentID, userID,
		time.Duration(assessment.TimeLimitMinutes)*time.Minute)

	log.Printf("[AttemptService] Попытка #%d (№%d) пользователя #%d по тесту #%d начата",
		attempt.ID, attempt.AttemptNumber, userID, assessmentID)

	return &AttemptState{
		Attempt:      attempt,
		Assessment:   assessment,
		Questions:    questions,
		Answers:      []entity.Answer{},
		RemainingSec: session.Snapshot().RemainingSec,
		Timed:        assessment.IsTimed(),
	}, nil
}

// Resume восстанавливает незавершённую попытку: вопросы, уже сохранённые
// ответы и остаток времени. Если сессии нет в памяти (перезапуск сервера),
// она пересоздаётся с остатком, вычисленным от момента старта попытки.
func (s *AttemptService) Resume(ctx context.Context, userID, assessmentID uint) (*AttemptState, error) {
	attempt, err := s.attemptRepo.GetInProgress(userID, assessmentID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.assessmentRepo.GetByID(assessmentID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questionService.GetAssessmentQuestions(assessmentID)
	if err != nil {
		return nil, err
	}

	answers, err := s.answerRepo.GetByAttemptID(attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved answers: %w", err)
	}

	session, ok := s.sessions.Get(attempt.ID)
	if !ok {
		var remaining time.Duration
		if assessment.IsTimed() {
			limit := time.Duration(assessment.TimeLimitMinutes) * time.Minute
			remaining = (limit - time.Since(attempt.StartedAt)).Truncate(time.Second)
			// Почти истёкшая попытка получает минуту на сдачу
			if remaining < time.Minute {
				remaining = time.Minute
			}
		}
		session = s.sessions.Start(attempt.ID, assessmentID, userID, remaining)
		log.Printf("[AttemptService] Сессия попытки #%d восстановлена (остаток: %s)",
			attempt.ID, remaining)
	}

	return &AttemptState{
		Attempt:      attempt,
		Assessment:   assessment,
		Questions:    questions,
		Answers:      answers,
		RemainingSec: session.Snapshot().RemainingSec,
		Timed:        assessment.IsTimed(),
	}, nil
}

// RecordAnswer принимает ответ пользователя в рамках попытки. Вопрос должен
// принадлежать тесту попытки; для вопроса с вариантами значение — валидный
// вариант этого вопроса, для свободного вопроса — текст.
func (s *AttemptService) RecordAnswer(userID, attemptID, questionID uint, optionID *uint, text string) error {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return err
	}
	if attempt.UserID != userID {
		return fmt.Errorf("%w: attempt belongs to another user", apperrors.ErrForbidden)
	}
	if attempt.IsCompleted() {
		return fmt.Errorf("%w: attempt already completed", apperrors.ErrConflict)
	}

	question, err := s.findQuestion(attempt.AssessmentID, questionID)
	if err != nil {
		return err
	}

	value := testsession.AnswerValue{OptionID: optionID, Text: text}
	if question.IsMultipleChoice() {
		if optionID == nil {
			return fmt.Errorf("%w: option is required for multiple choice question", apperrors.ErrValidation)
		}
		if !question.IsValidOption(*optionID) {
			return fmt.Errorf("%w: option does not belong to question", apperrors.ErrValidation)
		}
		value.Text = ""
	} else {
		if optionID != nil {
			return fmt.Errorf("%w: free text question does not accept options", apperrors.ErrValidation)
		}
	}

	err = s.sessions.RecordAnswer(attemptID, questionID, value)
	if errors.Is(err, testsession.ErrNoActiveSession) || errors.Is(err, testsession.ErrSessionCompleted) {
		return fmt.Errorf("%w: no active test session", apperrors.ErrConflict)
	}
	return err
}

// findQuestion ищет вопрос в тесте попытки (с опциями для валидации выбора)
func (s *AttemptService) findQuestion(assessmentID, questionID uint) (*entity.Question, error) {
	questions, err := s.questionService.GetAssessmentQuestions(assessmentID)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		if questions[i].ID == questionID {
			return &questions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: question not found in assessment", apperrors.ErrNotFound)
}

// Abandon сбрасывает сессию попытки при уходе пользователя с теста.
// Ожидающие записи свободных ответов доливаются в БД; попытка остаётся
// in_progress и может быть возобновлена позже.
func (s *AttemptService) Abandon(userID, attemptID uint) error {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return err
	}
	if attempt.UserID != userID {
		return fmt.Errorf("%w: attempt belongs to another user", apperrors.ErrForbidden)
	}

	s.sessions.Clear(attemptID)
	return nil
}

// ListAnswers возвращает сохранённые ответы попытки. Перед чтением
// доливаются отложенные записи свободных ответов, чтобы клиент увидел
// актуальный текст.
func (s *AttemptService) ListAnswers(userID, attemptID uint) ([]entity.Answer, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fmt.Errorf("%w: attempt belongs to another user", apperrors.ErrForbidden)
	}

	if err := s.sessions.FlushPending(attemptID); err != nil && !errors.Is(err, testsession.ErrNoActiveSession) {
		log.Printf("[AttemptService] Попытка #%d: не удалось долить отложенные ответы: %v", attemptID, err)
	}

	return s.answerRepo.GetByAttemptID(attemptID)
}

// GetAttempt возвращает попытку с проверкой владельца
func (s *AttemptService) GetAttempt(userID, attemptID uint) (*entity.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fmt.Errorf("%w: attempt belongs to another user", apperrors.ErrForbidden)
	}
	return attempt, nil
}

// ListAttempts возвращает историю попыток пользователя по тесту
func (s *AttemptService) ListAttempts(userID, assessmentID uint) ([]entity.Attempt, error) {
	return s.attemptRepo.GetByUserAndAssessment(userID, assessmentID)
}
