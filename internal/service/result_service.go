package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/internal/service/testsession"
)

// ResultService выполняет отправку попытки: подсчёт результата, фиксацию
// в БД и внешнее уведомление. Отправка идемпотентна: попытка переводится
// в completed ровно один раз, повторы отклоняются.
type ResultService struct {
	attemptRepo    repository.AttemptRepository
	assessmentRepo repository.AssessmentRepository
	answerRepo     repository.AnswerRepository
	userRepo       repository.UserRepository
	sessions       *testsession.Store
	notifier       WebhookNotifier
}

// NewResultService создает новый сервис результатов
func NewResultService(
	attemptRepo repository.AttemptRepository,
	assessmentRepo repository.AssessmentRepository,
	answerRepo repository.AnswerRepository,
	userRepo repository.UserRepository,
	sessions *testsession.Store,
	notifier WebhookNotifier,
) *ResultService {
	if notifier == nil {
		notifier = &NoopWebhookNotifier{}
	}
	return &ResultService{
		attemptRepo:    attemptRepo,
		assessmentRepo: assessmentRepo,
		answerRepo:     answerRepo,
		userRepo:       userRepo,
		sessions:       sessions,
		notifier:       notifier,
	}
}

// SubmissionResult — итог отправленной попытки
type SubmissionResult struct {
	Attempt        *entity.Attempt `json:"attempt"`
	CorrectAnswers int             `json:"correct_answers"`
	TotalQuestions int             `json:"total_questions"`
	Score          *int            `json:"score"`
	Passed         *bool           `json:"passed"`
	TimeUp         bool            `json:"time_up"`
	// NotificationFailed сообщает, что webhook о сдаче не доставлен.
	// Попытка при этом остаётся завершённой — откат и повтор не делаются.
	NotificationFailed bool `json:"notification_failed,omitempty"`
}

// Submit отправляет попытку пользователя на проверку
func (s *ResultService) Submit(ctx context.Context, userID, attemptID uint) (*SubmissionResult, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fmt.Errorf("%w: attempt belongs to another user", apperrors.ErrForbidden)
	}
	return s.submit(ctx, attempt, false)
}

// ForceSubmit отправляет попытку по истечении времени. Вызывается
// обработчиком истечения таймера сессии, без участия пользователя.
func (s *ResultService) ForceSubmit(attemptID uint) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		log.Printf("[ResultService] Принудительная отправка попытки #%d: попытка не найдена: %v", attemptID, err)
		return
	}

	if _, err := s.submit(context.Background(), attempt, true); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Пользователь успел отправить сам, гонка безвредна
			return
		}
		log.Printf("[ResultService] Ошибка принудительной отправки попытки #%d: %v", attemptID, err)
	}
}

// submit — общий путь отправки. Порядок фиксированный: guard -> долив
// отложенных записей -> подсчёт -> completed в БД -> уведомление.
// Сбой уведомления не откатывает завершение попытки.
func (s *ResultService) submit(ctx context.Context, attempt *entity.Attempt, timeUp bool) (*SubmissionResult, error) {
	if attempt.IsCompleted() {
		return nil, fmt.Errorf("%w: attempt already completed", apperrors.ErrConflict)
	}

	// Guard от конкурентной отправки. Отсутствие сессии (перезапуск
	// сервера) не блокирует отправку: условный UPDATE в Complete
	// останется последней защитой от дублей.
	hasSession := true
	if err := s.sessions.BeginSubmit(attempt.ID); err != nil {
		if errors.Is(err, testsession.ErrSubmissionInProgress) {
			return nil, fmt.Errorf("%w: submission already in progress", apperrors.ErrConflict)
		}
		if errors.Is(err, testsession.ErrSessionCompleted) {
			return nil, fmt.Errorf("%w: attempt already completed", apperrors.ErrConflict)
		}
		hasSession = false
	}

	result, err := s.finalize(ctx, attempt, timeUp)
	if hasSession {
		s.sessions.FinishSubmit(attempt.ID, err == nil)
	}
	if err != nil {
		return nil, err
	}

	s.sessions.Remove(attempt.ID)
	return result, nil
}

func (s *ResultService) finalize(ctx context.Context, attempt *entity.Attempt, timeUp bool) (*SubmissionResult, error) {
	// Отложенные записи свободных ответов доливаются до подсчёта
	if err := s.sessions.FlushPending(attempt.ID); err != nil && !errors.Is(err, testsession.ErrNoActiveSession) {
		log.Printf("[ResultService] Долив отложенных ответов попытки #%d: %v", attempt.ID, err)
	}

	// Для подсчёта вопросы читаются из БД вместе с флагами правильности
	assessment, err := s.assessmentRepo.GetWithQuestions(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	answers := s.collectAnswers(attempt.ID)

	correct, totalMC := 0, 0
	questionsByID := make(map[uint]*entity.Question, len(assessment.Questions))
	for i := range assessment.Questions {
		q := &assessment.Questions[i]
		questionsByID[q.ID] = q
		if !q.IsMultipleChoice() {
			continue
		}
		totalMC++
		answer, ok := answers[q.ID]
		if !ok || answer.OptionID == nil {
			continue
		}
		if correctID, found := q.CorrectOptionID(); found && *answer.OptionID == correctID {
			correct++
		}
	}

	// Score — процент правильных среди вопросов с вариантами. Тест без
	// таких вопросов остаётся без численного результата.
	var score *int
	var passed *bool
	if totalMC > 0 {
		v := int(math.Round(float64(correct) / float64(totalMC) * 100))
		score = &v
		p := v >= assessment.PassThreshold()
		passed = &p
	}

	finishedAt := time.Now()
	if err := s.attemptRepo.Complete(attempt.ID, finishedAt, score, passed, timeUp); err != nil {
		return nil, err
	}

	attempt.Status = entity.AttemptStatusCompleted
	attempt.FinishedAt = &finishedAt
	attempt.Score = score
	attempt.Passed = passed
	attempt.TimeUp = timeUp

	log.Printf("[ResultService] Попытка #%d завершена (correct=%d/%d, timeUp=%t)",
		attempt.ID, correct, totalMC, timeUp)

	notifyErr := s.notify(ctx, attempt, questionsByID, answers)

	return &SubmissionResult{
		Attempt:            attempt,
		CorrectAnswers:     correct,
		TotalQuestions:     len(assessment.Questions),
		Score:              score,
		Passed:             passed,
		TimeUp:             timeUp,
		NotificationFailed: notifyErr != nil,
	}, nil
}

// collectAnswers собирает финальные ответы попытки: сохранённые в БД,
// поверх которых накладывается память сессии (в ней всегда последняя
// версия, даже если какая-то запись в БД не удалась).
func (s *ResultService) collectAnswers(attemptID uint) map[uint]testsession.AnswerValue {
	merged := make(map[uint]testsession.AnswerValue)

	saved, err := s.answerRepo.GetByAttemptID(attemptID)
	if err != nil {
		log.Printf("[ResultService] Не удалось прочитать сохранённые ответы попытки #%d: %v", attemptID, err)
	}
	for _, a := range saved {
		merged[a.QuestionID] = testsession.AnswerValue{OptionID: a.SelectedOptionID, Text: a.AnswerText}
	}

	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return merged
	}
	for qid, value := range session.Snapshot().Answers {
		stored, exists := merged[qid]
		if !exists || !answerValuesEqual(stored, value) {
			merged[qid] = value
			// Ответ, не доехавший до БД раньше, дозаписывается сейчас
			s.upsertAnswer(attemptID, qid, value)
		}
	}
	return merged
}

func (s *ResultService) upsertAnswer(attemptID, questionID uint, value testsession.AnswerValue) {
	answer := &entity.Answer{
		AttemptID:        attemptID,
		QuestionID:       questionID,
		SelectedOptionID: value.OptionID,
		AnswerText:       value.Text,
	}
	if value.IsOption() {
		answer.AnswerText = ""
	}
	if err := s.answerRepo.Upsert(answer); err != nil {
		log.Printf("[ResultService] Дозапись ответа на вопрос #%d (попытка #%d) не удалась: %v",
			questionID, attemptID, err)
	}
}

func answerValuesEqual(a, b testsession.AnswerValue) bool {
	if (a.OptionID == nil) != (b.OptionID == nil) {
		return false
	}
	if a.OptionID != nil {
		return *a.OptionID == *b.OptionID
	}
	return a.Text == b.Text
}

// notify отправляет внешнее уведомление о сдаче. Ошибка доставки не
// влияет на статус попытки, но возвращается, чтобы её можно было
// показать пользователю.
func (s *ResultService) notify(ctx context.Context, attempt *entity.Attempt, questions map[uint]*entity.Question, answers map[uint]testsession.AnswerValue) error {
	user, err := s.userRepo.GetByID(attempt.UserID)
	if err != nil {
		log.Printf("[ResultService] Уведомление о попытке #%d: пользователь не найден: %v", attempt.ID, err)
		return err
	}

	payload := &SubmissionNotification{
		TestID:      attempt.AssessmentID,
		AttemptID:   attempt.ID,
		UserID:      user.ID,
		UserName:    user.Username,
		UserEmail:   user.Email,
		Answers:     make([]SubmissionAnswer, 0, len(answers)),
		TimeSpent:   int(attempt.ElapsedTime().Seconds()),
		SubmittedAt: *attempt.FinishedAt,
		Score:       attempt.Score,
		Passed:      attempt.Passed,
		TimeUp:      attempt.TimeUp,
	}

	for qid, value := range answers {
		row := SubmissionAnswer{QuestionID: qid, SelectedOptionID: value.OptionID}
		if !value.IsOption() {
			row.AnswerText = value.Text
		}
		if q, ok := questions[qid]; ok && q.IsMultipleChoice() && value.OptionID != nil {
			if correctID, found := q.CorrectOptionID(); found {
				isCorrect := *value.OptionID == correctID
				row.IsCorrect = &isCorrect
			}
		}
		payload.Answers = append(payload.Answers, row)
	}

	if err := s.notifier.NotifySubmission(ctx, payload); err != nil {
		log.Printf("[ResultService] Webhook-уведомление о попытке #%d не доставлено: %v", attempt.ID, err)
		return err
	}
	return nil
}

// AttemptExportRow — строка выгрузки попыток теста для администратора
type AttemptExportRow struct {
	AttemptID     uint
	AttemptNumber int
	Username      string
	Email         string
	Score         *int
	Passed        *bool
	TimeUp        bool
	StartedAt     time.Time
	FinishedAt    *time.Time
}

// GetAssessmentAttempts возвращает все попытки теста с данными пользователей
// (для админской выгрузки, без пагинации)
func (s *ResultService) GetAssessmentAttempts(assessmentID uint) ([]AttemptExportRow, error) {
	attempts, err := s.attemptRepo.GetByAssessmentID(assessmentID)
	if err != nil {
		return nil, err
	}

	users := make(map[uint]*entity.User)
	rows := make([]AttemptExportRow, 0, len(attempts))
	for _, attempt := range attempts {
		user, ok := users[attempt.UserID]
		if !ok {
			user, err = s.userRepo.GetByID(attempt.UserID)
			if err != nil {
				log.Printf("[ResultService] Выгрузка: пользователь #%d не найден: %v", attempt.UserID, err)
				user = &entity.User{ID: attempt.UserID}
			}
			users[attempt.UserID] = user
		}
		rows = append(rows, AttemptExportRow{
			AttemptID:     attempt.ID,
			AttemptNumber: attempt.AttemptNumber,
			Username:      user.Username,
			Email:         user.Email,
			Score:         attempt.Score,
			Passed:        attempt.Passed,
			TimeUp:        attempt.TimeUp,
			StartedAt:     attempt.StartedAt,
			FinishedAt:    attempt.FinishedAt,
		})
	}
	return rows, nil
}

// GetSummary возвращает итог завершённой попытки
func (s *ResultService) GetSummary(userID, attemptID uint) (*SubmissionResult, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fmt.Errorf("%w: attempt belongs to another user", apperrors.ErrForbidden)
	}
	if !attempt.IsCompleted() {
		return nil, fmt.Errorf("%w: attempt is not completed", apperrors.ErrConflict)
	}

	assessment, err := s.assessmentRepo.GetWithQuestions(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	answers, err := s.answerRepo.GetByAttemptID(attemptID)
	if err != nil {
		return nil, err
	}

	correct := 0
	for i := range assessment.Questions {
		q := &assessment.Questions[i]
		if !q.IsMultipleChoice() {
			continue
		}
		for _, a := range answers {
			if a.QuestionID == q.ID && a.SelectedOptionID != nil {
				if correctID, found := q.CorrectOptionID(); found && *a.SelectedOptionID == correctID {
					correct++
				}
				break
			}
		}
	}

	return &SubmissionResult{
		Attempt:        attempt,
		CorrectAnswers: correct,
		TotalQuestions: len(assessment.Questions),
		Score:          attempt.Score,
		Passed:         attempt.Passed,
		TimeUp:         attempt.TimeUp,
	}, nil
}
