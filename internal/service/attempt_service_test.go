package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/internal/service/testsession"
)

// ============================================================================
// Тесты жизненного цикла попыток
// ============================================================================

type attemptFixture struct {
	attemptRepo    *MockAttemptRepository
	assessmentRepo *MockAssessmentRepository
	answerRepo     *MockAnswerRepository
	questionRepo   *MockQuestionRepository
	sessions       *testsession.Store
	service        *AttemptService
}

func newAttemptFixture() *attemptFixture {
	f := &attemptFixture{
		attemptRepo:    new(MockAttemptRepository),
		assessmentRepo: new(MockAssessmentRepository),
		answerRepo:     new(MockAnswerRepository),
		questionRepo:   new(MockQuestionRepository),
	}
	f.sessions = testsession.NewStore(
		&testsession.Config{TickInterval: time.Millisecond, DebounceWindow: 10 * time.Millisecond},
		&testsession.Dependencies{AnswerRepo: f.answerRepo},
	)
	questionService := NewQuestionService(f.questionRepo, nil, time.Minute)
	f.service = NewAttemptService(f.attemptRepo, f.assessmentRepo, f.answerRepo, questionService, f.sessions)
	return f
}

func (f *attemptFixture) setupAssessmentQuestions(assessmentID uint) {
	aid := assessmentID
	f.questionRepo.On("GetByAssessmentID", assessmentID).Return([]entity.Question{
		{ID: 1, AssessmentID: &aid, Type: entity.QuestionTypeMultipleChoice},
		{ID: 2, AssessmentID: &aid, Type: entity.QuestionTypeEssay},
	}, nil)
	f.questionRepo.On("GetOptionsByQuestionIDs", []uint{1, 2}).Return([]entity.Option{
		{ID: 11, QuestionID: 1, IsCorrect: true},
		{ID: 12, QuestionID: 1},
	}, nil)
}

func TestAttemptService_Start_CreatesAttemptAndSession(t *testing.T) {
	f := newAttemptFixture()
	f.setupAssessmentQuestions(10)

	f.assessmentRepo.On("GetByID", uint(10)).Return(&entity.Assessment{
		ID: 10, TimeLimitMinutes: 30, PassingPercentage: 50,
	}, nil)
	f.attemptRepo.On("CreateNext", uint(100), uint(10)).Return(&entity.Attempt{
		ID: 1, UserID: 100, AssessmentID: 10, AttemptNumber: 3,
		Status: entity.AttemptStatusInProgress, StartedAt: time.Now(),
	}, nil)

	state, err := f.service.Start(context.Background(), 100, 10)
	require.NoError(t, err)

	assert.Equal(t, 3, state.Attempt.AttemptNumber)
	assert.Len(t, state.Questions, 2)
	assert.Empty(t, state.Answers)
	assert.True(t, state.Timed)
	assert.Equal(t, 30*60, state.RemainingSec)

	_, ok := f.sessions.Get(1)
	assert.True(t, ok)
}

func TestAttemptService_Start_CountdownOutlivesRequestContext(t *testing.T) {
	f := newAttemptFixture()
	f.setupAssessmentQuestions(10)

	f.assessmentRepo.On("GetByID", uint(10)).Return(&entity.Assessment{
		ID: 10, TimeLimitMinutes: 1, PassingPercentage: 50,
	}, nil)
	f.attemptRepo.On("CreateNext", uint(100), uint(10)).Return(&entity.Attempt{
		ID: 1, UserID: 100, AssessmentID: 10, AttemptNumber: 1,
		Status: entity.AttemptStatusInProgress, StartedAt: time.Now(),
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.service.Start(ctx, 100, 10)
	require.NoError(t, err)

	// net/http отменяет контекст запроса сразу после ответа хендлера —
	// обратный отсчёт должен пережить эту отмену
	cancel()

	session, ok := f.sessions.Get(1)
	require.True(t, ok)
	assert.Eventually(t, func() bool {
		return session.Snapshot().RemainingSec < 60
	}, time.Second, 2*time.Millisecond)
}

func TestAttemptService_RecordAnswer_ValidOption(t *testing.T) {
	f := newAttemptFixture()
	f.setupAssessmentQuestions(10)

	f.attemptRepo.On("GetByID", uint(1)).Return(&entity.Attempt{
		ID: 1, UserID: 100, AssessmentID: 10, Status: entity.AttemptStatusInProgress,
	}, nil)
	f.answerRepo.On("Upsert", mock.Anything).Return(nil)

	f.sessions.Start(1, 10, 100, 0)

	err := f.service.RecordAnswer(100, 1, 1, uintPtr(11), "")
	require.NoError(t, err)
	f.answerRepo.AssertNumberOfCalls(t, "Upsert", 1)
}

func TestAttemptService_RecordAnswer_Validation(t *testing.T) {
	f := newAttemptFixture()
	f.setupAssessmentQuestions(10)

	f.attemptRepo.On("GetByID", uint(1)).Return(&entity.Attempt{
		ID: 1, UserID: 100, AssessmentID: 10, Status: entity.AttemptStatusInProgress,
	}, nil)
	f.sessions.Start(1, 10, 100, 0)

	// Чужой вариант ответа
	err := f.service.RecordAnswer(100, 1, 1, uintPtr(999), "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Вариант для свободного вопроса
	err = f.service.RecordAnswer(100, 1, 2, uintPtr(11), "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Нет варианта для вопроса с вариантами
	err = f.service.RecordAnswer(100, 1, 1, nil, "текст")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Вопрос не из этого теста
	err = f.service.RecordAnswer(100, 1, 99, uintPtr(11), "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Чужая попытка
	err = f.service.RecordAnswer(200, 1, 1, uintPtr(11), "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestAttemptService_RecordAnswer_CompletedAttemptConflict(t *testing.T) {
	f := newAttemptFixture()

	f.attemptRepo.On("GetByID", uint(1)).Return(&entity.Attempt{
		ID: 1, UserID: 100, AssessmentID: 10, Status: entity.AttemptStatusCompleted,
	}, nil)

	err := f.service.RecordAnswer(100, 1, 1, uintPtr(11), "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAttemptService_Resume_RebuildsSessionAfterRestart(t *testing.T) {
	f := newAttemptFixture()
	f.setupAssessmentQuestions(10)

	f.attemptRepo.On("GetInProgress", uint(100), uint(10)).Return(&entity.Attempt{
		ID: 1, UserID: 100, AssessmentID: 10, Status: entity.AttemptStatusInProgress,
		StartedAt: time.Now().Add(-10 * time.Minute),
	}, nil)
	f.assessmentRepo.On("GetByID", uint(10)).Return(&entity.Assessment{
		ID: 10, TimeLimitMinutes: 30,
	}, nil)
	f.answerRepo.On("GetByAttemptID", uint(1)).Return([]entity.Answer{
		{AttemptID: 1, QuestionID: 1, SelectedOptionID: uintPtr(11)},
	}, nil)

	state, err := f.service.Resume(context.Background(), 100, 10)
	require.NoError(t, err)

	// Сессия пересоздана с остатком времени за вычетом прошедших минут
	assert.Len(t, state.Answers, 1)
	assert.InDelta(t, 20*60, state.RemainingSec, 60)

	_, ok := f.sessions.Get(1)
	assert.True(t, ok)
}

func TestAttemptService_Resume_RemainingCountsSecondsNotWholeMinutes(t *testing.T) {
	f := newAttemptFixture()
	f.setupAssessmentQuestions(10)

	// 10 минут 30 секунд с начала попытки: остаток 19:30, а не 20:00
	f.attemptRepo.On("GetInProgress", uint(100), uint(10)).Return(&entity.Attempt{
		ID: 1, UserID: 100, AssessmentID: 10, Status: entity.AttemptStatusInProgress,
		StartedAt: time.Now().Add(-(10*time.Minute + 30*time.Second)),
	}, nil)
	f.assessmentRepo.On("GetByID", uint(10)).Return(&entity.Assessment{
		ID: 10, TimeLimitMinutes: 30,
	}, nil)
	f.answerRepo.On("GetByAttemptID", uint(1)).Return([]entity.Answer{}, nil)

	state, err := f.service.Resume(context.Background(), 100, 10)
	require.NoError(t, err)

	assert.InDelta(t, 19*60+30, state.RemainingSec, 5)
}

func TestAttemptService_Resume_AlmostExpiredAttemptGetsOneMinute(t *testing.T) {
	f := newAttemptFixture()
	f.setupAssessmentQuestions(10)

	f.attemptRepo.On("GetInProgress", uint(100), uint(10)).Return(&entity.Attempt{
		ID: 1, UserID: 100, AssessmentID: 10, Status: entity.AttemptStatusInProgress,
		StartedAt: time.Now().Add(-29*time.Minute - 50*time.Second),
	}, nil)
	f.assessmentRepo.On("GetByID", uint(10)).Return(&entity.Assessment{
		ID: 10, TimeLimitMinutes: 30,
	}, nil)
	f.answerRepo.On("GetByAttemptID", uint(1)).Return([]entity.Answer{}, nil)

	state, err := f.service.Resume(context.Background(), 100, 10)
	require.NoError(t, err)

	assert.InDelta(t, 60, state.RemainingSec, 5)
}

func TestAttemptService_Abandon_ClearsSession(t *testing.T) {
	f := newAttemptFixture()

	f.attemptRepo.On("GetByID", uint(1)).Return(&entity.Attempt{
		ID: 1, UserID: 100, AssessmentID: 10, Status: entity.AttemptStatusInProgress,
	}, nil)
	f.sessions.Start(1, 10, 100, 0)

	require.NoError(t, f.service.Abandon(100, 1))

	_, ok := f.sessions.Get(1)
	assert.False(t, ok)
}

func TestAttemptService_ListAnswers_FlushesPendingBeforeRead(t *testing.T) {
	f := newAttemptFixture()
	f.setupAssessmentQuestions(10)

	f.attemptRepo.On("GetByID", uint(1)).Return(&entity.Attempt{
		ID: 1, UserID: 100, AssessmentID: 10, Status: entity.AttemptStatusInProgress,
	}, nil)
	f.answerRepo.On("Upsert", mock.MatchedBy(func(a *entity.Answer) bool {
		return a.QuestionID == 2 && a.AnswerText == "итоговый текст"
	})).Return(nil)
	f.answerRepo.On("GetByAttemptID", uint(1)).Return([]entity.Answer{
		{AttemptID: 1, QuestionID: 2, AnswerText: "итоговый текст"},
	}, nil)

	f.sessions.Start(1, 10, 100, 0)
	require.NoError(t, f.service.RecordAnswer(100, 1, 2, nil, "итоговый текст"))

	// Дебаунс-окно ещё не истекло, но чтение доливает отложенную запись
	answers, err := f.service.ListAnswers(100, 1)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "итоговый текст", answers[0].AnswerText)
	f.answerRepo.AssertCalled(t, "Upsert", mock.Anything)
}

func TestAttemptService_ListAnswers_ForeignUserRejected(t *testing.T) {
	f := newAttemptFixture()

	f.attemptRepo.On("GetByID", uint(1)).Return(&entity.Attempt{
		ID: 1, UserID: 100, AssessmentID: 10, Status: entity.AttemptStatusInProgress,
	}, nil)

	_, err := f.service.ListAnswers(999, 1)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
