package testsession

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lms-api/internal/domain/entity"
)

// ====================================================================
// Вспомогательный репозиторий ответов: запоминает вызовы Upsert
// ====================================================================

type recordingAnswerRepo struct {
	mu      sync.Mutex
	upserts []entity.Answer
	err     error
}

func (r *recordingAnswerRepo) Upsert(answer *entity.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.upserts = append(r.upserts, *answer)
	return nil
}

func (r *recordingAnswerRepo) GetByAttemptID(attemptID uint) ([]entity.Answer, error) {
	return nil, nil
}

func (r *recordingAnswerRepo) CreateVideoQuizBatch(answers []entity.VideoQuizAnswer) error {
	return nil
}

func (r *recordingAnswerRepo) upsertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.upserts)
}

func (r *recordingAnswerRepo) lastUpsert() entity.Answer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upserts[len(r.upserts)-1]
}

// ====================================================================
// Вспомогательный приёмник событий: считает события сессии
// ====================================================================

type recordingEventSink struct {
	mu        sync.Mutex
	ticks     []int
	timeUps   int
	submitted int
}

func (s *recordingEventSink) SessionTick(userID, attemptID uint, remainingSec int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, remainingSec)
}

func (s *recordingEventSink) SessionTimeUp(userID, attemptID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeUps++
}

func (s *recordingEventSink) SessionSubmitted(userID, attemptID uint, timeUp bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted++
}

func (s *recordingEventSink) tickValues() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.ticks))
	copy(out, s.ticks)
	return out
}

func newTestStore(repo *recordingAnswerRepo, sink EventSink) *Store {
	if sink == nil {
		sink = NoOpEventSink{}
	}
	return NewStore(
		&Config{TickInterval: time.Millisecond, DebounceWindow: 20 * time.Millisecond},
		&Dependencies{AnswerRepo: repo, Events: sink},
	)
}

// ====================================================================
// Тесты жизненного цикла сессии
// ====================================================================

func TestStore_Start_CreatesActiveSession(t *testing.T) {
	store := newTestStore(&recordingAnswerRepo{}, nil)

	session := store.Start(1, 10, 100, 30*time.Minute)

	snap := session.Snapshot()
	assert.True(t, snap.Active)
	assert.False(t, snap.Completed)
	assert.False(t, snap.TimeUp)
	assert.Equal(t, 30*60, snap.RemainingSec)
	assert.Empty(t, snap.Answers)

	got, ok := store.Get(1)
	require.True(t, ok)
	assert.Same(t, session, got)
}

func TestStore_Start_ReplacesPreviousSessionForSameUserAndAssessment(t *testing.T) {
	store := newTestStore(&recordingAnswerRepo{}, nil)

	first := store.Start(1, 10, 100, 30*time.Minute)
	second := store.Start(2, 10, 100, 30*time.Minute)

	// Прежняя сессия сброшена, новая активна
	_, ok := store.Get(1)
	assert.False(t, ok)
	assert.False(t, first.Snapshot().Active)

	got, ok := store.Get(2)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.True(t, second.Snapshot().Active)
}

func TestStore_Start_UntimedSessionDoesNotTick(t *testing.T) {
	sink := &recordingEventSink{}
	store := newTestStore(&recordingAnswerRepo{}, sink)

	session := store.Start(1, 10, 100, 0)

	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, sink.tickValues())
	assert.Equal(t, 0, session.Snapshot().RemainingSec)
	assert.False(t, session.TimeUp())
}

func TestSession_Tick_DecrementsOneSecondPerTick(t *testing.T) {
	session := &Session{
		answers:   make(map[uint]AnswerValue),
		pending:   make(map[uint]*pendingWrite),
		remaining: 3 * time.Second,
		timed:     true,
		active:    true,
	}

	remaining, expired := session.tick()
	assert.Equal(t, 2, remaining)
	assert.False(t, expired)

	remaining, expired = session.tick()
	assert.Equal(t, 1, remaining)
	assert.False(t, expired)

	remaining, expired = session.tick()
	assert.Equal(t, 0, remaining)
	assert.True(t, expired)
	assert.True(t, session.timeUp)

	// После нуля время не уходит в минус
	remaining, expired = session.tick()
	assert.Equal(t, 0, remaining)
	assert.False(t, expired)
	assert.Equal(t, time.Duration(0), session.remaining)
}

func TestStore_Countdown_ExpiryTriggersForcedSubmission(t *testing.T) {
	sink := &recordingEventSink{}
	store := newTestStore(&recordingAnswerRepo{}, sink)

	expired := make(chan uint, 1)
	store.SetExpiryHandler(func(attemptID uint) {
		expired <- attemptID
	})

	// Минута лимита = ровно 60 логических секунд обратного отсчёта
	session := store.Start(1, 10, 100, time.Minute)

	select {
	case attemptID := <-expired:
		assert.Equal(t, uint(1), attemptID)
	case <-time.After(2 * time.Second):
		t.Fatal("обработчик истечения времени не был вызван")
	}

	assert.True(t, session.TimeUp())
	assert.Equal(t, 0, session.Snapshot().RemainingSec)

	ticks := sink.tickValues()
	require.Len(t, ticks, 59)
	assert.Equal(t, 59, ticks[0])
	assert.Equal(t, 1, ticks[len(ticks)-1])
}

func TestSession_SubmitGuard_RejectsConcurrentSubmission(t *testing.T) {
	store := newTestStore(&recordingAnswerRepo{}, nil)
	session := store.Start(1, 10, 100, 0)

	require.NoError(t, session.beginSubmit())

	err := session.beginSubmit()
	assert.ErrorIs(t, err, ErrSubmissionInProgress)

	// Неудачная отправка снимает guard, сессия остаётся активной
	session.finishSubmit(false)
	assert.NoError(t, session.beginSubmit())
	session.finishSubmit(true)

	snap := session.Snapshot()
	assert.True(t, snap.Completed)
	assert.False(t, snap.Active)

	err = session.beginSubmit()
	assert.ErrorIs(t, err, ErrSessionCompleted)
}

func TestSession_RecordAnswer_AfterCompletionRejected(t *testing.T) {
	repo := &recordingAnswerRepo{}
	store := newTestStore(repo, nil)
	session := store.Start(1, 10, 100, 0)

	require.NoError(t, session.beginSubmit())
	session.finishSubmit(true)

	optionID := uint(5)
	err := store.RecordAnswer(1, 7, AnswerValue{OptionID: &optionID})
	assert.ErrorIs(t, err, ErrSessionCompleted)
	assert.Equal(t, 0, repo.upsertCount())
}

func TestSession_FinishSubmit_StopsCountdown(t *testing.T) {
	sink := &recordingEventSink{}
	store := newTestStore(&recordingAnswerRepo{}, sink)
	session := store.Start(1, 10, 100, 30*time.Minute)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, session.beginSubmit())
	session.finishSubmit(true)

	frozen := session.Snapshot().RemainingSec
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, frozen, session.Snapshot().RemainingSec)
}

func TestStore_Clear_RemovesSession(t *testing.T) {
	store := newTestStore(&recordingAnswerRepo{}, nil)
	store.Start(1, 10, 100, 0)

	store.Clear(1)

	_, ok := store.Get(1)
	assert.False(t, ok)

	// Повторный сброс несуществующей сессии безопасен
	store.Clear(1)
}

func TestStore_RecordAnswer_NoSession(t *testing.T) {
	store := newTestStore(&recordingAnswerRepo{}, nil)

	optionID := uint(5)
	err := store.RecordAnswer(99, 7, AnswerValue{OptionID: &optionID})
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestStore_RecordAnswer_LastWriteWins(t *testing.T) {
	repo := &recordingAnswerRepo{}
	store := newTestStore(repo, nil)
	session := store.Start(1, 10, 100, 0)

	first := uint(5)
	second := uint(6)
	require.NoError(t, store.RecordAnswer(1, 7, AnswerValue{OptionID: &first}))
	require.NoError(t, store.RecordAnswer(1, 7, AnswerValue{OptionID: &second}))

	snap := session.Snapshot()
	require.Contains(t, snap.Answers, uint(7))
	assert.Equal(t, second, *snap.Answers[7].OptionID)

	// Обе записи ушли в БД немедленно, видна последняя
	assert.Equal(t, 2, repo.upsertCount())
	last := repo.lastUpsert()
	assert.Equal(t, uint(1), last.AttemptID)
	assert.Equal(t, uint(7), last.QuestionID)
	assert.Equal(t, second, *last.SelectedOptionID)
}

func TestStore_RecordAnswer_MemoryUpdatedEvenIfPersistFails(t *testing.T) {
	repo := &recordingAnswerRepo{err: errors.New("database is down")}
	store := newTestStore(repo, nil)
	session := store.Start(1, 10, 100, 0)

	optionID := uint(5)
	err := store.RecordAnswer(1, 7, AnswerValue{OptionID: &optionID})
	assert.Error(t, err)

	// Ответ остался в памяти и попадёт в подсчёт при отправке
	snap := session.Snapshot()
	require.Contains(t, snap.Answers, uint(7))
	assert.Equal(t, optionID, *snap.Answers[7].OptionID)
}
