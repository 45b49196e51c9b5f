package testsession

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ====================================================================
// Тесты отложенной записи свободных ответов
// ====================================================================

func TestStore_Debounce_RapidEditsProduceSingleWrite(t *testing.T) {
	repo := &recordingAnswerRepo{}
	store := newTestStore(repo, nil)
	store.Start(1, 10, 100, 0)

	// Серия быстрых правок в пределах окна дебаунса
	require.NoError(t, store.RecordAnswer(1, 7, AnswerValue{Text: "ч"}))
	require.NoError(t, store.RecordAnswer(1, 7, AnswerValue{Text: "черно"}))
	require.NoError(t, store.RecordAnswer(1, 7, AnswerValue{Text: "черновик ответа"}))

	assert.Equal(t, 0, repo.upsertCount())

	// После периода тишины в БД уходит ровно одна запись с последним значением
	assert.Eventually(t, func() bool {
		return repo.upsertCount() == 1
	}, time.Second, 2*time.Millisecond)

	last := repo.lastUpsert()
	assert.Equal(t, uint(1), last.AttemptID)
	assert.Equal(t, uint(7), last.QuestionID)
	assert.Nil(t, last.SelectedOptionID)
	assert.Equal(t, "черновик ответа", last.AnswerText)

	// Новых записей после срабатывания не появляется
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, repo.upsertCount())
}

func TestStore_Debounce_SeparateQuestionsHaveSeparateSlots(t *testing.T) {
	repo := &recordingAnswerRepo{}
	store := newTestStore(repo, nil)
	store.Start(1, 10, 100, 0)

	require.NoError(t, store.RecordAnswer(1, 7, AnswerValue{Text: "первый"}))
	require.NoError(t, store.RecordAnswer(1, 8, AnswerValue{Text: "второй"}))

	assert.Eventually(t, func() bool {
		return repo.upsertCount() == 2
	}, time.Second, 2*time.Millisecond)
}

func TestStore_FlushPending_WritesExactlyOnce(t *testing.T) {
	repo := &recordingAnswerRepo{}
	store := newTestStore(repo, nil)
	store.Start(1, 10, 100, 0)

	require.NoError(t, store.RecordAnswer(1, 7, AnswerValue{Text: "ответ до истечения дебаунса"}))
	require.NoError(t, store.FlushPending(1))

	assert.Equal(t, 1, repo.upsertCount())
	assert.Equal(t, "ответ до истечения дебаунса", repo.lastUpsert().AnswerText)

	// Таймер дебаунса погашен, второй записи не будет
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, repo.upsertCount())

	// Повторный flush без ожидающих записей — no-op
	require.NoError(t, store.FlushPending(1))
	assert.Equal(t, 1, repo.upsertCount())
}

func TestStore_FlushPending_NoSession(t *testing.T) {
	store := newTestStore(&recordingAnswerRepo{}, nil)
	assert.ErrorIs(t, store.FlushPending(42), ErrNoActiveSession)
}

func TestStore_Clear_FlushesPendingWrites(t *testing.T) {
	repo := &recordingAnswerRepo{}
	store := newTestStore(repo, nil)
	store.Start(1, 10, 100, 0)

	require.NoError(t, store.RecordAnswer(1, 7, AnswerValue{Text: "уход со страницы"}))
	store.Clear(1)

	// Ожидающая запись не потерялась при сбросе сессии
	assert.Equal(t, 1, repo.upsertCount())
	assert.Equal(t, "уход со страницы", repo.lastUpsert().AnswerText)
}

func TestStore_Clear_FlushesSlotWhoseTimerAlreadyFired(t *testing.T) {
	repo := &recordingAnswerRepo{}
	store := newTestStore(repo, nil)
	store.Start(1, 10, 100, 0)

	session, ok := store.Get(1)
	require.True(t, ok)

	// Граница окна дебаунса: таймер уже сработал (Stop вернёт false),
	// но firePending ещё не добрался до слота. Такая запись обязана
	// уйти в БД при сбросе, а не исчезнуть вместе с сессией.
	pw := &pendingWrite{value: AnswerValue{Text: "ответ на границе окна"}}
	pw.timer = time.AfterFunc(time.Hour, func() {})
	pw.timer.Stop()
	session.mu.Lock()
	session.pending[7] = pw
	session.mu.Unlock()

	store.Clear(1)

	require.Equal(t, 1, repo.upsertCount())
	assert.Equal(t, "ответ на границе окна", repo.lastUpsert().AnswerText)

	// Опоздавший firePending видит забранный слот и не пишет второй раз
	store.firePending(session, 7, pw)
	assert.Equal(t, 1, repo.upsertCount())
}

func TestStore_Debounce_EditAfterFireStartsNewSlot(t *testing.T) {
	repo := &recordingAnswerRepo{}
	store := newTestStore(repo, nil)
	store.Start(1, 10, 100, 0)

	require.NoError(t, store.RecordAnswer(1, 7, AnswerValue{Text: "первая версия"}))
	assert.Eventually(t, func() bool {
		return repo.upsertCount() == 1
	}, time.Second, 2*time.Millisecond)

	require.NoError(t, store.RecordAnswer(1, 7, AnswerValue{Text: "вторая версия"}))
	assert.Eventually(t, func() bool {
		return repo.upsertCount() == 2
	}, time.Second, 2*time.Millisecond)

	assert.Equal(t, "вторая версия", repo.lastUpsert().AnswerText)
}
