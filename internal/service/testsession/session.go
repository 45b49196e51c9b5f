package testsession

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Session хранит состояние одной активной попытки: карту ответов, оставшееся
// время и флаги завершения. Всё состояние защищено одним мьютексом; снаружи
// оно доступно только через узкий API мутаций (start/record/submit/clear).
type Session struct {
	AttemptID    uint
	AssessmentID uint
	UserID       uint

	mu         sync.Mutex
	answers    map[uint]AnswerValue
	pending    map[uint]*pendingWrite
	remaining  time.Duration
	timed      bool
	active     bool
	completed  bool
	timeUp     bool
	submitting bool

	cancel context.CancelFunc
}

// Snapshot — копия состояния сессии для чтения (навигационный guard, сводка)
type Snapshot struct {
	AttemptID    uint                 `json:"attempt_id"`
	AssessmentID uint                 `json:"assessment_id"`
	Active       bool                 `json:"active"`
	Completed    bool                 `json:"completed"`
	TimeUp       bool                 `json:"time_up"`
	RemainingSec int                  `json:"remaining_sec"`
	Answers      map[uint]AnswerValue `json:"-"`
}

// Snapshot возвращает копию текущего состояния сессии
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make(map[uint]AnswerValue, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	return Snapshot{
		AttemptID:    s.AttemptID,
		AssessmentID: s.AssessmentID,
		Active:       s.active,
		Completed:    s.completed,
		TimeUp:       s.timeUp,
		RemainingSec: int(s.remaining / time.Second),
		Answers:      answers,
	}
}

// recordAnswer записывает значение в карту ответов (последняя запись побеждает).
// Валидация принадлежности вопроса тесту — ответственность вызывающего.
func (s *Session) recordAnswer(questionID uint, value AnswerValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed {
		return ErrSessionCompleted
	}
	if !s.active {
		return ErrNoActiveSession
	}
	s.answers[questionID] = value
	return nil
}

// tick уменьшает оставшееся время на одну логическую секунду.
// Возвращает (остаток в секундах, истекло ли время). Время никогда
// не растёт; после нуля тики прекращаются.
func (s *Session) tick() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.completed || !s.timed {
		return int(s.remaining / time.Second), false
	}

	s.remaining -= time.Second
	if s.remaining <= 0 {
		s.remaining = 0
		s.timeUp = true
		return 0, true
	}
	return int(s.remaining / time.Second), false
}

// beginSubmit устанавливает guard отправки. Вторая конкурентная отправка
// или отправка завершённой сессии отклоняются.
func (s *Session) beginSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completed {
		return ErrSessionCompleted
	}
	if s.submitting {
		return ErrSubmissionInProgress
	}
	if !s.active {
		return ErrNoActiveSession
	}
	s.submitting = true
	return nil
}

// finishSubmit снимает guard. При успехе сессия помечается завершённой:
// оставшееся время замораживается, таймер останавливается, дальнейшие
// правки и тики не принимаются.
func (s *Session) finishSubmit(success bool) {
	s.mu.Lock()
	s.submitting = false
	if success {
		s.completed = true
		s.active = false
	}
	cancel := s.cancel
	s.mu.Unlock()

	if success && cancel != nil {
		cancel()
	}
}

// BeginSubmit устанавливает guard отправки для попытки. Пока guard
// активен, повторные отправки отклоняются с ErrSubmissionInProgress.
func (st *Store) BeginSubmit(attemptID uint) error {
	session, ok := st.Get(attemptID)
	if !ok {
		return ErrNoActiveSession
	}
	return session.beginSubmit()
}

// FinishSubmit снимает guard. Успешная отправка завершает сессию и
// рассылает событие о сдаче.
func (st *Store) FinishSubmit(attemptID uint, success bool) {
	session, ok := st.Get(attemptID)
	if !ok {
		return
	}
	session.finishSubmit(success)
	if success {
		st.deps.Events.SessionSubmitted(session.UserID, session.AttemptID, session.TimeUp())
	}
}

// TimeUp возвращает, истекло ли время сессии
func (s *Session) TimeUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeUp
}

// Store — реестр активных сессий, единственный источник истины о том,
// идёт ли сейчас тест. Сессии ключуются по ID попытки.
type Store struct {
	config *Config
	deps   *Dependencies

	sessions sync.Map // map[uint]*Session (attemptID -> session)
	byOwner  sync.Map // map[string]uint ("userID:assessmentID" -> attemptID)

	// onExpire вызывается при истечении таймера (принудительная отправка)
	onExpire func(attemptID uint)
}

// NewStore создает новый реестр тестовых сессий
func NewStore(config *Config, deps *Dependencies) *Store {
	if config == nil {
		config = DefaultConfig()
	}
	if deps.Events == nil {
		deps.Events = NoOpEventSink{}
	}
	return &Store{
		config: config,
		deps:   deps,
	}
}

// SetExpiryHandler задает обработчик истечения времени. Вызывается один раз
// при сборке приложения (обработчик — принудительная отправка попытки).
func (st *Store) SetExpiryHandler(handler func(attemptID uint)) {
	st.onExpire = handler
}

// Start активирует сессию для попытки. Оставшееся время = timeLimit
// (0 — тест без таймера), карта ответов пуста. Повторный старт для
// той же пары (user, assessment) перезаписывает прежнюю сессию — стекования нет.
// Обратный отсчёт живёт до истечения времени, сдачи или сброса сессии;
// контекст HTTP-запроса, из которого сессия стартовала, на него не влияет.
func (st *Store) Start(attemptID, assessmentID, userID uint, timeLimit time.Duration) *Session {
	ownerKey := ownerKey(userID, assessmentID)

	// Прежняя сессия этого пользователя по этому тесту сбрасывается
	if prevID, ok := st.byOwner.Load(ownerKey); ok {
		if prev, ok := st.sessions.Load(prevID.(uint)); ok {
			log.Printf("[TestSession] Перезапуск: сессия попытки #%d заменяет #%d", attemptID, prevID.(uint))
			st.drop(prev.(*Session))
		}
	}

	session := &Session{
		AttemptID:    attemptID,
		AssessmentID: assessmentID,
		UserID:       userID,
		answers:      make(map[uint]AnswerValue),
		pending:      make(map[uint]*pendingWrite),
		remaining:    timeLimit,
		timed:        timeLimit > 0,
		active:       true,
	}

	st.sessions.Store(attemptID, session)
	st.byOwner.Store(ownerKey, attemptID)

	if session.timed {
		sessionCtx, cancel := context.WithCancel(context.Background())
		session.mu.Lock()
		session.cancel = cancel
		session.mu.Unlock()
		go st.runCountdown(sessionCtx, session)
	}

	log.Printf("[TestSession] Сессия попытки #%d запущена (лимит: %s)", attemptID, timeLimit)
	return session
}

// Get возвращает сессию по ID попытки
func (st *Store) Get(attemptID uint) (*Session, bool) {
	v, ok := st.sessions.Load(attemptID)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Clear сбрасывает сессию: ожидающие записи свободных ответов доливаются
// в БД, остальное состояние в памяти отбрасывается. Используется, когда
// пользователь покидает тест.
func (st *Store) Clear(attemptID uint) {
	v, ok := st.sessions.Load(attemptID)
	if !ok {
		return
	}
	session := v.(*Session)

	// Ожидающая запись не должна потеряться при уходе со страницы
	st.flushPendingAll(session)
	st.drop(session)
	log.Printf("[TestSession] Сессия попытки #%d сброшена", attemptID)
}

// Remove удаляет завершённую сессию из реестра (после показа сводки)
func (st *Store) Remove(attemptID uint) {
	if v, ok := st.sessions.Load(attemptID); ok {
		st.drop(v.(*Session))
	}
}

// drop отменяет таймеры и убирает сессию из реестра
func (st *Store) drop(session *Session) {
	session.mu.Lock()
	session.active = false
	cancel := session.cancel
	for qid, pw := range session.pending {
		pw.timer.Stop()
		delete(session.pending, qid)
	}
	session.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	st.sessions.Delete(session.AttemptID)
	st.byOwner.CompareAndDelete(ownerKey(session.UserID, session.AssessmentID), session.AttemptID)
}

// runCountdown — горутина обратного отсчёта: один тик на логическую секунду,
// пока сессия активна. При достижении нуля сессия переводится в time-up и
// запускается принудительная отправка.
func (st *Store) runCountdown(ctx context.Context, session *Session) {
	ticker := time.NewTicker(st.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			remainingSec, expired := session.tick()
			if expired {
				log.Printf("[TestSession] Время попытки #%d истекло, принудительная отправка", session.AttemptID)
				st.deps.Events.SessionTimeUp(session.UserID, session.AttemptID)
				if st.onExpire != nil {
					st.onExpire(session.AttemptID)
				}
				return
			}
			st.deps.Events.SessionTick(session.UserID, session.AttemptID, remainingSec)

		case <-ctx.Done():
			return
		}
	}
}

func ownerKey(userID, assessmentID uint) string {
	return fmt.Sprintf("%d:%d", userID, assessmentID)
}
