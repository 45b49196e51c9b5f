package testsession

import (
	"log"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
)

// pendingWrite — отложенная запись свободного ответа. В каждом слоте
// (по вопросу) живёт не больше одной: новый ввод заменяет значение и
// перезапускает таймер, так что в БД уходит только последняя версия.
type pendingWrite struct {
	value AnswerValue
	timer *time.Timer
	fired bool
}

// RecordAnswer фиксирует ответ в памяти сессии и планирует его запись в БД.
// Выбор варианта пишется сразу; свободный текст — с дебаунсом, чтобы не
// бомбить БД на каждое нажатие клавиши. Память обновляется в любом случае,
// даже если запись в БД не удалась.
func (st *Store) RecordAnswer(attemptID, questionID uint, value AnswerValue) error {
	session, ok := st.Get(attemptID)
	if !ok {
		return ErrNoActiveSession
	}
	if err := session.recordAnswer(questionID, value); err != nil {
		return err
	}

	if value.IsOption() {
		// Выбор варианта — событие редкое, пишем немедленно
		if err := st.persist(session, questionID, value); err != nil {
			log.Printf("[TestSession] Ошибка записи ответа на вопрос #%d (попытка #%d): %v",
				questionID, attemptID, err)
			return err
		}
		return nil
	}

	st.schedulePending(session, questionID, value)
	return nil
}

// schedulePending ставит (или перезапускает) отложенную запись для вопроса
func (st *Store) schedulePending(session *Session, questionID uint, value AnswerValue) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if pw, ok := session.pending[questionID]; ok {
		// Таймер мог уже сработать — тогда слот создаётся заново
		if pw.timer.Stop() && !pw.fired {
			pw.value = value
			pw.timer.Reset(st.config.DebounceWindow)
			return
		}
	}

	pw := &pendingWrite{value: value}
	pw.timer = time.AfterFunc(st.config.DebounceWindow, func() {
		st.firePending(session, questionID, pw)
	})
	session.pending[questionID] = pw
}

// firePending выполняется по срабатыванию таймера дебаунса
func (st *Store) firePending(session *Session, questionID uint, pw *pendingWrite) {
	session.mu.Lock()
	if pw.fired || session.pending[questionID] != pw {
		session.mu.Unlock()
		return
	}
	pw.fired = true
	delete(session.pending, questionID)
	value := pw.value
	session.mu.Unlock()

	if err := st.persist(session, questionID, value); err != nil {
		log.Printf("[TestSession] Ошибка отложенной записи ответа на вопрос #%d (попытка #%d): %v",
			questionID, session.AttemptID, err)
	}
}

// FlushPending досрочно записывает все ожидающие ответы сессии. Каждая
// отложенная запись уходит в БД ровно один раз: слот либо гасится здесь,
// либо срабатывает по таймеру, но не дважды. Вызывается перед подсчётом
// результата и при сбросе сессии.
func (st *Store) FlushPending(attemptID uint) error {
	session, ok := st.Get(attemptID)
	if !ok {
		return ErrNoActiveSession
	}
	return st.flushPending(session)
}

func (st *Store) flushPendingAll(session *Session) {
	if err := st.flushPending(session); err != nil {
		log.Printf("[TestSession] Ошибка дозаписи ответов при сбросе сессии #%d: %v",
			session.AttemptID, err)
	}
}

func (st *Store) flushPending(session *Session) error {
	session.mu.Lock()
	flush := make(map[uint]AnswerValue, len(session.pending))
	for qid, pw := range session.pending {
		pw.timer.Stop()
		// Таймер мог уже сработать, пока firePending ждёт мьютекс: слот
		// забирается здесь, а флаг fired не даст записи уйти дважды
		if !pw.fired {
			pw.fired = true
			flush[qid] = pw.value
		}
		delete(session.pending, qid)
	}
	session.mu.Unlock()

	var firstErr error
	for qid, value := range flush {
		if err := st.persist(session, qid, value); err != nil {
			log.Printf("[TestSession] Ошибка дозаписи ответа на вопрос #%d (попытка #%d): %v",
				qid, session.AttemptID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// persist пишет ответ в БД через upsert по паре (попытка, вопрос)
func (st *Store) persist(session *Session, questionID uint, value AnswerValue) error {
	answer := &entity.Answer{
		AttemptID:        session.AttemptID,
		QuestionID:       questionID,
		SelectedOptionID: value.OptionID,
	}
	if !value.IsOption() {
		answer.AnswerText = value.Text
	}
	return st.deps.AnswerRepo.Upsert(answer)
}
