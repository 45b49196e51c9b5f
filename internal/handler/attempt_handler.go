package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/lms-api/internal/service"
	"github.com/yourusername/lms-api/internal/service/testsession"
)

// AttemptHandler обрабатывает запросы жизненного цикла попыток
type AttemptHandler struct {
	attemptService *service.AttemptService
	resultService  *service.ResultService
	sessions       *testsession.Store
}

// NewAttemptHandler создает новый обработчик попыток
func NewAttemptHandler(
	attemptService *service.AttemptService,
	resultService *service.ResultService,
	sessions *testsession.Store,
) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		resultService:  resultService,
		sessions:       sessions,
	}
}

// StartAttempt начинает новую попытку прохождения теста
// POST /api/assessments/:id/attempts
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	assessmentID := c.MustGet("assessmentID").(uint)
	userID := c.MustGet("user_id").(uint)

	state, err := h.attemptService.Start(c.Request.Context(), userID, assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, state)
}

// ResumeAttempt восстанавливает незавершённую попытку по тесту
// GET /api/assessments/:id/attempts/active
func (h *AttemptHandler) ResumeAttempt(c *gin.Context) {
	assessmentID := c.MustGet("assessmentID").(uint)
	userID := c.MustGet("user_id").(uint)

	state, err := h.attemptService.Resume(c.Request.Context(), userID, assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// ListAttempts возвращает историю попыток пользователя по тесту
// GET /api/assessments/:id/attempts
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	assessmentID := c.MustGet("assessmentID").(uint)
	userID := c.MustGet("user_id").(uint)

	attempts, err := h.attemptService.ListAttempts(userID, assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

// AnswerRequest представляет ответ на вопрос в рамках попытки
type AnswerRequest struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	OptionID   *uint  `json:"option_id"`
	Text       string `json:"text" binding:"omitempty,max=10000"`
}

// RecordAnswer принимает ответ на вопрос
// PUT /api/attempts/:id/answers
func (h *AttemptHandler) RecordAnswer(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)
	userID := c.MustGet("user_id").(uint)

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.attemptService.RecordAnswer(userID, attemptID, req.QuestionID, req.OptionID, req.Text); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Answer saved"})
}

// GetAnswers возвращает сохранённые ответы попытки (восстановление при
// возврате к тесту)
// GET /api/attempts/:id/answers
func (h *AttemptHandler) GetAnswers(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)
	userID := c.MustGet("user_id").(uint)

	answers, err := h.attemptService.ListAnswers(userID, attemptID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"answers": answers})
}

// GetSession возвращает состояние сессии попытки (навигационный guard)
// GET /api/attempts/:id/session
func (h *AttemptHandler) GetSession(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)
	userID := c.MustGet("user_id").(uint)

	// Проверка владельца выполняется по записи попытки
	if _, err := h.attemptService.GetAttempt(userID, attemptID); err != nil {
		respondError(c, err)
		return
	}

	session, ok := h.sessions.Get(attemptID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}

	c.JSON(http.StatusOK, session.Snapshot())
}

// SubmitAttempt отправляет попытку на проверку
// POST /api/attempts/:id/submit
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)
	userID := c.MustGet("user_id").(uint)

	result, err := h.resultService.Submit(c.Request.Context(), userID, attemptID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSummary возвращает итог завершённой попытки
// GET /api/attempts/:id/summary
func (h *AttemptHandler) GetSummary(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)
	userID := c.MustGet("user_id").(uint)

	result, err := h.resultService.GetSummary(userID, attemptID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AbandonAttempt сбрасывает сессию попытки при уходе с теста
// DELETE /api/attempts/:id
func (h *AttemptHandler) AbandonAttempt(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)
	userID := c.MustGet("user_id").(uint)

	if err := h.attemptService.Abandon(userID, attemptID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session cleared"})
}
