package handler

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/service"
)

// AssessmentHandler обрабатывает запросы, связанные с итоговыми тестами
type AssessmentHandler struct {
	assessmentService  *service.AssessmentService
	questionService    *service.QuestionService
	resultService      *service.ResultService
	certificateService *service.CertificateService
}

// NewAssessmentHandler создает новый обработчик тестов
func NewAssessmentHandler(
	assessmentService *service.AssessmentService,
	questionService *service.QuestionService,
	resultService *service.ResultService,
	certificateService *service.CertificateService,
) *AssessmentHandler {
	return &AssessmentHandler{
		assessmentService:  assessmentService,
		questionService:    questionService,
		resultService:      resultService,
		certificateService: certificateService,
	}
}

// GetAssessment возвращает тест (без вопросов)
// GET /api/assessments/:id
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	assessmentID := c.MustGet("assessmentID").(uint)

	assessment, err := h.assessmentService.GetAssessment(assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// GetAssessmentQuestions возвращает вопросы теста (без флагов правильности)
// GET /api/assessments/:id/questions
func (h *AssessmentHandler) GetAssessmentQuestions(c *gin.Context) {
	assessmentID := c.MustGet("assessmentID").(uint)

	questions, err := h.questionService.GetAssessmentQuestions(assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// GetCourseAssessments возвращает тесты курса
// GET /api/courses/:id/assessments
func (h *AssessmentHandler) GetCourseAssessments(c *gin.Context) {
	courseID := c.MustGet("courseID").(uint)

	assessments, err := h.assessmentService.GetCourseAssessments(courseID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessments": assessments})
}

// AssessmentRequest представляет запрос на создание/обновление теста
type AssessmentRequest struct {
	Title             string `json:"title" binding:"required,min=3,max=150"`
	Description       string `json:"description" binding:"omitempty,max=1000"`
	TimeLimitMinutes  int    `json:"time_limit_minutes" binding:"min=0"`
	PassingPercentage int    `json:"passing_percentage" binding:"min=0,max=100"`
}

// CreateAssessment создает тест курса (только админ)
// POST /api/courses/:id/assessments
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	courseID := c.MustGet("courseID").(uint)

	var req AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assessment, err := h.assessmentService.CreateAssessment(courseID, req.Title, req.Description, req.TimeLimitMinutes, req.PassingPercentage)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assessment)
}

// UpdateAssessment обновляет тест (только админ)
// PUT /api/assessments/:id
func (h *AssessmentHandler) UpdateAssessment(c *gin.Context) {
	assessmentID := c.MustGet("assessmentID").(uint)

	var req AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assessment, err := h.assessmentService.UpdateAssessment(assessmentID, req.Title, req.Description, req.TimeLimitMinutes, req.PassingPercentage)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// DeleteAssessment удаляет тест (только админ)
// DELETE /api/assessments/:id
func (h *AssessmentHandler) DeleteAssessment(c *gin.Context) {
	assessmentID := c.MustGet("assessmentID").(uint)

	if err := h.assessmentService.DeleteAssessment(assessmentID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Assessment deleted"})
}

// OptionRequest представляет вариант ответа в запросе
type OptionRequest struct {
	Text      string `json:"text" binding:"required,max=500"`
	IsCorrect bool   `json:"is_correct"`
	Position  int    `json:"position"`
}

// QuestionRequest представляет запрос на создание/обновление вопроса
type QuestionRequest struct {
	VideoID      *uint           `json:"video_id"`
	AssessmentID *uint           `json:"assessment_id"`
	Text         string          `json:"text" binding:"required,max=500"`
	Type         string          `json:"type" binding:"required"`
	Position     int             `json:"position"`
	Options      []OptionRequest `json:"options"`
}

func (r *QuestionRequest) toEntity() *entity.Question {
	question := &entity.Question{
		VideoID:      r.VideoID,
		AssessmentID: r.AssessmentID,
		Text:         r.Text,
		Type:         r.Type,
		Position:     r.Position,
	}
	for _, o := range r.Options {
		question.Options = append(question.Options, entity.Option{
			Text:      o.Text,
			IsCorrect: o.IsCorrect,
			Position:  o.Position,
		})
	}
	return question
}

// CreateQuestion создает вопрос (только админ)
// POST /api/questions
func (h *AssessmentHandler) CreateQuestion(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.questionService.CreateQuestion(req.toEntity())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// CreateQuestionsBatch создает пакет вопросов одной транзакцией (только админ)
// POST /api/questions/batch
func (h *AssessmentHandler) CreateQuestionsBatch(c *gin.Context) {
	var req struct {
		Questions []QuestionRequest `json:"questions" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions := make([]entity.Question, 0, len(req.Questions))
	for i := range req.Questions {
		questions = append(questions, *req.Questions[i].toEntity())
	}

	created, err := h.questionService.CreateQuestions(questions)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"questions": created})
}

// UpdateQuestion обновляет вопрос (только админ)
// PUT /api/questions/:id
func (h *AssessmentHandler) UpdateQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question := req.toEntity()
	question.ID = questionID

	updated, err := h.questionService.UpdateQuestion(question)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteQuestion удаляет вопрос (только админ)
// DELETE /api/questions/:id
func (h *AssessmentHandler) DeleteQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	if err := h.questionService.DeleteQuestion(questionID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Question deleted"})
}

// IssueCertificate выдает сертификат за курс текущему пользователю
// POST /api/courses/:id/certificate
func (h *AssessmentHandler) IssueCertificate(c *gin.Context) {
	courseID := c.MustGet("courseID").(uint)
	userID := c.MustGet("user_id").(uint)

	certificate, err := h.certificateService.Issue(c.Request.Context(), userID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, certificate)
}

// ListMyCertificates возвращает все сертификаты текущего пользователя
// GET /api/certificates
func (h *AssessmentHandler) ListMyCertificates(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	certificates, err := h.certificateService.GetUserCertificates(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificates": certificates})
}

// GetCertificate возвращает сертификат пользователя за курс
// GET /api/courses/:id/certificate
func (h *AssessmentHandler) GetCertificate(c *gin.Context) {
	courseID := c.MustGet("courseID").(uint)
	userID := c.MustGet("user_id").(uint)

	certificate, err := h.certificateService.GetCertificate(userID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, certificate)
}

// ExportAttempts экспортирует попытки теста в CSV или Excel формате
// GET /api/assessments/:id/export?format=csv|xlsx
func (h *AssessmentHandler) ExportAttempts(c *gin.Context) {
	assessmentID := c.MustGet("assessmentID").(uint)
	format := c.DefaultQuery("format", "csv")

	rows, err := h.resultService.GetAssessmentAttempts(assessmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("assessment_%d_attempts_%s", assessmentID, time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, rows, filename)
	default:
		h.exportCSV(c, rows, filename)
	}
}

var exportHeaders = []string{"Попытка", "№", "Пользователь", "Email", "Результат (%)", "Пройден", "Время истекло", "Начата", "Завершена"}

func exportRowStrings(r service.AttemptExportRow) []string {
	score := ""
	if r.Score != nil {
		score = strconv.Itoa(*r.Score)
	}
	passed := ""
	if r.Passed != nil {
		if *r.Passed {
			passed = "Да"
		} else {
			passed = "Нет"
		}
	}
	timeUp := "Нет"
	if r.TimeUp {
		timeUp = "Да"
	}
	finished := ""
	if r.FinishedAt != nil {
		finished = r.FinishedAt.Format(time.RFC3339)
	}
	return []string{
		strconv.FormatUint(uint64(r.AttemptID), 10),
		strconv.Itoa(r.AttemptNumber),
		sanitizeForExcel(r.Username),
		sanitizeForExcel(r.Email),
		score,
		passed,
		timeUp,
		r.StartedAt.Format(time.RFC3339),
		finished,
	}
}

// exportCSV экспортирует попытки в CSV с правильным экранированием спецсимволов
func (h *AssessmentHandler) exportCSV(c *gin.Context, rows []service.AttemptExportRow, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for _, r := range rows {
		writer.Write(exportRowStrings(r))
	}
}

// exportXLSX экспортирует попытки в Excel с использованием StreamWriter
func (h *AssessmentHandler) exportXLSX(c *gin.Context, rows []service.AttemptExportRow, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Попытки"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[AssessmentHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, hdr := range exportHeaders {
		headers[i] = hdr
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[AssessmentHandler] Ошибка записи заголовков: %v", err)
	}

	for i, r := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		values := exportRowStrings(r)
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[AssessmentHandler] Ошибка записи строки %d: %v", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[AssessmentHandler] Ошибка при Flush: %v", err)
	}
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AssessmentHandler] Ошибка записи Excel в response: %v", err)
	}
}
