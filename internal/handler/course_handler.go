package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/lms-api/internal/service"
)

// CourseHandler обрабатывает запросы, связанные с курсами и видеоуроками
type CourseHandler struct {
	courseService   *service.CourseService
	progressService *service.ProgressService
	questionService *service.QuestionService
}

// NewCourseHandler создает новый обработчик курсов
func NewCourseHandler(
	courseService *service.CourseService,
	progressService *service.ProgressService,
	questionService *service.QuestionService,
) *CourseHandler {
	return &CourseHandler{
		courseService:   courseService,
		progressService: progressService,
		questionService: questionService,
	}
}

// ListCourses возвращает страницу каталога курсов
// GET /api/courses?page=&page_size=
func (h *CourseHandler) ListCourses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	courses, total, err := h.courseService.ListCourses(page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"courses":   courses,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetCourse возвращает курс с видео
// GET /api/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	courseID := c.MustGet("courseID").(uint)

	course, err := h.courseService.GetCourse(courseID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// GetCourseProgress возвращает прогресс текущего пользователя по курсу
// GET /api/courses/:id/progress
func (h *CourseHandler) GetCourseProgress(c *gin.Context) {
	courseID := c.MustGet("courseID").(uint)
	userID := c.MustGet("user_id").(uint)

	progress, err := h.progressService.GetCourseProgress(userID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// CourseRequest представляет запрос на создание/обновление курса
type CourseRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=150"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Thumbnail   string `json:"thumbnail" binding:"omitempty,max=255"`
}

// CreateCourse создает курс (только админ)
// POST /api/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course, err := h.courseService.CreateCourse(req.Title, req.Description, req.Thumbnail)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

// UpdateCourse обновляет курс (только админ)
// PUT /api/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	courseID := c.MustGet("courseID").(uint)

	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course, err := h.courseService.UpdateCourse(courseID, req.Title, req.Description, req.Thumbnail)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// DeleteCourse удаляет курс (только админ)
// DELETE /api/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	courseID := c.MustGet("courseID").(uint)

	if err := h.courseService.DeleteCourse(courseID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Course deleted"})
}

// VideoRequest представляет запрос на создание/обновление видеоурока
type VideoRequest struct {
	Title          string `json:"title" binding:"required,min=3,max=150"`
	YouTubeVideoID string `json:"youtube_video_id" binding:"required,max=20"`
	About          string `json:"about" binding:"omitempty,max=1000"`
	Thumbnail      string `json:"thumbnail" binding:"omitempty,max=255"`
	Position       int    `json:"position" binding:"omitempty,min=0"`
}

// AddVideo добавляет видеоурок к курсу (только админ)
// POST /api/courses/:id/videos
func (h *CourseHandler) AddVideo(c *gin.Context) {
	courseID := c.MustGet("courseID").(uint)

	var req VideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	video, err := h.courseService.AddVideo(courseID, req.Title, req.YouTubeVideoID, req.About, req.Thumbnail, req.Position)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, video)
}

// UpdateVideo обновляет видеоурок (только админ)
// PUT /api/videos/:id
func (h *CourseHandler) UpdateVideo(c *gin.Context) {
	videoID := c.MustGet("videoID").(uint)

	var req VideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	video, err := h.courseService.UpdateVideo(videoID, req.Title, req.YouTubeVideoID, req.About, req.Thumbnail, req.Position)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, video)
}

// DeleteVideo удаляет видеоурок (только админ)
// DELETE /api/videos/:id
func (h *CourseHandler) DeleteVideo(c *gin.Context) {
	videoID := c.MustGet("videoID").(uint)

	if err := h.courseService.DeleteVideo(videoID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Video deleted"})
}

// GetVideo возвращает видеоурок
// GET /api/videos/:id
func (h *CourseHandler) GetVideo(c *gin.Context) {
	videoID := c.MustGet("videoID").(uint)

	video, err := h.courseService.GetVideo(videoID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, video)
}

// GetCourseVideo возвращает видеоурок, проверяя его принадлежность курсу
// GET /api/courses/:id/videos/:videoID
func (h *CourseHandler) GetCourseVideo(c *gin.Context) {
	courseID := c.MustGet("courseID").(uint)
	videoID := c.MustGet("videoID").(uint)

	video, err := h.courseService.GetVideoInCourse(courseID, videoID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, video)
}

// GetVideoQuestions возвращает вопросы видео-квиза
// GET /api/videos/:id/questions
func (h *CourseHandler) GetVideoQuestions(c *gin.Context) {
	videoID := c.MustGet("videoID").(uint)

	questions, err := h.questionService.GetVideoQuestions(videoID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// WatchRequest представляет отметку о просмотре видео
type WatchRequest struct {
	Percentage int `json:"percentage" binding:"min=0,max=100"`
}

// MarkVideoWatched отмечает просмотр видео текущим пользователем
// POST /api/videos/:id/watch
func (h *CourseHandler) MarkVideoWatched(c *gin.Context) {
	videoID := c.MustGet("videoID").(uint)
	userID := c.MustGet("user_id").(uint)

	var req WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.progressService.MarkVideoWatched(userID, videoID, req.Percentage); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Progress saved"})
}

// VideoQuizRequest представляет ответы на видео-квиз
type VideoQuizRequest struct {
	Answers map[uint]uint `json:"answers" binding:"required"`
}

// SubmitVideoQuiz принимает ответы видео-квиза
// POST /api/videos/:id/quiz
func (h *CourseHandler) SubmitVideoQuiz(c *gin.Context) {
	videoID := c.MustGet("videoID").(uint)
	userID := c.MustGet("user_id").(uint)

	var req VideoQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.progressService.CompleteVideoQuiz(userID, videoID, service.VideoQuizSubmission{Answers: req.Answers})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
