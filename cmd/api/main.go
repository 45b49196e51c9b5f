package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/lms-api/internal/config"
	"github.com/yourusername/lms-api/internal/handler"
	"github.com/yourusername/lms-api/internal/middleware"
	pgRepo "github.com/yourusername/lms-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/lms-api/internal/repository/redis"
	"github.com/yourusername/lms-api/internal/service"
	"github.com/yourusername/lms-api/internal/service/testsession"
	"github.com/yourusername/lms-api/internal/websocket"
	"github.com/yourusername/lms-api/pkg/auth"
	"github.com/yourusername/lms-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Подключаемся к базе данных
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to run migrations: %v", err)
		os.Exit(1)
	}

	// Подключаемся к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	courseRepo := pgRepo.NewCourseRepo(db)
	videoRepo := pgRepo.NewVideoRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	assessmentRepo := pgRepo.NewAssessmentRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)
	answerRepo := pgRepo.NewAnswerRepo(db)
	progressRepo := pgRepo.NewProgressRepo(db)
	certificateRepo := pgRepo.NewCertificateRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize cache repository: %v", err)
		os.Exit(1)
	}

	// Сервис JWT
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// WebSocket hub: доставляет события сессий (тик таймера, истечение
	// времени, завершение попытки) подключенным клиентам
	hub := websocket.NewHub()
	go hub.Run()

	// Реестр активных сессий тестов. Hub выступает приёмником событий.
	sessions := testsession.NewStore(
		&testsession.Config{
			TickInterval:   cfg.Session.TickInterval,
			DebounceWindow: cfg.Session.DebounceWindow,
		},
		&testsession.Dependencies{
			AnswerRepo: answerRepo,
			Events:     hub,
		},
	)

	// Webhook о сдаче теста: пустой URL отключает отправку
	var notifier service.WebhookNotifier
	if cfg.Webhook.URL != "" {
		notifier = service.NewHTTPWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.Timeout)
		log.Printf("Webhook уведомления включены: %s", cfg.Webhook.URL)
	} else {
		notifier = &service.NoopWebhookNotifier{}
		log.Println("Webhook уведомления отключены (url не задан)")
	}

	// Отправка писем с сертификатами
	var emailService service.EmailService
	if cfg.Email.Enabled {
		emailService, err = service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize email service: %v", err)
			os.Exit(1)
		}
		log.Println("Отправка писем включена")
	} else {
		emailService = &service.NoopEmailService{}
		log.Println("Отправка писем отключена")
	}

	// Инициализируем сервисы
	authService := service.NewAuthService(userRepo, jwtService)
	courseService := service.NewCourseService(courseRepo, videoRepo, cacheRepo)
	questionService := service.NewQuestionService(questionRepo, cacheRepo, cfg.Session.QuestionCacheTTL)
	assessmentService := service.NewAssessmentService(assessmentRepo, courseRepo)
	attemptService := service.NewAttemptService(attemptRepo, assessmentRepo, answerRepo, questionService, sessions)
	resultService := service.NewResultService(attemptRepo, assessmentRepo, answerRepo, userRepo, sessions, notifier)
	progressService := service.NewProgressService(progressRepo, courseRepo, answerRepo, questionService)
	certificateService := service.NewCertificateService(
		certificateRepo, courseRepo, assessmentRepo, attemptRepo, userRepo, progressService, emailService,
	)

	// По истечении времени попытка отправляется на проверку автоматически
	sessions.SetExpiryHandler(resultService.ForceSubmit)

	// Инициализируем обработчики
	authHandler := handler.NewAuthHandler(authService)
	courseHandler := handler.NewCourseHandler(courseService, progressService, questionService)
	assessmentHandler := handler.NewAssessmentHandler(assessmentService, questionService, resultService, certificateService)
	attemptHandler := handler.NewAttemptHandler(attemptService, resultService, sessions)
	wsHandler := handler.NewWSHandler(hub, jwtService)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := os.Getenv("GIN_MODE") == "release"
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Проверка живости для балансировщика и мониторинга
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":             "healthy",
			"active_connections": hub.ConnectionCount(),
			"timestamp":          time.Now().Format(time.RFC3339),
		})
	})

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Аутентификация
		authGroup := api.Group("/auth")
		{
			limited := authGroup.Group("")
			limited.Use(rateLimiter.Limit(middleware.AuthRateLimitConfig()))
			{
				limited.POST("/register", authHandler.Register)
				limited.POST("/login", authHandler.Login)
			}

			authGroup.GET("/me", authMiddleware.RequireAuth(), authHandler.Me)
		}

		// Курсы
		courses := api.Group("/courses")
		{
			courses.GET("", courseHandler.ListCourses)

			courseWithID := courses.Group("/:id")
			courseWithID.Use(middleware.ExtractUintParam("id", "courseID"))
			{
				courseWithID.GET("", courseHandler.GetCourse)
				courseWithID.GET("/assessments", assessmentHandler.GetCourseAssessments)
				courseWithID.GET("/videos/:videoID",
					middleware.ExtractUintParam("videoID", "videoID"), courseHandler.GetCourseVideo)

				authedCourses := courseWithID.Group("")
				authedCourses.Use(authMiddleware.RequireAuth())
				{
					authedCourses.GET("/progress", courseHandler.GetCourseProgress)
					authedCourses.POST("/certificate", assessmentHandler.IssueCertificate)
					authedCourses.GET("/certificate", assessmentHandler.GetCertificate)
				}

				adminCourses := courseWithID.Group("")
				adminCourses.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
				{
					adminCourses.PUT("", courseHandler.UpdateCourse)
					adminCourses.DELETE("", courseHandler.DeleteCourse)
					adminCourses.POST("/videos", courseHandler.AddVideo)
					adminCourses.POST("/assessments", assessmentHandler.CreateAssessment)
				}
			}

			adminCreate := courses.Group("")
			adminCreate.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
			{
				adminCreate.POST("", courseHandler.CreateCourse)
			}
		}

		// Сертификаты текущего пользователя
		api.GET("/certificates", authMiddleware.RequireAuth(), assessmentHandler.ListMyCertificates)

		// Видеоуроки
		videos := api.Group("/videos/:id")
		videos.Use(middleware.ExtractUintParam("id", "videoID"))
		{
			videos.GET("", courseHandler.GetVideo)
			videos.GET("/questions", courseHandler.GetVideoQuestions)

			authedVideos := videos.Group("")
			authedVideos.Use(authMiddleware.RequireAuth())
			{
				authedVideos.POST("/watch", courseHandler.MarkVideoWatched)
				authedVideos.POST("/quiz", courseHandler.SubmitVideoQuiz)
			}

			adminVideos := videos.Group("")
			adminVideos.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
			{
				adminVideos.PUT("", courseHandler.UpdateVideo)
				adminVideos.DELETE("", courseHandler.DeleteVideo)
			}
		}

		// Итоговые тесты
		assessments := api.Group("/assessments/:id")
		assessments.Use(middleware.ExtractUintParam("id", "assessmentID"))
		{
			assessments.GET("", assessmentHandler.GetAssessment)
			assessments.GET("/questions", assessmentHandler.GetAssessmentQuestions)

			authedAssessments := assessments.Group("")
			authedAssessments.Use(authMiddleware.RequireAuth())
			{
				authedAssessments.POST("/attempts", attemptHandler.StartAttempt)
				authedAssessments.GET("/attempts/active", attemptHandler.ResumeAttempt)
				authedAssessments.GET("/attempts", attemptHandler.ListAttempts)
			}

			adminAssessments := assessments.Group("")
			adminAssessments.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
			{
				adminAssessments.PUT("", assessmentHandler.UpdateAssessment)
				adminAssessments.DELETE("", assessmentHandler.DeleteAssessment)
				adminAssessments.GET("/export", assessmentHandler.ExportAttempts)
			}
		}

		// Попытки прохождения тестов
		attempts := api.Group("/attempts/:id")
		attempts.Use(middleware.ExtractUintParam("id", "attemptID"), authMiddleware.RequireAuth())
		{
			attempts.PUT("/answers", rateLimiter.Limit(middleware.AnswerRateLimitConfig()), attemptHandler.RecordAnswer)
			attempts.GET("/answers", attemptHandler.GetAnswers)
			attempts.GET("/session", attemptHandler.GetSession)
			attempts.POST("/submit", attemptHandler.SubmitAttempt)
			attempts.GET("/summary", attemptHandler.GetSummary)
			attempts.DELETE("", attemptHandler.AbandonAttempt)
		}

		// Вопросы (только админ, ID видео/теста передаётся в теле)
		adminQuestions := api.Group("/questions")
		adminQuestions.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
		{
			adminQuestions.POST("", assessmentHandler.CreateQuestion)
			adminQuestions.POST("/batch", assessmentHandler.CreateQuestionsBatch)

			questionWithID := adminQuestions.Group("/:id")
			questionWithID.Use(middleware.ExtractUintParam("id", "questionID"))
			{
				questionWithID.PUT("", assessmentHandler.UpdateQuestion)
				questionWithID.DELETE("", assessmentHandler.DeleteQuestion)
			}
		}
	}

	// WebSocket маршрут
	router.GET("/ws", wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	// Останавливаем hub после сервера: активные соединения уже закрыты
	hub.Shutdown()

	log.Println("Server exited properly")
}
