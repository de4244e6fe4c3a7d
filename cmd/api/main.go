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

	"github.com/yourusername/study-assistant-api/internal/config"
	"github.com/yourusername/study-assistant-api/internal/handler"
	"github.com/yourusername/study-assistant-api/internal/middleware"
	pgRepo "github.com/yourusername/study-assistant-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/study-assistant-api/internal/repository/redis"
	"github.com/yourusername/study-assistant-api/internal/service"
	"github.com/yourusername/study-assistant-api/internal/service/generation"
	"github.com/yourusername/study-assistant-api/pkg/auth"
	"github.com/yourusername/study-assistant-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	quizRepo := pgRepo.NewQuizRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	participantRepo := pgRepo.NewParticipantRepo(db)
	resultRepo := pgRepo.NewResultRepo(db)
	noteRepo := pgRepo.NewNoteRepo(db)
	verificationRepo := pgRepo.NewEmailVerificationRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Инициализируем JWT сервис
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Инициализируем клиент генерации с пулом ключей
	keyPool, err := generation.NewKeyPool(cfg.GenAI.APIKeys)
	if err != nil {
		log.Printf("Failed to initialize generation key pool: %v", err)
		os.Exit(1)
	}
	generator, err := generation.NewClient(
		keyPool,
		cfg.GenAI.Model,
		cfg.GenAI.Endpoint,
		time.Duration(cfg.GenAI.RequestTimeoutSec)*time.Second,
		cfg.GenAI.MaxAttempts,
	)
	if err != nil {
		log.Printf("Failed to initialize generation client: %v", err)
		os.Exit(1)
	}

	// Сервис отправки писем: без API ключа письма заменяются записью в лог
	var emailService service.EmailService
	if cfg.Email.ResendAPIKey != "" {
		emailService, err = service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.FromAddress)
		if err != nil {
			log.Printf("Failed to initialize email service: %v", err)
			os.Exit(1)
		}
	} else {
		log.Println("RESEND_API_KEY не задан, используется noop отправка писем")
		emailService = &service.NoopEmailService{}
	}

	verificationService, err := service.NewEmailVerificationService(
		userRepo,
		verificationRepo,
		emailService,
		time.Duration(cfg.Email.OTPTTLMinutes)*time.Minute,
		time.Duration(cfg.Email.OTPResendCooldownSec)*time.Second,
		5,
		cfg.JWT.Secret, // pepper для хеширования кодов
	)
	if err != nil {
		log.Printf("Failed to initialize email verification service: %v", err)
		os.Exit(1)
	}

	// Инициализируем сервисы
	timingService := service.NewTimingService(cacheRepo)
	quizService := service.NewQuizService(db, quizRepo, questionRepo, generator,
		cfg.Quiz.DefaultDurationMin, cfg.Quiz.RoomCodeAttempts)
	lobbyService := service.NewLobbyService(db, quizRepo, questionRepo, participantRepo, timingService)
	resultService := service.NewResultService(db, quizRepo, questionRepo, participantRepo, resultRepo, timingService)
	authService := service.NewAuthService(userRepo, jwtService, verificationService)
	notesService := service.NewNotesService(noteRepo, generator, nil)
	selfQuizService := service.NewSelfQuizService(cacheRepo, noteRepo, generator)

	// Инициализируем обработчики
	authHandler := handler.NewAuthHandler(authService, verificationService)
	userHandler := handler.NewUserHandler(authService)
	roomHandler := handler.NewRoomHandler(quizService, lobbyService, resultService, timingService, authService)
	notesHandler := handler.NewNotesHandler(notesService, selfQuizService)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode
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

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Аутентификация
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/verify-email", authHandler.VerifyEmail)
			authGroup.POST("/verify-email/resend", authHandler.ResendCode)
			authGroup.POST("/login", authHandler.Login)
		}

		// Пользователи
		users := api.Group("/users")
		users.Use(authMiddleware.RequireAuth())
		{
			users.GET("/me", userHandler.Me)
		}

		// Комнаты-викторины
		rooms := api.Group("/rooms")
		rooms.Use(authMiddleware.RequireAuth())
		{
			rooms.POST("", roomHandler.CreateRoom)
			rooms.POST("/join", roomHandler.Join)

			roomWithCode := rooms.Group("/:code")
			roomWithCode.Use(middleware.ExtractRoomCode("code", "roomCode"))
			{
				roomWithCode.GET("", roomHandler.Lobby)
				roomWithCode.GET("/status", roomHandler.Status)
				roomWithCode.POST("/start", roomHandler.Start)
				roomWithCode.POST("/leave", roomHandler.Leave)
				roomWithCode.GET("/quiz", roomHandler.QuizPage)
				roomWithCode.POST("/submit", roomHandler.Submit)
				roomWithCode.GET("/results", roomHandler.Results)
				roomWithCode.GET("/results/data", roomHandler.ResultsData)
				roomWithCode.GET("/results/export", roomHandler.ExportResults)
			}
		}

		// Конспекты
		notes := api.Group("/notes")
		notes.Use(authMiddleware.RequireAuth())
		{
			notes.POST("/generate", notesHandler.Generate)
			notes.POST("/ask", notesHandler.Ask)
			notes.POST("/quiz", notesHandler.SelfQuiz)
			notes.POST("/quiz/submit", notesHandler.SelfQuizSubmit)
			notes.GET("", notesHandler.List)
		}
	}

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

	// Контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
