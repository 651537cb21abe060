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

	"github.com/yourusername/lernbank-api/internal/config"
	"github.com/yourusername/lernbank-api/internal/handler"
	"github.com/yourusername/lernbank-api/internal/middleware"
	pgRepo "github.com/yourusername/lernbank-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/lernbank-api/internal/repository/redis"
	"github.com/yourusername/lernbank-api/internal/service"
	"github.com/yourusername/lernbank-api/pkg/database"
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
	templateRepo := pgRepo.NewTemplateRepo(db)
	feedbackRepo := pgRepo.NewFeedbackRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Конфигурация движка банка и пространство таксономии
	engineConfig := cfg.Bank.EngineConfig()
	taxonomySpace := cfg.Bank.TaxonomySpace()

	// Инициализируем сервисы
	templateService := service.NewTemplateService(templateRepo, engineConfig)
	sessionService := service.NewSessionService(templateRepo, engineConfig)
	feedbackService := service.NewFeedbackService(templateRepo, feedbackRepo, engineConfig)
	rotationService := service.NewRotationService(templateRepo, cacheRepo, engineConfig)
	coverageService := service.NewCoverageService(templateRepo, cacheRepo, taxonomySpace, engineConfig)

	// Инициализируем обработчики
	sessionHandler := handler.NewSessionHandler(sessionService)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService)
	bankHandler := handler.NewBankHandler(templateService, coverageService, rotationService)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	isProduction := gin.Mode() == gin.ReleaseMode

	router := gin.Default()

	// В production не доверяем прокси-заголовкам (защита от IP spoofing),
	// в development доверяем localhost
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
		api.POST("/session", sessionHandler.SelectSession)

		feedback := api.Group("/feedback")
		feedback.Use(rateLimiter.Limit(middleware.DefaultFeedbackRateLimitConfig()))
		{
			feedback.POST("/answer", feedbackHandler.RecordAnswer)
			feedback.POST("/rating", feedbackHandler.RecordRating)
			feedback.POST("/emoji", feedbackHandler.RecordEmoji)
		}
		api.POST("/feedback/cleanup",
			rateLimiter.Limit(middleware.CuratorRateLimitConfig()),
			feedbackHandler.CleanupFeedback)

		coverage := api.Group("/coverage")
		{
			coverage.GET("", bankHandler.GetCoverage)
			coverage.GET("/queue", bankHandler.GetPriorityQueue)
		}

		rotate := api.Group("/rotate")
		{
			rotate.POST("/sweep", bankHandler.SweepAndArchive)
			rotate.POST("/ensure-pool", bankHandler.EnsureMinimumPool)
			rotate.GET("/optimal", bankHandler.GetOptimalTemplate)
			rotate.GET("/status", bankHandler.GetRotationStatus)
		}

		templates := api.Group("/templates")
		{
			templates.POST("", bankHandler.InsertCandidates)
			templates.GET("/:id",
				middleware.ExtractUUIDParam("id", "templateID"),
				bankHandler.GetTemplate)
			templates.GET("/:id/feedback",
				middleware.ExtractUUIDParam("id", "templateID"),
				feedbackHandler.ListFeedback)

			curatorOps := templates.Group("")
			curatorOps.Use(rateLimiter.Limit(middleware.CuratorRateLimitConfig()))
			{
				curatorOps.PUT("/:id",
					middleware.ExtractUUIDParam("id", "templateID"),
					bankHandler.UpdateTemplate)
				curatorOps.DELETE("/:id",
					middleware.ExtractUUIDParam("id", "templateID"),
					bankHandler.DeleteTemplate)
				curatorOps.POST("/import", bankHandler.ImportTemplates)
				curatorOps.GET("/export", bankHandler.ExportTemplates)
				curatorOps.POST("/cleanup", bankHandler.CleanupTemplates)
			}
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

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

	// Ожидаем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Контекст с таймаутом для graceful shutdown
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
