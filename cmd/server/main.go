package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourorg/bloodlink/internal/cache"
	"github.com/yourorg/bloodlink/internal/config"
	"github.com/yourorg/bloodlink/internal/events"
	"github.com/yourorg/bloodlink/internal/handler"
	"github.com/yourorg/bloodlink/internal/middleware"
	"github.com/yourorg/bloodlink/internal/model"
	"github.com/yourorg/bloodlink/internal/repository"
	"github.com/yourorg/bloodlink/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Connect to database
	db, err := connectToDB(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis client (if enabled)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logger.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
			redisClient = nil
		} else {
			logger.Info("Connected to Redis", zap.String("address", cfg.Redis.URL))
		}
	}

	// Initialize Kafka producer (if enabled)
	var producer *events.Producer
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer producer.Close()
		logger.Info("Initialized Kafka producer", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	registerValidations()

	// Create repositories
	userRepo := repository.NewUserRepository(db, logger)
	requestRepo := repository.NewRequestRepository(db, logger)
	notificationRepo := repository.NewNotificationRepository(db, logger)
	inventoryRepo := repository.NewInventoryRepository(db, logger)
	appointmentRepo := repository.NewAppointmentRepository(db, logger)

	// Create services
	countCache := cache.NewNotificationCache(redisClient, cfg.Redis.CountTTL, logger)
	minDays := cfg.Eligibility.MinDaysBetweenDonations

	authService := service.NewAuthService(userRepo, cfg.Auth, logger)
	notificationService := service.NewNotificationService(notificationRepo, countCache, minDays, logger)
	requestService := service.NewRequestService(requestRepo, userRepo, notificationService, producer, logger)
	donorService := service.NewDonorService(userRepo, minDays, logger)
	inventoryService := service.NewInventoryService(inventoryRepo, userRepo, logger)
	appointmentService := service.NewAppointmentService(appointmentRepo, userRepo, notificationService, logger)

	// Create HTTP server
	router := setupRouter(
		authService,
		requestService,
		notificationService,
		donorService,
		inventoryService,
		appointmentService,
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func createLogger(level string) (*zap.Logger, error) {
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

func connectToDB(dbConfig config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.DBName,
		dbConfig.SSLMode,
	)

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(dbConfig.MaxOpenConns)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	return db, nil
}

// registerValidations adds the bloodgroup rule used by binding tags
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bloodgroup", func(fl validator.FieldLevel) bool {
			return model.ValidBloodGroup(fl.Field().String())
		})
	}
}

func setupRouter(
	authService *service.AuthService,
	requestService *service.RequestService,
	notificationService *service.NotificationService,
	donorService *service.DonorService,
	inventoryService *service.InventoryService,
	appointmentService *service.AppointmentService,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	v1 := router.Group("/api/v1")
	{
		// ==================== AUTH ROUTES ====================
		auth := v1.Group("/auth")
		{
			authHandler := handler.NewAuthHandler(authService, logger)
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// ==================== PROTECTED ROUTES ====================
		protected := v1.Group("")
		protected.Use(middleware.Auth(authService, logger))
		{
			authHandler := handler.NewAuthHandler(authService, logger)
			requestHandler := handler.NewRequestHandler(requestService, logger)
			notifHandler := handler.NewNotificationHandler(notificationService, logger)
			donorHandler := handler.NewDonorHandler(donorService, logger)
			inventoryHandler := handler.NewInventoryHandler(inventoryService, logger)
			apptHandler := handler.NewAppointmentHandler(appointmentService, logger)

			protected.GET("/users/me", authHandler.Me)

			// Blood request lifecycle
			protected.GET("/requests", requestHandler.List)
			protected.POST("/requests", requestHandler.Create)
			protected.GET("/requests/:id", requestHandler.Get)
			protected.PUT("/requests/:id/accept", requestHandler.Accept)
			protected.PUT("/requests/:id/reject", requestHandler.Reject)
			protected.PUT("/requests/:id/ignore", requestHandler.Ignore)
			protected.PUT("/requests/:id/dispatch", requestHandler.Dispatch)
			protected.PUT("/requests/:id/complete", requestHandler.Complete)
			protected.PUT("/requests/:id/cancel", requestHandler.Cancel)
			protected.DELETE("/requests/:id", requestHandler.Delete)

			// Notifications (the polling surface)
			protected.GET("/notifications", notifHandler.List)
			protected.GET("/notifications/count", notifHandler.UnreadCount)
			protected.PUT("/notifications/:id/read", notifHandler.MarkRead)
			protected.PUT("/notifications/read-all", notifHandler.MarkAllRead)

			// Eligibility search
			protected.GET("/donors",
				middleware.RequireRole(model.RoleHospital, model.RoleAdmin),
				donorHandler.Search)

			// Hospital stock
			protected.GET("/inventory", inventoryHandler.Get)
			protected.PUT("/inventory",
				middleware.RequireRole(model.RoleHospital, model.RoleAdmin),
				inventoryHandler.Set)

			// Donation appointments
			protected.POST("/appointments", apptHandler.Create)
			protected.GET("/appointments", apptHandler.List)
			protected.PUT("/appointments/:id/accept", apptHandler.Accept)
			protected.PUT("/appointments/:id/reject", apptHandler.Reject)
			protected.PUT("/appointments/:id/cancel", apptHandler.Cancel)
			protected.PUT("/appointments/:id/complete", apptHandler.Complete)

			// ==================== ADMIN ROUTES ====================
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(model.RoleAdmin))
			{
				admin.GET("/users", authHandler.ListUsers)
			}
		}
	}

	return router
}
