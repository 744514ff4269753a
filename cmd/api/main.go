package main

import (
	"context"
	"os"
	"strconv"
	"time"

	_ "invoicing-backend/api/swagger" // swagger docs
	"invoicing-backend/internal/database"
	"invoicing-backend/internal/event"
	"invoicing-backend/internal/handler"
	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/repository"
	"invoicing-backend/internal/service"
	"invoicing-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// @title           Invoicing API
// @version         1.0
// @description     Back office API for client invoicing: clients, products, invoice lifecycle and payments.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load("configs/.env"); err != nil {
		logger.Info().Msg("No configs/.env file found, using environment")
	}

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "invoicing")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("Database connection failed")
	}
	logger.Info().Msg("Connected to PostgreSQL")

	// WebSocket hub for pushing invoice lifecycle updates to the frontend.
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	// Repositories
	invoiceRepo := repository.NewInvoiceRepository(db)
	clientRepo := repository.NewClientRepository(db)
	productRepo := repository.NewProductRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)
	eventLogRepo := repository.NewEventLogRepository(db)
	txManager := repository.NewTransactionManager(db)

	// Event dispatcher: subscribers run after the invoice transaction commits.
	paymentService := service.NewPaymentService(paymentRepo)
	notificationService := service.NewNotificationService(notificationRepo, wsHub)
	eventRecorder := service.NewEventRecorder(eventLogRepo)

	dispatcher := event.NewDispatcher(logger)
	dispatcher.Subscribe(paymentService)
	dispatcher.Subscribe(notificationService)
	dispatcher.Subscribe(eventRecorder)

	// Services
	numbers := service.NewNumberGenerator(invoiceRepo, envOr("INVOICE_PREFIX", service.DefaultInvoicePrefix))
	invoiceService := service.NewInvoiceService(
		invoiceRepo, clientRepo, productRepo, txManager, numbers, dispatcher,
		envOr("DEFAULT_CURRENCY", "EUR"),
	)
	clientService := service.NewClientService(clientRepo)
	productService := service.NewProductService(productRepo)
	userService := service.NewUserService(userRepo)
	dashboardService := service.NewDashboardService(db)

	// Background sweep: sent invoices past their due date become overdue.
	sweepMinutes, err := strconv.Atoi(envOr("OVERDUE_SWEEP_MINUTES", "15"))
	if err != nil || sweepMinutes <= 0 {
		sweepMinutes = 15
	}
	sweeper := service.NewOverdueSweeper(invoiceRepo, time.Duration(sweepMinutes)*time.Minute, logger)
	go sweeper.Run(context.Background())

	// Handlers
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, paymentService)
	clientHandler := handler.NewClientHandler(clientService)
	productHandler := handler.NewProductHandler(productService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	userHandler := handler.NewUserHandler(userService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	invoiceHandler.RegisterRoutes(router.Group(""))
	clientHandler.RegisterRoutes(router.Group(""))
	productHandler.RegisterRoutes(router.Group(""))
	notificationHandler.RegisterRoutes(router.Group(""))
	userHandler.RegisterRoutes(router.Group(""))
	dashboardHandler.RegisterRoutes(router.Group(""))

	port := envOr("PORT", "8080")
	logger.Info().Str("port", port).Msg("Server listening")
	if err := router.Run(":" + port); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}
