package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sjperalta/firma-api/docs" // Swagger docs
	"github.com/sjperalta/firma-api/internal/config"
	"github.com/sjperalta/firma-api/internal/database"
	"github.com/sjperalta/firma-api/internal/handlers"
	"github.com/sjperalta/firma-api/internal/jobs"
	"github.com/sjperalta/firma-api/internal/middleware"
	"github.com/sjperalta/firma-api/internal/ratelimit"
	"github.com/sjperalta/firma-api/internal/repository"
	"github.com/sjperalta/firma-api/internal/services"
	"github.com/sjperalta/firma-api/internal/storage"
	"github.com/sjperalta/firma-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Firma API
// @version 1.0
// @description REST API for electronic contract signing with OTP verification
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry (GlitchTip) when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if !cfg.EmailConfigured() {
		logger.Warn("Resend email disabled: ENABLE_EMAIL_NOTIFICATIONS, RESEND_API_KEY or FROM_EMAIL not set. OTP codes will only go out by SMS.")
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	// Initialize storage
	store, err := newDocumentStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized document storage", "driver", cfg.StorageDriver)

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs, err := services.NewServices(repos, worker, store, cfg)
	if err != nil {
		logger.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}

	// OTP throttling
	limiter, closeLimiter := newLimiter(cfg, worker)

	// Schedule recurring jobs
	scheduler := jobs.NewScheduler(worker)
	if err := svcs.Job.RegisterSchedules(scheduler, cfg.IntegritySweepCron); err != nil {
		logger.Error("Failed to schedule jobs", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Scheduled recurring jobs", "integrity_sweep", cfg.IntegritySweepCron)

	// Initialize handlers
	h := handlers.NewHandlers(svcs)

	// Setup router
	router := setupRouter(h, cfg, limiter)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Let a running sweep finish, then stop the worker
	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		logger.Warn("Scheduled job still running at shutdown")
	}
	worker.Shutdown()
	logger.Info("Background worker stopped")

	closeLimiter()
	if err := database.Close(db); err != nil {
		logger.Error("Failed to close database", "error", err)
	}

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func newDocumentStore(cfg *config.Config) (storage.DocumentStore, error) {
	if cfg.StorageDriver == "minio" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return storage.NewLocalStorage(cfg.StoragePath)
}

// newLimiter uses Redis when configured so limits hold across instances,
// and falls back to process memory otherwise.
func newLimiter(cfg *config.Config, worker *jobs.Worker) (ratelimit.Limiter, func()) {
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		limiter, err := ratelimit.NewRedisLimiter(ctx, cfg.RedisURL)
		if err == nil {
			logger.Info("OTP rate limiting backed by Redis")
			return limiter, func() {
				if err := limiter.Close(); err != nil {
					logger.Warn("Failed to close Redis client", "error", err)
				}
			}
		}
		logger.Warn("Redis unavailable, using in-memory rate limiting", "error", err)
	}

	limiter := ratelimit.NewMemoryLimiter(0)
	sweepEvery := cfg.OTPRateWindow
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	worker.ScheduleEvery(sweepEvery, limiter.Sweep)
	return limiter, func() {}
}

func setupRouter(h *handlers.Handlers, cfg *config.Config, limiter ratelimit.Limiter) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Redirect root to swagger
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	h.Register(router.Group("/api"), handlers.RouteConfig{
		JWTSecret:     cfg.JWTSecret,
		Limiter:       limiter,
		OTPRateLimit:  cfg.OTPRateLimit,
		OTPRateWindow: cfg.OTPRateWindow,
	})

	return router
}
