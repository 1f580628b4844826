package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/s-ciobanu-r/jora-webapp/config"
	"github.com/s-ciobanu-r/jora-webapp/handler"
	"github.com/s-ciobanu-r/jora-webapp/middleware"
	"github.com/s-ciobanu-r/jora-webapp/model"
	"github.com/s-ciobanu-r/jora-webapp/pkg/logger"
	"github.com/s-ciobanu-r/jora-webapp/service"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// .env first so the config loader sees the overrides
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Storage: Postgres when a DSN is configured, otherwise drafts stay in
	// memory and buyer search / finalize replay are unavailable.
	var db *gorm.DB
	var draftRepo service.DraftRepo
	if cfg.Database.DSN != "" {
		db, err = gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := db.AutoMigrate(&model.DraftRecord{}, &model.IdempotencyRecord{}, &model.Buyer{}); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		draftRepo = service.NewGormDraftRepo(db)
		slog.Info("database connected")
	} else {
		draftRepo = service.NewMemDraftRepo(1000)
		slog.Warn("no database DSN configured, using in-memory draft store")
	}

	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	extractSvc := service.NewExtractService(&cfg.Extract)
	engineSvc := service.NewEngineService(&cfg.Engine)

	authHandler := handler.NewAuthHandler(cfg)
	draftHandler := handler.NewDraftHandler(draftRepo)
	uploadHandler := handler.NewUploadHandler(minioSvc)
	extractHandler := handler.NewExtractHandler(extractSvc)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())
	router.Use(middleware.RateLimit(100, time.Minute))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/contracts/draft", draftHandler.Upsert)
		protected.GET("/contracts/draft/:id", draftHandler.Get)
		protected.POST("/ocr/upload", uploadHandler.Upload)
		protected.POST("/ocr/extract", extractHandler.Extract)

		if db != nil {
			finalizeHandler := handler.NewFinalizeHandler(engineSvc, service.NewIdempotencyStore(db))
			buyerHandler := handler.NewBuyerHandler(service.NewBuyerService(db))
			protected.POST("/contracts/finalize", finalizeHandler.Finalize)
			protected.GET("/buyers/search", buyerHandler.Search)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
