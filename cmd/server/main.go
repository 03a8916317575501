package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"github.com/danaingraham/storyhealer/internal/ai"
	"github.com/danaingraham/storyhealer/internal/config"
	"github.com/danaingraham/storyhealer/internal/database"
	"github.com/danaingraham/storyhealer/internal/handler"
	"github.com/danaingraham/storyhealer/internal/logger"
	"github.com/danaingraham/storyhealer/internal/repository"
	"github.com/danaingraham/storyhealer/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Connecting to database...")
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Database connection established")

	log.Info("Applying database migrations...")
	if err := database.ApplyMigrations(cfg.Database.DSN()); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}
	log.Info("Database migrations applied")

	aiClient, err := ai.New(cfg.AI, log)
	if err != nil {
		log.Fatal("Failed to initialize AI client", zap.Error(err))
	}

	storyRepo := repository.NewPgStoryRepository(log)
	pageRepo := repository.NewPgPageRepository(log)
	conversationRepo := repository.NewPgConversationRepository(log)
	characterRepo := repository.NewPgCharacterRepository(log)
	txManager := repository.NewPgTxManager(pool, log)

	retryPolicy := service.DefaultImageRetryPolicy()

	classifier := service.NewIntentClassifier(aiClient, log)
	textMutator := service.NewTextMutator(pageRepo, pool, aiClient, log)
	imageMutator := service.NewImageMutator(pageRepo, pool, aiClient, aiClient, retryPolicy, log)
	globalMutator := service.NewGlobalMutator(characterRepo, pageRepo, pool, aiClient, log)

	storyService := service.NewStoryService(storyRepo, pageRepo, characterRepo, pool, txManager, aiClient, log)
	chatService := service.NewChatService(storyRepo, pageRepo, characterRepo, conversationRepo, pool,
		classifier, textMutator, imageMutator, globalMutator, log)
	holisticRewriter := service.NewHolisticRewriter(storyRepo, pageRepo, characterRepo, pool, txManager,
		aiClient, aiClient, log)
	sequenceManager := service.NewSequenceManager(storyRepo, pageRepo, characterRepo, pool, txManager,
		aiClient, aiClient, retryPolicy, log)
	illustrationService := service.NewIllustrationService(storyRepo, pageRepo, characterRepo, pool,
		aiClient, retryPolicy, cfg.AI.ImageInterval(), log)
	profileService := service.NewProfileService(characterRepo, storyRepo, conversationRepo, pool, log)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.ZapLoggingMiddleware(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-User-ID", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	prom := ginprometheus.NewPrometheus("gin")
	prom.Use(router)

	metrics := handler.NewMetrics()
	storyHandler := handler.NewStoryHandler(storyService, chatService, holisticRewriter,
		sequenceManager, illustrationService, profileService, metrics, log)
	storyHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("Starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}
