package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prediction-frames/internal/auth"
	"prediction-frames/internal/config"
	"prediction-frames/internal/database"
	"prediction-frames/internal/handlers"
	"prediction-frames/internal/jobs"
	"prediction-frames/internal/logger"
	"prediction-frames/internal/neynar"
	"prediction-frames/internal/repository"
	"prediction-frames/internal/router"
	"prediction-frames/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.Server.Env, cfg.Server.LogLevel)
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.Database.URL, cfg.Server.Env); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Run migrations
	if err := database.AutoMigrate(database.GetDB()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	if cfg.Social.APIKey == "" {
		log.Warn().Msg("NEYNAR_API_KEY is not set; frame actions will fail validation")
	}

	// Initialize services
	repo := repository.NewRepository(database.GetDB())
	socialClient := neynar.NewClient(cfg.Social.BaseURL, cfg.Social.APIKey)
	statsService := services.NewStatsService(repo)
	marketService := services.NewMarketService(repo, statsService)
	predictionService := services.NewPredictionService(repo, statsService)
	userService := services.NewUserService(repo, socialClient, statsService)
	frameService := services.NewFrameService(repo, userService, predictionService, cfg.App.BaseURL, cfg.App.FrameDefaultAmount)

	// Job lease: Redis when configured, otherwise single-instance
	var lease jobs.Lease = jobs.NoopLease{}
	if cfg.Redis.URL != "" {
		redisClient, err := database.ConnectRedis(context.Background(), cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		lease = jobs.NewRedisLease(redisClient)
	}
	maintenance := jobs.NewMaintenance(repo, statsService, lease, cfg.Jobs.CleanupRetention)

	// Start maintenance scheduler
	scheduler := jobs.NewScheduler(maintenance,
		jobs.Schedule{Job: jobs.JobExpireMarkets, Interval: cfg.Jobs.ExpireInterval},
		jobs.Schedule{Job: jobs.JobUpdateLeaderboard, Interval: cfg.Jobs.LeaderboardInterval},
		jobs.Schedule{Job: jobs.JobCleanup, Interval: cfg.Jobs.CleanupInterval},
	)
	scheduler.Start()

	// Set up router
	engine := router.New(router.Handlers{
		Auth:        handlers.NewAuthHandler(userService),
		Markets:     handlers.NewMarketHandler(marketService, cfg.IsAdmin),
		Predictions: handlers.NewPredictionHandler(predictionService),
		Stats:       handlers.NewStatsHandler(statsService),
		Frames:      handlers.NewFrameHandler(frameService),
		Jobs:        handlers.NewJobHandler(maintenance, cfg.Jobs.Secret),
	}, cfg.Server.FrontendURL, cfg.App.BaseURL)

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("env", cfg.Server.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
