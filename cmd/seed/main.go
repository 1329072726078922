package main

import (
	"context"
	"time"

	"prediction-frames/internal/config"
	"prediction-frames/internal/database"
	"prediction-frames/internal/logger"
	"prediction-frames/internal/repository"
	"prediction-frames/internal/seed"
	"prediction-frames/internal/services"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Server.Env, cfg.Server.LogLevel)

	db, err := database.Open(cfg.Database.URL, cfg.Server.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	repo := repository.NewRepository(db)
	if _, err := seed.Run(context.Background(), repo, services.NewStatsService(repo), time.Now().UTC()); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed database")
	}
}
