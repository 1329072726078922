package main

import (
	"prediction-frames/internal/config"
	"prediction-frames/internal/database"
	"prediction-frames/internal/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Server.Env, cfg.Server.LogLevel)

	// Connect to database
	db, err := database.Open(cfg.Database.URL, cfg.Server.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	log.Info().Str("dialect", db.Dialector.Name()).Msg("Schema is up to date")
}
