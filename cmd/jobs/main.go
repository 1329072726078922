package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"prediction-frames/internal/config"
	"prediction-frames/internal/database"
	"prediction-frames/internal/jobs"
	"prediction-frames/internal/logger"
	"prediction-frames/internal/repository"
	"prediction-frames/internal/services"

	"github.com/rs/zerolog/log"
)

func main() {
	job := flag.String("job", jobs.JobAll, "job to run: "+strings.Join(append(jobs.Names(), jobs.JobAll), ", "))
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Server.Env, cfg.Server.LogLevel)

	db, err := database.Open(cfg.Database.URL, cfg.Server.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var lease jobs.Lease = jobs.NoopLease{}
	if cfg.Redis.URL != "" {
		redisClient, err := database.ConnectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		lease = jobs.NewRedisLease(redisClient)
	}

	repo := repository.NewRepository(db)
	maintenance := jobs.NewMaintenance(repo, services.NewStatsService(repo), lease, cfg.Jobs.CleanupRetention)

	if err := maintenance.Run(ctx, *job); err != nil {
		log.Error().Err(err).Str("job", *job).Msg("Job run failed")
		os.Exit(1)
	}
	log.Info().Str("job", *job).Msg("Job run finished")
}
