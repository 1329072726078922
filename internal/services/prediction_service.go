package services

import (
	"context"
	"errors"
	"time"

	"prediction-frames/internal/errs"
	"prediction-frames/internal/models"
	"prediction-frames/internal/repository"

	"github.com/rs/zerolog/log"
)

// PredictionService records stakes and keeps stats in step
type PredictionService struct {
	repo  *repository.Repository
	stats *StatsService
	now   func() time.Time
}

// NewPredictionService creates a new PredictionService
func NewPredictionService(repo *repository.Repository, stats *StatsService) *PredictionService {
	return &PredictionService{
		repo:  repo,
		stats: stats,
		now:   utcNow,
	}
}

// RecordPrediction stakes amount on choice for userID. The (market, user)
// unique index is the authoritative duplicate guard; the pre-check only gives
// the sequential case a friendlier path to the same Conflict.
func (s *PredictionService) RecordPrediction(
	ctx context.Context,
	userID string,
	marketID string,
	choice models.Choice,
	amount int64,
) (*models.Prediction, error) {
	if marketID == "" || userID == "" {
		return nil, errs.Validation("Missing required fields")
	}
	if !choice.Valid() {
		return nil, errs.Validation("Invalid choice")
	}
	if amount <= 0 {
		return nil, errs.Validation("Amount must be positive")
	}

	market, err := s.repo.GetMarketByID(ctx, marketID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.NotFound("Market not found")
		}
		return nil, errs.Upstream("Failed to create prediction", err)
	}
	if err := checkOpen(market, s.now()); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPrediction(ctx, marketID, userID); err == nil {
		return nil, errs.Conflict("User already has a prediction for this market")
	} else if !repository.IsNotFound(err) {
		return nil, errs.Upstream("Failed to create prediction", err)
	}

	prediction := &models.Prediction{
		MarketID: marketID,
		UserID:   userID,
		Choice:   choice,
		Amount:   amount,
	}
	if err := s.repo.CreatePrediction(ctx, prediction); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errs.Conflict("User already has a prediction for this market")
		}
		return nil, errs.Upstream("Failed to create prediction", err)
	}

	log.Info().
		Str("prediction_id", prediction.ID).
		Str("market_id", marketID).
		Str("user_id", userID).
		Str("choice", string(choice)).
		Int64("amount", amount).
		Msg("Prediction recorded")

	// The prediction stands even if the projection lags; rebuild-stats repairs it.
	if err := s.stats.OnPredictionCreated(ctx, userID, amount); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to count prediction in user stats")
	}

	prediction.Market = market
	if user, err := s.repo.GetUserByID(ctx, userID); err == nil {
		prediction.User = user
	}
	return prediction, nil
}

// ListPredictions returns a page of predictions, newest first
func (s *PredictionService) ListPredictions(
	ctx context.Context,
	filter repository.PredictionFilter,
	page, limit int,
) ([]models.Prediction, models.Pagination, error) {
	page, limit = normalizePage(page, limit)

	predictions, total, err := s.repo.ListPredictions(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, errs.Upstream("Failed to fetch predictions", err)
	}
	return predictions, models.NewPagination(page, limit, total), nil
}

// checkOpen rejects expired markets even when the expiry sweep has not run yet
func checkOpen(market *models.Market, now time.Time) error {
	if !market.ExpiresAt.After(now) {
		return errs.Validation("Market has expired")
	}
	if market.ResolvedAt != nil {
		return errs.Validation("Market has been resolved")
	}
	return nil
}
