package repository

import (
	"context"

	"prediction-frames/internal/models"
)

// PredictionFilter narrows ListPredictions. Empty fields are ignored.
type PredictionFilter struct {
	UserID   string
	MarketID string
}

// CreatePrediction inserts a prediction. A second stake by the same user on
// the same market returns ErrDuplicate from the unique index.
func (r *Repository) CreatePrediction(ctx context.Context, prediction *models.Prediction) error {
	return translate(r.db.WithContext(ctx).Create(prediction).Error)
}

// GetPrediction retrieves the prediction for a (market, user) pair
func (r *Repository) GetPrediction(ctx context.Context, marketID, userID string) (*models.Prediction, error) {
	var prediction models.Prediction
	err := r.db.WithContext(ctx).
		Where("market_id = ? AND user_id = ?", marketID, userID).
		First(&prediction).Error
	if err != nil {
		return nil, err
	}
	return &prediction, nil
}

// ListPredictions returns a newest-first page of predictions with market and user
func (r *Repository) ListPredictions(
	ctx context.Context,
	filter PredictionFilter,
	limit int,
	offset int,
) ([]models.Prediction, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Prediction{})
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.MarketID != "" {
		q = q.Where("market_id = ?", filter.MarketID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var predictions []models.Prediction
	err := q.Preload("Market").
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&predictions).Error
	if err != nil {
		return nil, 0, err
	}

	return predictions, total, nil
}

// WinningPredictions lists predictions on a market whose choice matches outcome
func (r *Repository) WinningPredictions(ctx context.Context, marketID string, choice models.Choice) ([]models.Prediction, error) {
	var predictions []models.Prediction
	err := r.db.WithContext(ctx).
		Where("market_id = ? AND choice = ?", marketID, choice).
		Order("created_at ASC").
		Find(&predictions).Error
	return predictions, err
}

// CountPredictions counts all predictions
func (r *Repository) CountPredictions(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Prediction{}).Count(&count).Error
	return count, err
}
