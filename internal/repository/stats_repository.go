package repository

import (
	"context"
	"time"

	"prediction-frames/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsAggregate is a user's rollup recomputed from predictions and markets
type StatsAggregate struct {
	UserID             string
	TotalPredictions   int64
	TotalWagered       int64
	CorrectPredictions int64
	CorrectWagered     int64
}

// IncrementPredictionCreated counts a new stake in one upsert. winRate is left
// alone on the update path.
func (r *Repository) IncrementPredictionCreated(ctx context.Context, userID string, amount int64, now time.Time) error {
	initialStats := models.UserStats{
		UserID:           userID,
		TotalPredictions: 1,
		TotalWagered:     amount,
		LastUpdated:      now,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_predictions": gorm.Expr("user_stats.total_predictions + ?", 1),
			"total_wagered":     gorm.Expr("user_stats.total_wagered + ?", amount),
			"last_updated":      now,
		}),
	}).Create(&initialStats).Error
}

// IncrementPredictionWon credits a correct prediction at the fixed payout
// multiplier. A missing row is created as a single, winning prediction.
func (r *Repository) IncrementPredictionWon(ctx context.Context, userID string, amount int64, now time.Time) error {
	payout := amount * models.PayoutMultiplier
	initialStats := models.UserStats{
		UserID:             userID,
		TotalPredictions:   1,
		CorrectPredictions: 1,
		TotalWagered:       amount,
		TotalWon:           payout,
		WinRate:            100,
		LastUpdated:        now,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"correct_predictions": gorm.Expr("user_stats.correct_predictions + ?", 1),
			"total_won":           gorm.Expr("user_stats.total_won + ?", payout),
			"last_updated":        now,
		}),
	}).Create(&initialStats).Error
}

// GetUserStats retrieves one user's stats row
func (r *Repository) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListAllUserStats returns every stats row in stable insertion order
func (r *Repository) ListAllUserStats(ctx context.Context) ([]models.UserStats, error) {
	var stats []models.UserStats
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&stats).Error
	return stats, err
}

// UpdateRanking writes a recomputed win rate and rank for one row
func (r *Repository) UpdateRanking(ctx context.Context, statsID string, winRate float64, rank int, now time.Time) error {
	return r.db.WithContext(ctx).Model(&models.UserStats{}).
		Where("id = ?", statsID).
		Updates(map[string]interface{}{
			"win_rate":     winRate,
			"rank":         rank,
			"last_updated": now,
		}).Error
}

// Leaderboard returns the top rows by (correct desc, win rate desc).
// A non-nil since keeps only rows updated at or after it.
func (r *Repository) Leaderboard(ctx context.Context, since *time.Time, limit int) ([]models.UserStats, error) {
	q := r.db.WithContext(ctx).Preload("User")
	if since != nil {
		q = q.Where("last_updated >= ?", *since)
	}

	var stats []models.UserStats
	err := q.Order("correct_predictions DESC").
		Order("win_rate DESC").
		Order("created_at ASC").
		Limit(limit).
		Find(&stats).Error
	return stats, err
}

// AggregateFromPredictions recomputes every predictor's counters from the
// source tables. Cancelled markets never match a choice, so they count as
// wagered but never correct.
func (r *Repository) AggregateFromPredictions(ctx context.Context) ([]StatsAggregate, error) {
	var rows []StatsAggregate
	err := r.db.WithContext(ctx).
		Table("predictions AS p").
		Select(`p.user_id AS user_id,
			COUNT(*) AS total_predictions,
			COALESCE(SUM(p.amount), 0) AS total_wagered,
			COALESCE(SUM(CASE WHEN m.resolved_at IS NOT NULL AND m.outcome = p.choice THEN 1 ELSE 0 END), 0) AS correct_predictions,
			COALESCE(SUM(CASE WHEN m.resolved_at IS NOT NULL AND m.outcome = p.choice THEN p.amount ELSE 0 END), 0) AS correct_wagered`).
		Joins("JOIN markets AS m ON m.id = p.market_id").
		Group("p.user_id").
		Order("p.user_id").
		Scan(&rows).Error
	return rows, err
}

// ReplaceCounters overwrites a user's counters with recomputed values,
// creating the row when absent.
func (r *Repository) ReplaceCounters(ctx context.Context, agg StatsAggregate, winRate float64, now time.Time) error {
	row := models.UserStats{
		UserID:             agg.UserID,
		TotalPredictions:   agg.TotalPredictions,
		CorrectPredictions: agg.CorrectPredictions,
		TotalWagered:       agg.TotalWagered,
		TotalWon:           agg.CorrectWagered * models.PayoutMultiplier,
		WinRate:            winRate,
		LastUpdated:        now,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_predictions",
			"correct_predictions",
			"total_wagered",
			"total_won",
			"win_rate",
			"last_updated",
		}),
	}).Create(&row).Error
}
