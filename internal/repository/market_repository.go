package repository

import (
	"context"
	"time"

	"prediction-frames/internal/models"

	"gorm.io/gorm"
)

// CreateMarket inserts a market. A slug collision returns ErrDuplicate.
func (r *Repository) CreateMarket(ctx context.Context, market *models.Market) error {
	return translate(r.db.WithContext(ctx).Create(market).Error)
}

// GetMarketByID retrieves a market by ID
func (r *Repository) GetMarketByID(ctx context.Context, marketID string) (*models.Market, error) {
	var market models.Market
	err := r.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// GetMarketBySlug retrieves a market with its creator and, optionally,
// every prediction with the predictor's profile.
func (r *Repository) GetMarketBySlug(ctx context.Context, slug string, withPredictions bool) (*models.Market, error) {
	q := r.db.WithContext(ctx).Preload("Creator")
	if withPredictions {
		q = q.Preload("Predictions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).Preload("Predictions.User")
	}

	var market models.Market
	if err := q.Where("slug = ?", slug).First(&market).Error; err != nil {
		return nil, err
	}
	return &market, nil
}

// statusScope filters markets by derived status at now
func statusScope(status models.MarketStatus, now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch status {
		case models.MarketStatusActive:
			return db.Where("expires_at > ? AND resolved_at IS NULL", now)
		case models.MarketStatusResolved:
			return db.Where("resolved_at IS NOT NULL")
		case models.MarketStatusExpired:
			return db.Where("expires_at <= ? AND resolved_at IS NULL", now)
		}
		return db
	}
}

// ListMarkets returns a newest-first page of markets and the filtered total
func (r *Repository) ListMarkets(
	ctx context.Context,
	status models.MarketStatus,
	now time.Time,
	limit int,
	offset int,
) ([]models.Market, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Market{}).
		Scopes(statusScope(status, now)).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var markets []models.Market
	err = r.db.WithContext(ctx).
		Scopes(statusScope(status, now)).
		Preload("Creator").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&markets).Error
	if err != nil {
		return nil, 0, err
	}

	return markets, total, nil
}

// CountMarkets counts markets with the given status at now
func (r *Repository) CountMarkets(ctx context.Context, status models.MarketStatus, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Market{}).
		Scopes(statusScope(status, now)).
		Count(&count).Error
	return count, err
}

// VoteSplits counts predictions per option for each market in one grouped query
func (r *Repository) VoteSplits(ctx context.Context, marketIDs []string) (map[string]*models.VoteSplit, error) {
	splits := make(map[string]*models.VoteSplit, len(marketIDs))
	for _, id := range marketIDs {
		splits[id] = &models.VoteSplit{}
	}
	if len(marketIDs) == 0 {
		return splits, nil
	}

	var rows []struct {
		MarketID string
		Choice   models.Choice
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&models.Prediction{}).
		Select("market_id, choice, COUNT(*) AS count").
		Where("market_id IN ?", marketIDs).
		Group("market_id, choice").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		splits[row.MarketID].Add(row.Choice, row.Count)
	}
	return splits, nil
}

// ResolveMarket performs the single conditional open -> resolved transition.
// It reports false when the market was already resolved (or does not exist).
func (r *Repository) ResolveMarket(ctx context.Context, marketID string, outcome models.Outcome, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ? AND resolved_at IS NULL", marketID).
		Updates(map[string]interface{}{
			"resolved_at": now,
			"outcome":     outcome,
			"updated_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindExpiredUnresolved lists markets past their deadline that nobody resolved
func (r *Repository) FindExpiredUnresolved(ctx context.Context, now time.Time) ([]models.Market, error) {
	var markets []models.Market
	err := r.db.WithContext(ctx).
		Scopes(statusScope(models.MarketStatusExpired, now)).
		Order("expires_at ASC").
		Find(&markets).Error
	return markets, err
}

// CancelExpiredMarket cancels one expired market if it is still unresolved
func (r *Repository) CancelExpiredMarket(ctx context.Context, marketID string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ? AND resolved_at IS NULL AND expires_at <= ?", marketID, now).
		Updates(map[string]interface{}{
			"resolved_at": now,
			"outcome":     models.OutcomeCancelled,
			"updated_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteResolvedBefore removes markets resolved before cutoff together with
// their predictions in one transaction, so no prediction is left dangling.
func (r *Repository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (markets int64, predictions int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.Market{}).
			Select("id").
			Where("resolved_at IS NOT NULL AND resolved_at < ?", cutoff)

		res := tx.Where("market_id IN (?)", stale).Delete(&models.Prediction{})
		if res.Error != nil {
			return res.Error
		}
		predictions = res.RowsAffected

		res = tx.Where("resolved_at IS NOT NULL AND resolved_at < ?", cutoff).Delete(&models.Market{})
		if res.Error != nil {
			return res.Error
		}
		markets = res.RowsAffected
		return nil
	})
	return markets, predictions, err
}
