package repository

import (
	"context"

	"prediction-frames/internal/models"

	"gorm.io/gorm/clause"
)

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByFID retrieves a user by social-protocol fid
func (r *Repository) GetUserByFID(ctx context.Context, fid int64) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("fid = ?", fid).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertUser inserts the user keyed by fid. When overwrite is set, display
// metadata of an existing row is replaced; otherwise the existing row wins.
func (r *Repository) UpsertUser(ctx context.Context, user *models.User, overwrite bool) (*models.User, error) {
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "fid"}},
		DoNothing: true,
	}
	if overwrite {
		conflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "fid"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "display_name", "pfp_url", "updated_at"}),
		}
	}

	if err := r.db.WithContext(ctx).Clauses(conflict).Create(user).Error; err != nil {
		return nil, err
	}
	return r.GetUserByFID(ctx, user.FID)
}

// CountUsers counts all users
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
