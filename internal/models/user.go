package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an identity keyed by the social-protocol fid
type User struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	FID         int64     `gorm:"column:fid;uniqueIndex;not null" json:"fid"`
	Username    *string   `gorm:"size:255" json:"username,omitempty"`
	DisplayName *string   `gorm:"size:255" json:"displayName,omitempty"`
	PfpURL      *string   `gorm:"size:500" json:"pfpUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Profile is the public subset of a user returned alongside predictions
type Profile struct {
	FID         int64   `json:"fid"`
	Username    *string `json:"username,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	PfpURL      *string `json:"pfpUrl,omitempty"`
}
