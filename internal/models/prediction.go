package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Choice is the option a prediction stakes on
type Choice string

const (
	ChoiceOptionA Choice = "OPTION_A"
	ChoiceOptionB Choice = "OPTION_B"
)

func (c Choice) Valid() bool {
	return c == ChoiceOptionA || c == ChoiceOptionB
}

// Won reports whether c matches a resolved outcome. Cancelled never wins.
func (c Choice) Won(o Outcome) bool {
	return o != OutcomeCancelled && string(c) == string(o)
}

// Prediction is one user's immutable stake on one market.
// The composite unique index is the real duplicate guard.
type Prediction struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	MarketID  string    `gorm:"size:36;not null;uniqueIndex:idx_predictions_market_user" json:"marketId"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_predictions_market_user;index" json:"userId"`
	Choice    Choice    `gorm:"size:16;not null;index" json:"choice"`
	Amount    int64     `gorm:"not null" json:"amount"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	Market    *Market   `gorm:"foreignKey:MarketID" json:"market,omitempty"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for Prediction model
func (Prediction) TableName() string {
	return "predictions"
}

func (p *Prediction) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// CreatePredictionRequest is the POST /predictions body
type CreatePredictionRequest struct {
	MarketID string `json:"marketId" binding:"required"`
	Choice   Choice `json:"choice" binding:"required,oneof=OPTION_A OPTION_B"`
	Amount   int64  `json:"amount" binding:"required,gt=0"`
}
