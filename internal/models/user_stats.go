package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PayoutMultiplier is the fixed double-or-nothing payout for a correct prediction
const PayoutMultiplier = 2

// UserStats is a materialized rollup of a user's predictions. Prediction and
// Market stay the source of truth; every field here can be rebuilt from them.
type UserStats struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	UserID             string    `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	TotalPredictions   int64     `gorm:"default:0" json:"totalPredictions"`
	CorrectPredictions int64     `gorm:"default:0;index" json:"correctPredictions"`
	TotalWagered       int64     `gorm:"default:0" json:"totalWagered"`
	TotalWon           int64     `gorm:"default:0" json:"totalWon"`
	WinRate            float64   `gorm:"default:0" json:"winRate"`
	Rank               *int      `json:"rank"`
	LastUpdated        time.Time `gorm:"index" json:"lastUpdated"`
	CreatedAt          time.Time `json:"createdAt"`
	User               *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for UserStats model
func (UserStats) TableName() string {
	return "user_stats"
}

func (s *UserStats) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// OverallStats is the site-wide summary returned by GET /stats
type OverallStats struct {
	TotalMarkets     int64 `json:"totalMarkets"`
	ActiveMarkets    int64 `json:"activeMarkets"`
	TotalPredictions int64 `json:"totalPredictions"`
	TotalUsers       int64 `json:"totalUsers"`
}

// Pagination is the paging envelope used by list endpoints
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// NewPagination computes the page count for total rows
func NewPagination(page, limit int, total int64) Pagination {
	var pages int64
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}
