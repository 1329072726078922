package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outcome is the terminal result of a market
type Outcome string

const (
	OutcomeOptionA   Outcome = "OPTION_A"
	OutcomeOptionB   Outcome = "OPTION_B"
	OutcomeCancelled Outcome = "CANCELLED"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeOptionA, OutcomeOptionB, OutcomeCancelled:
		return true
	}
	return false
}

// MarketStatus is derived from ExpiresAt and ResolvedAt, never stored
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusExpired  MarketStatus = "expired"
	MarketStatusResolved MarketStatus = "resolved"
	MarketStatusAll      MarketStatus = "all"
)

// ParseMarketStatus maps a query value to a status filter. Empty means all.
func ParseMarketStatus(s string) (MarketStatus, bool) {
	switch MarketStatus(s) {
	case "", MarketStatusAll:
		return MarketStatusAll, true
	case MarketStatusActive, MarketStatusExpired, MarketStatusResolved:
		return MarketStatus(s), true
	}
	return "", false
}

// Market represents a binary-outcome prediction market.
// ResolvedAt and Outcome are always written together.
type Market struct {
	ID          string       `gorm:"primaryKey;size:36" json:"id"`
	Slug        string       `gorm:"uniqueIndex;size:64;not null" json:"slug"`
	Question    string       `gorm:"type:text;not null" json:"question"`
	Description *string      `gorm:"type:text" json:"description,omitempty"`
	OptionA     string       `gorm:"size:255;not null" json:"optionA"`
	OptionB     string       `gorm:"size:255;not null" json:"optionB"`
	ExpiresAt   time.Time    `gorm:"not null;index" json:"expiresAt"`
	ResolvedAt  *time.Time   `gorm:"index" json:"resolvedAt"`
	Outcome     *Outcome     `gorm:"size:16" json:"outcome"`
	CreatorID   string       `gorm:"size:36;not null;index" json:"creatorId"`
	Creator     *User        `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Predictions []Prediction `gorm:"foreignKey:MarketID" json:"predictions,omitempty"`
	VoteSplit   *VoteSplit   `gorm:"-" json:"voteSplit,omitempty"`
	CreatedAt   time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// TableName specifies the table name for Market model
func (Market) TableName() string {
	return "markets"
}

func (m *Market) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Status reports exactly one of active, expired or resolved at now
func (m *Market) Status(now time.Time) MarketStatus {
	switch {
	case m.ResolvedAt != nil:
		return MarketStatusResolved
	case !m.ExpiresAt.After(now):
		return MarketStatusExpired
	default:
		return MarketStatusActive
	}
}

// IsOpen reports whether the market still accepts predictions
func (m *Market) IsOpen(now time.Time) bool {
	return m.Status(now) == MarketStatusActive
}

// Label returns the option label for a choice
func (m *Market) Label(c Choice) string {
	if c == ChoiceOptionB {
		return m.OptionB
	}
	return m.OptionA
}

// VoteSplit counts predictions per option
type VoteSplit struct {
	OptionA int64 `json:"optionA"`
	OptionB int64 `json:"optionB"`
	Total   int64 `json:"total"`
}

// Add records n predictions for choice
func (v *VoteSplit) Add(c Choice, n int64) {
	switch c {
	case ChoiceOptionA:
		v.OptionA += n
	case ChoiceOptionB:
		v.OptionB += n
	default:
		return
	}
	v.Total += n
}

// CreateMarketRequest is the POST /markets body
type CreateMarketRequest struct {
	Question    string  `json:"question" binding:"required"`
	Description *string `json:"description"`
	OptionA     string  `json:"optionA" binding:"required"`
	OptionB     string  `json:"optionB" binding:"required"`
	ExpiresAt   string  `json:"expiresAt" binding:"required"`
}

// ResolveMarketRequest is the PATCH /markets/{slug} body
type ResolveMarketRequest struct {
	Outcome Outcome `json:"outcome" binding:"required,oneof=OPTION_A OPTION_B CANCELLED"`
}
