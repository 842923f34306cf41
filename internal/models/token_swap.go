package models

import (
	"time"

	"metabento/internal/domain"
)

// TokenSwap records a points→token request awaiting external settlement.
type TokenSwap struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	UserID        uint              `gorm:"not null;index" json:"user_id"`
	Reference     string            `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	PointsSwapped int64             `gorm:"not null" json:"points_swapped"`
	TokenAmount   float64           `gorm:"type:decimal(20,8);not null" json:"token_amount"`
	ExchangeRate  int64             `gorm:"not null" json:"exchange_rate"`
	WalletAddress *string           `gorm:"size:42" json:"wallet_address"` // nil when the user has no linked wallet
	Status        domain.SwapStatus `gorm:"size:20;not null;index" json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

func (TokenSwap) TableName() string {
	return "token_swaps"
}
