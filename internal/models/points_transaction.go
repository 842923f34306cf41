package models

import (
	"time"

	"metabento/internal/domain"
)

// PointsTransaction is an append-only ledger entry. The sum of PointsChange per user equals
// users.points.
type PointsTransaction struct {
	ID           uint                     `gorm:"primaryKey" json:"id"`
	UserID       uint                     `gorm:"not null;index:idx_points_tx_user_created,priority:1" json:"user_id"`
	PointsChange int64                    `gorm:"not null" json:"points_change"` // positive = credit, negative = debit
	Reason       domain.TransactionReason `gorm:"size:30;not null;index" json:"reason"`
	Description  string                   `gorm:"size:255" json:"description"`
	ReferenceID  string                   `gorm:"size:128" json:"reference_id,omitempty"` // e.g. connection id, swap reference
	Metadata     string                   `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt    time.Time                `gorm:"index:idx_points_tx_user_created,priority:2" json:"created_at"`
}

func (PointsTransaction) TableName() string {
	return "points_transactions"
}
