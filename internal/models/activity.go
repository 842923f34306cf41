package models

import (
	"time"

	"metabento/internal/domain"
)

// QRActivity logs every QR scan, whether or not it produced a connection.
type QRActivity struct {
	ID              uint                   `gorm:"primaryKey" json:"id"`
	ScannerUserID   uint                   `gorm:"not null;index:idx_qr_pair,priority:1" json:"scanner_user_id"`
	ScannedUserID   uint                   `gorm:"not null;index:idx_qr_pair,priority:2" json:"scanned_user_id"`
	ScanType        string                 `gorm:"size:20;not null" json:"scan_type"` // profile | card | event
	InteractionType domain.ScanInteraction `gorm:"size:20;not null" json:"interaction_type"`
	PointsAwarded   int64                  `gorm:"not null;default:0" json:"points_awarded"`
	CreatedAt       time.Time              `gorm:"index" json:"created_at"`

	ScannedUser User `gorm:"foreignKey:ScannedUserID" json:"-"`
}

func (QRActivity) TableName() string { return "qr_activities" }

// DailyBonusClaim guards the once-per-day bonus with a unique (user, day) row.
type DailyBonusClaim struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_daily_bonus_user_day,priority:1"`
	Day       string    `gorm:"size:10;not null;uniqueIndex:idx_daily_bonus_user_day,priority:2"` // YYYY-MM-DD, UTC
	CreatedAt time.Time
}

func (DailyBonusClaim) TableName() string { return "daily_bonus_claims" }

// ScanRewardClaim guards the repeat-scan bonus: one row per scanner, scanned user and UTC day.
type ScanRewardClaim struct {
	ID            uint      `gorm:"primaryKey"`
	ScannerUserID uint      `gorm:"not null;uniqueIndex:idx_scan_reward_pair_day,priority:1"`
	ScannedUserID uint      `gorm:"not null;uniqueIndex:idx_scan_reward_pair_day,priority:2"`
	Day           string    `gorm:"size:10;not null;uniqueIndex:idx_scan_reward_pair_day,priority:3"` // YYYY-MM-DD, UTC
	CreatedAt     time.Time
}

func (ScanRewardClaim) TableName() string { return "scan_reward_claims" }
