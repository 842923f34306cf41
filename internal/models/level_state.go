package models

import "time"

// LevelState is the cached progression snapshot for a user, created lazily on first XP.
type LevelState struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	UserID           uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalXP          int64     `gorm:"not null;default:0" json:"total_xp"`
	CurrentLevel     int       `gorm:"not null;default:1" json:"current_level"`
	LevelName        string    `gorm:"size:32;not null;default:'Newcomer'" json:"level_name"`
	NextLevelXP      int64     `gorm:"not null;default:0" json:"next_level_xp"`
	ConnectionsMade  int64     `gorm:"not null;default:0" json:"connections_made"`
	QRScansPerformed int64     `gorm:"not null;default:0" json:"qr_scans_performed"`
	ProfileViews     int64     `gorm:"not null;default:0" json:"profile_views"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (LevelState) TableName() string { return "level_states" }
