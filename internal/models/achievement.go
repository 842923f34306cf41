package models

import (
	"time"

	"metabento/internal/domain"
)

type Achievement struct {
	ID              uint                   `gorm:"primaryKey" json:"id"`
	UserID          uint                   `gorm:"not null;uniqueIndex:idx_achievements_user_type,priority:1" json:"user_id"`
	AchievementType domain.AchievementType `gorm:"size:40;not null;uniqueIndex:idx_achievements_user_type,priority:2" json:"achievement_type"`
	Name            string                 `gorm:"size:128" json:"name"`
	Description     string                 `gorm:"size:255" json:"description"`
	PointsAwarded   int64                  `gorm:"not null" json:"points_awarded"`
	UnlockedAt      time.Time              `gorm:"autoCreateTime" json:"unlocked_at"`
}

func (Achievement) TableName() string { return "achievements" }
