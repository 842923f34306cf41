package models

import (
	"fmt"
	"time"

	"metabento/internal/domain"
)

// Connection is one direction of a mutual connection. Each logical connection is stored as
// two rows (A→B and B→A) written in the same transaction; the unique (from, to) index makes
// a second pair insert fail whichever side initiates it.
type Connection struct {
	ID             uint                  `gorm:"primaryKey" json:"id"`
	FromUserID     uint                  `gorm:"not null;uniqueIndex:idx_connections_pair_dir,priority:1;index" json:"from_user_id"`
	ToUserID       uint                  `gorm:"not null;uniqueIndex:idx_connections_pair_dir,priority:2;index" json:"to_user_id"`
	PairKey        string                `gorm:"size:41;not null;index" json:"-"`
	ConnectionType domain.ConnectionType `gorm:"size:20;not null" json:"connection_type"`
	PointsAwarded  int64                 `gorm:"not null" json:"points_awarded"`
	Metadata       string                `gorm:"type:text" json:"metadata"` // JSON: names at connection time
	CreatedAt      time.Time             `gorm:"index" json:"created_at"`

	ToUser User `gorm:"foreignKey:ToUserID" json:"-"`
}

func (Connection) TableName() string { return "connections" }

// PairKey is the direction-independent key for {a, b}.
func PairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
