package models

import "time"

// AuthNonce is a single-use challenge a wallet signs to log in.
type AuthNonce struct {
	ID            uint      `gorm:"primaryKey"`
	WalletAddress string    `gorm:"size:42;not null;index"`
	Nonce         string    `gorm:"size:64;uniqueIndex;not null"`
	Used          bool      `gorm:"not null;default:false"`
	ExpiresAt     time.Time `gorm:"not null"`
	CreatedAt     time.Time
}

func (AuthNonce) TableName() string { return "auth_nonces" }
