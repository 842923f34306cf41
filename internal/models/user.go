package models

import (
	"time"

	"metabento/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	WalletAddress    *string        `gorm:"uniqueIndex;size:42" json:"wallet_address,omitempty"` // lower-cased; nil for email signups
	Email            *string        `gorm:"uniqueIndex;size:255" json:"email,omitempty"`
	Username         *string        `gorm:"uniqueIndex;size:64" json:"username,omitempty"` // lower-cased
	DisplayName      string         `gorm:"size:128" json:"display_name"`
	Bio              string         `gorm:"size:512" json:"bio"`
	AvatarURL        string         `gorm:"size:512" json:"avatar_url"`
	IsPublic         bool           `gorm:"not null;default:true" json:"is_public"`
	Role             string         `gorm:"size:20;not null;default:'USER';index" json:"role"`
	PasswordHash     string         `gorm:"size:255" json:"-"`
	Points           int64          `gorm:"not null;default:0;index" json:"points"`
	TotalConnections int64          `gorm:"not null;default:0" json:"total_connections"`
	LastLoginAt      *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) IsAdmin() bool { return u.Role == domain.RoleAdmin }

// Name is what other users see: display name, then username, then a wallet short form.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	if u.WalletAddress != nil && len(*u.WalletAddress) >= 10 {
		w := *u.WalletAddress
		return w[:6] + "…" + w[len(w)-4:]
	}
	return "MetaBento user"
}

// UsernameOrEmpty dereferences Username.
func (u *User) UsernameOrEmpty() string {
	if u.Username == nil {
		return ""
	}
	return *u.Username
}

// WalletOrEmpty dereferences WalletAddress.
func (u *User) WalletOrEmpty() string {
	if u.WalletAddress == nil {
		return ""
	}
	return *u.WalletAddress
}
