package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// ConnectionType says how two users met.
type ConnectionType string

const (
	ConnectionQRScan ConnectionType = "qr_scan"
	ConnectionManual ConnectionType = "manual"
	ConnectionEvent  ConnectionType = "event"
)

func (t ConnectionType) Valid() bool {
	switch t {
	case ConnectionQRScan, ConnectionManual, ConnectionEvent:
		return true
	}
	return false
}

// TransactionReason is the reason code on every points transaction.
type TransactionReason string

const (
	ReasonConnection  TransactionReason = "connection"
	ReasonDailyBonus  TransactionReason = "daily_bonus"
	ReasonAchievement TransactionReason = "achievement"
	ReasonAdmin       TransactionReason = "admin"
	ReasonTokenSwap   TransactionReason = "token_swap"
	ReasonQRScan      TransactionReason = "qr_scan"
)

func (r TransactionReason) Valid() bool {
	switch r {
	case ReasonConnection, ReasonDailyBonus, ReasonAchievement, ReasonAdmin, ReasonTokenSwap, ReasonQRScan:
		return true
	}
	return false
}

// EarnsXP reports whether a credit with this reason counts toward progression.
func (r TransactionReason) EarnsXP() bool {
	switch r {
	case ReasonConnection, ReasonDailyBonus, ReasonAchievement, ReasonAdmin, ReasonQRScan:
		return true
	case ReasonTokenSwap:
		return false
	}
	return false
}

type AchievementType string

const (
	AchievementFirstConnection AchievementType = "first_connection"
	AchievementNetworker       AchievementType = "networker"
	AchievementInfluencer      AchievementType = "influencer"
)

// SwapStatus of a token swap. Transitions past pending happen out of band.
type SwapStatus string

const (
	SwapPending    SwapStatus = "pending"
	SwapProcessing SwapStatus = "processing"
	SwapCompleted  SwapStatus = "completed"
	SwapFailed     SwapStatus = "failed"
)

// ScanInteraction records what a QR scan resulted in.
type ScanInteraction string

const (
	ScanConnect ScanInteraction = "connect"
	ScanView    ScanInteraction = "view"
)

const (
	NotificationLevelUp             = "level_up"
	NotificationAchievementUnlocked = "achievement_unlocked"
	NotificationNewConnection       = "new_connection"
)
