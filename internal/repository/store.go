package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles every repository over one *gorm.DB. Inside Transaction the same bundle is
// rebuilt over the transaction handle, so a unit of work reads and writes through one tx.
type Store struct {
	db *gorm.DB

	Users         *UserRepository
	Points        *PointsRepository
	Connections   *ConnectionRepository
	Achievements  *AchievementRepository
	Levels        *LevelRepository
	Swaps         *SwapRepository
	Nonces        *NonceRepository
	Notifications *NotificationRepository
	Activities    *ActivityRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepository(db),
		Points:        NewPointsRepository(db),
		Connections:   NewConnectionRepository(db),
		Achievements:  NewAchievementRepository(db),
		Levels:        NewLevelRepository(db),
		Swaps:         NewSwapRepository(db),
		Nonces:        NewNonceRepository(db),
		Notifications: NewNotificationRepository(db),
		Activities:    NewActivityRepository(db),
	}
}

// Transaction runs fn as one atomic unit. Any error returned by fn rolls back every write.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB exposes the handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }
