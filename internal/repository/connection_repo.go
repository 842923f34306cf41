package repository

import (
	"context"
	"time"

	"metabento/internal/models"

	"gorm.io/gorm"
)

type ConnectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// ExistsBetween reports whether a or b already connected, in either direction.
func (r *ConnectionRepository) ExistsBetween(ctx context.Context, a, b uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Connection{}).
		Where("pair_key = ?", models.PairKey(a, b)).
		Count(&n).Error
	return n > 0, err
}

// CreatePair inserts both directions. A unique violation comes back as gorm.ErrDuplicatedKey.
func (r *ConnectionRepository) CreatePair(ctx context.Context, forward, reverse *models.Connection) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(forward).Error; err != nil {
		return err
	}
	return db.Create(reverse).Error
}

// ListFrom returns userID's outgoing rows with the peer preloaded, newest first.
func (r *ConnectionRepository) ListFrom(ctx context.Context, userID uint, limit, offset int) ([]models.Connection, error) {
	var list []models.Connection
	err := r.db.WithContext(ctx).Where("from_user_id = ?", userID).
		Preload("ToUser").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *ConnectionRepository) CountFromSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Connection{}).
		Where("from_user_id = ? AND created_at >= ?", userID, since).
		Count(&n).Error
	return n, err
}
