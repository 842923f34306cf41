package repository

import (
	"context"
	"time"

	"metabento/internal/models"

	"gorm.io/gorm"
)

type PointsRepository struct {
	db *gorm.DB
}

func NewPointsRepository(db *gorm.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

// Record appends a ledger entry. Entries are never updated.
func (r *PointsRepository) Record(ctx context.Context, tx *models.PointsTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *PointsRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.PointsTransaction, error) {
	var list []models.PointsTransaction
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

// SumByUser returns the sum of every delta logged for userID.
func (r *PointsRepository) SumByUser(ctx context.Context, userID uint) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.PointsTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points_change), 0)").
		Scan(&sum).Error
	return sum, err
}

// SumEarnedSince totals the positive deltas logged since the given time.
func (r *PointsRepository) SumEarnedSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.PointsTransaction{}).
		Where("user_id = ? AND points_change > 0 AND created_at >= ?", userID, since).
		Select("COALESCE(SUM(points_change), 0)").
		Scan(&sum).Error
	return sum, err
}
